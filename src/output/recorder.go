package output

import (
	"strings"
	"sync"
)

// Recorder is a Sink that keeps everything written to it.
type Recorder struct {
	mu     sync.Mutex
	Infos  []string
	Errors []string
}

// Info implements Sink.
func (r *Recorder) Info(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Infos = append(r.Infos, text)
}

// Error implements Sink.
func (r *Recorder) Error(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, text)
}

// Transcript returns all info text concatenated.
func (r *Recorder) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.Infos, "")
}

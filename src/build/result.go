package build

import (
	"fmt"
	"time"
)

// Result captures the outcome of a single build.
type Result struct {
	Image    string // tagged name that was requested
	ID       string // image id; empty on failure
	Status   string // "success" or "failed"
	Records  int    // parsed progress records
	LastInfo string // last stream text seen
	Duration time.Duration
}

// BuildFailedError reports a build that did not end with the success marker.
type BuildFailedError struct {
	Image string

	// NoOutput is set when the daemon produced no records at all.
	NoOutput bool

	// Message is the last error text seen in the stream or from the client.
	Message string
}

func (e *BuildFailedError) Error() string {
	if e.NoOutput {
		if e.Message != "" {
			return fmt.Sprintf("error building docker image %s [with no output]: %s", e.Image, e.Message)
		}
		return fmt.Sprintf("error building docker image %s [with no output]", e.Image)
	}
	return "docker build aborted: " + e.Message
}

// Package progress decodes the line-oriented JSON progress stream emitted by
// the Docker daemon for build and push operations.
//
// Every non-blank line is an independent JSON object. Parse turns one line
// into a Record, a closed variant over the shapes the daemon produces.
package progress

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// UnknownError is the message used for an errorDetail record without text.
const UnknownError = "Unknown Error"

// maxLineSize bounds a single stream line. Push progress bars and long RUN
// output can exceed bufio's 64 KiB default.
const maxLineSize = 1 << 20

// Kind discriminates a Record.
type Kind int

const (
	Unrecognized Kind = iota // no known field; ignored by consumers
	Stream                   // {"stream": text}
	Status                   // {"status": text, "progress"?: text}
	Error                    // {"error": text}
	ErrorDetail              // {"errorDetail": {"message": text}}
)

func (k Kind) String() string {
	switch k {
	case Stream:
		return "stream"
	case Status:
		return "status"
	case Error:
		return "error"
	case ErrorDetail:
		return "errorDetail"
	default:
		return "unrecognized"
	}
}

// Record is one classified line of progress output.
type Record struct {
	Kind Kind

	// Text is the trimmed stream, status, error or errorDetail message.
	Text string

	// Progress is set for Status records that carried a progress field.
	Progress    string
	HasProgress bool
}

// message mirrors the daemon's JSON message. Pointer fields distinguish an
// absent key from an empty value.
type message struct {
	Stream      *string         `json:"stream"`
	Status      *string         `json:"status"`
	Progress    *string         `json:"progress"`
	Error       *string         `json:"error"`
	ErrorDetail json.RawMessage `json:"errorDetail"`
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Fields holds every known field of one line, each with its presence.
// Unlike Record it is not classified: a line carrying both stream and error
// text keeps both.
type Fields struct {
	Stream    string // trimmed
	HasStream bool

	Status    string // trimmed
	HasStatus bool

	Progress    string
	HasProgress bool

	Error    string // trimmed
	HasError bool

	Detail    string // trimmed errorDetail.message
	HasDetail bool
}

// DetailText returns the errorDetail message, or UnknownError when the
// detail carried none.
func (f Fields) DetailText() string {
	if f.Detail == "" {
		return UnknownError
	}
	return f.Detail
}

// Record classifies f. Field precedence is status, error, errorDetail,
// stream; a line with none of them is Unrecognized.
func (f Fields) Record() Record {
	switch {
	case f.HasStatus:
		return Record{Kind: Status, Text: f.Status, Progress: f.Progress, HasProgress: f.HasProgress}
	case f.HasError:
		return Record{Kind: Error, Text: f.Error}
	case f.HasDetail:
		return Record{Kind: ErrorDetail, Text: f.Detail}
	case f.HasStream:
		return Record{Kind: Stream, Text: f.Stream}
	}
	return Record{Kind: Unrecognized}
}

// Decode decodes a single non-blank line without classifying it.
func Decode(line string) (Fields, error) {
	var m message
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return Fields{}, fmt.Errorf("progress: decoding %q: %w", truncate(line, 120), err)
	}

	var f Fields
	if m.Stream != nil {
		f.Stream, f.HasStream = strings.TrimSpace(*m.Stream), true
	}
	if m.Status != nil {
		f.Status, f.HasStatus = strings.TrimSpace(*m.Status), true
	}
	if m.Progress != nil {
		f.Progress, f.HasProgress = *m.Progress, true
	}
	if m.Error != nil {
		f.Error, f.HasError = strings.TrimSpace(*m.Error), true
	}
	if len(m.ErrorDetail) > 0 {
		f.Detail, f.HasDetail = detailMessage(m.ErrorDetail), true
	}
	return f, nil
}

// Parse decodes and classifies a single non-blank line. See Fields.Record
// for the precedence.
func Parse(line string) (Record, error) {
	f, err := Decode(line)
	if err != nil {
		return Record{}, err
	}
	return f.Record(), nil
}

// detailMessage extracts errorDetail.message. Null, empty or non-object
// details yield "".
func detailMessage(raw json.RawMessage) string {
	var d errorDetail
	if err := json.Unmarshal(raw, &d); err != nil {
		return ""
	}
	return strings.TrimSpace(d.Message)
}

// ErrorText returns the failure message carried by an Error or ErrorDetail
// record, substituting UnknownError for an empty detail.
func (r Record) ErrorText() string {
	if r.Kind == ErrorDetail && r.Text == "" {
		return UnknownError
	}
	return r.Text
}

// IsError reports whether the record signals an operation-level failure.
func (r Record) IsError() bool {
	return r.Kind == Error || r.Kind == ErrorDetail
}

// FormatStatus renders a Status record for a human. Lines with progress carry
// no newline so a terminal can redraw them in place.
func FormatStatus(r Record) string {
	if r.HasProgress {
		return r.Text + ": " + r.Progress
	}
	return r.Text + "\n"
}

// NewScanner returns a line scanner over r sized for daemon output.
func NewScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

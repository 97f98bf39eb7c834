package build

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/output"
	"github.com/sofmeright/dockpush/src/progress"
)

const (
	outputBanner = " DOCKER BUILD OUTPUT "
	outputRule   = "-"
)

// successRe matches the daemon's final build line. Anchored at the start
// only; trailing text is allowed.
var successRe = regexp.MustCompile(`^Successfully built ([a-zA-Z0-9]{12})`)

// Options are the parameters of a single build request.
type Options struct {
	Dir     string
	Tag     string
	NoCache bool
	Remove  bool
}

// Client issues build requests. The returned stream is newline-delimited
// JSON progress records; the caller closes it.
type Client interface {
	Build(ctx context.Context, opts Options) (io.ReadCloser, error)
}

// Builder runs builds and renders their transcript to a Sink.
type Builder struct {
	Sink  output.Sink
	Log   *zap.Logger
	Width int // banner width; zero uses output.DefaultWidth
}

// NewBuilder creates a Builder writing to sink.
func NewBuilder(sink output.Sink, log *zap.Logger) *Builder {
	return &Builder{Sink: sink, Log: log}
}

// buildState is the fold over the record stream. Only the last record and
// the last error text decide the outcome. Fields of one record are folded
// independently: a record may carry stream text and an error at once.
type buildState struct {
	count    int
	last     progress.Fields
	lastInfo string
	lastErr  string
}

func (s *buildState) add(f progress.Fields) {
	s.count++
	s.last = f
	if f.HasStream {
		s.lastInfo = f.Stream
	}
	// The daemon repeats the error text in errorDetail; error wins.
	switch {
	case f.HasError:
		s.lastErr = f.Error
	case f.HasDetail:
		s.lastErr = f.DetailText()
	}
}

// Build issues one build request for img and consumes its output to the end.
// On success img.ID is set.
//
// Client failures, whether on the request or mid-stream, are recorded as the
// last error and end the stream; they surface as a BuildFailedError. A
// malformed record is returned as a decode error.
func (b *Builder) Build(ctx context.Context, client Client, img *Image) (*Result, error) {
	start := time.Now()
	log := b.logger().With(zap.String("image", img.TaggedName()))
	log.Info("building docker image", zap.String("dockerfile", img.Dockerfile()))

	width := b.width()
	b.Sink.Info(output.Banner(outputBanner, width, outputRule) + "\n")
	var st buildState
	err := b.consume(ctx, client, img, &st, log)
	b.Sink.Info(output.Rule(width, outputRule) + "\n\n")

	result := &Result{
		Image:    img.TaggedName(),
		Status:   "failed",
		Records:  st.count,
		LastInfo: st.lastInfo,
	}
	defer func() { result.Duration = time.Since(start) }()

	if err != nil {
		return result, err
	}
	if st.count == 0 {
		return result, &BuildFailedError{Image: img.TaggedName(), NoOutput: true, Message: st.lastErr}
	}
	if st.last.HasStream {
		if m := successRe.FindStringSubmatch(st.last.Stream); m != nil {
			img.ID = m[1]
			result.ID = img.ID
			result.Status = "success"
			log.Info("image built", zap.String("id", img.ID))
			return result, nil
		}
	}
	return result, &BuildFailedError{Image: img.TaggedName(), Message: st.lastErr}
}

func (b *Builder) consume(ctx context.Context, client Client, img *Image, st *buildState, log *zap.Logger) error {
	body, err := client.Build(ctx, Options{
		Dir:     img.Dir,
		Tag:     img.TaggedName(),
		NoCache: img.NoCache,
		Remove:  img.Remove,
	})
	if err != nil {
		b.clientFailure(st, log, err)
		return nil
	}
	defer body.Close()

	sc := progress.NewScanner(body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f, err := progress.Decode(line)
		if err != nil {
			return fmt.Errorf("reading build output for %s: %w", img.TaggedName(), err)
		}
		st.add(f)

		if f.HasStream && f.Stream != "" {
			b.Sink.Info(f.Stream + "\n")
		}
		switch {
		case f.HasError:
			b.Sink.Error(f.Error + "\n")
		case f.HasDetail:
			b.Sink.Error(f.DetailText() + "\n")
		}
	}
	if err := sc.Err(); err != nil {
		b.clientFailure(st, log, err)
	}
	return nil
}

func (b *Builder) clientFailure(st *buildState, log *zap.Logger, err error) {
	log.Warn("docker build request failed", zap.Error(err))
	st.lastErr = err.Error()
	b.Sink.Error(err.Error() + "\n")
}

func (b *Builder) width() int {
	if b.Width <= 0 {
		return output.DefaultWidth
	}
	return b.Width
}

func (b *Builder) logger() *zap.Logger {
	if b.Log == nil {
		return zap.NewNop()
	}
	return b.Log
}

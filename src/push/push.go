// Package push tags a built image and uploads it to its registry.
package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/build"
	"github.com/sofmeright/dockpush/src/metrics"
	"github.com/sofmeright/dockpush/src/output"
	"github.com/sofmeright/dockpush/src/progress"
	"github.com/sofmeright/dockpush/src/retry"
)

// ErrNotBuilt is returned when pushing an image that has no id.
var ErrNotBuilt = errors.New("image has not been built")

// PushStreamError is an error record reported by the registry push stream.
type PushStreamError struct {
	Message string
}

func (e *PushStreamError) Error() string {
	return fmt.Sprintf("unable to push the image to the registry: %q", e.Message)
}

// Client tags images and streams registry pushes. The push stream is
// newline-delimited JSON progress records; the caller closes it.
type Client interface {
	Tag(ctx context.Context, imageID, repo, tag string, force bool) error
	Push(ctx context.Context, repo, tag string) (io.ReadCloser, error)
}

// Pusher tags and pushes images under a retry policy.
type Pusher struct {
	Sink    output.Sink
	Log     *zap.Logger
	Retry   *retry.Policy
	Metrics metrics.Recorder
}

// NewPusher creates a Pusher with the default retry policy and no metrics.
func NewPusher(sink output.Sink, log *zap.Logger) *Pusher {
	return &Pusher{Sink: sink, Log: log}
}

// Push tags img with its repo and tag, then pushes it. Each attempt repeats
// both steps. The error of the last attempt is returned unchanged.
func (p *Pusher) Push(ctx context.Context, client Client, img *build.Image) error {
	if !img.Built() {
		return fmt.Errorf("pushing %s: %w", img.TaggedName(), ErrNotBuilt)
	}

	log := p.logger().With(zap.String("image", img.TaggedName()), zap.String("id", img.ID))
	policy := p.policy()
	if policy.Log == nil {
		cp := *policy
		cp.Log = log
		policy = &cp
	}

	log.Info("pushing image to registry")
	start := time.Now()
	if err := policy.Run(ctx, "docker push", func() error {
		return p.attempt(ctx, client, img)
	}); err != nil {
		return err
	}

	p.recorder().TimedEvent(ctx, metrics.DockerPush, time.Since(start))
	log.Info("image pushed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (p *Pusher) attempt(ctx context.Context, client Client, img *build.Image) error {
	if err := client.Tag(ctx, img.ID, img.Repo, img.Tag, true); err != nil {
		return fmt.Errorf("tagging %s as %s: %w", img.ID, img.TaggedName(), err)
	}

	body, err := client.Push(ctx, img.Repo, img.Tag)
	if err != nil {
		return fmt.Errorf("pushing %s: %w", img.TaggedName(), err)
	}
	defer body.Close()

	sc := progress.NewScanner(body)
	for sc.Scan() {
		if err := p.processLine(sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading push output for %s: %w", img.TaggedName(), err)
	}
	return nil
}

// processLine echoes status records and turns error records into a
// PushStreamError.
func (p *Pusher) processLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	rec, err := progress.Parse(line)
	if err != nil {
		return err
	}

	switch rec.Kind {
	case progress.Status:
		p.Sink.Info(progress.FormatStatus(rec))
	case progress.Error:
		p.Sink.Error(rec.Text + "\n")
		return &PushStreamError{Message: rec.Text}
	case progress.ErrorDetail:
		return &PushStreamError{Message: rec.ErrorText()}
	}
	return nil
}

func (p *Pusher) policy() *retry.Policy {
	if p.Retry == nil {
		return retry.Default()
	}
	return p.Retry
}

func (p *Pusher) recorder() metrics.Recorder {
	if p.Metrics == nil {
		return metrics.Nop{}
	}
	return p.Metrics
}

func (p *Pusher) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

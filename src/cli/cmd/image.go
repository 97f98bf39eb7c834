package cmd

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/build"
	"github.com/sofmeright/dockpush/src/gitver"
	"github.com/sofmeright/dockpush/src/metrics"
	"github.com/sofmeright/dockpush/src/output"
	"github.com/sofmeright/dockpush/src/push"
	"github.com/sofmeright/dockpush/src/registry"
	"github.com/sofmeright/dockpush/src/retry"
)

// imageFlags are shared by build and push.
type imageFlags struct {
	repo    string
	tag     string
	retries int
	delay   time.Duration
}

// resolveImage applies flag overrides to the config and expands tag
// templates against the git checkout containing dir.
func resolveImage(dir string, f imageFlags) (*build.Image, error) {
	repo := cfg.Docker.Repo
	if f.repo != "" {
		repo = f.repo
	}
	if repo == "" {
		return nil, errors.New("no repository: set --repo or docker.repo")
	}

	tag := cfg.Docker.Tag
	if f.tag != "" {
		tag = f.tag
	}
	if gitver.NeedsVersion(tag) {
		if err := registry.ValidateTagTemplate(tag); err != nil {
			return nil, err
		}
		v, err := gitver.DetectVersion(dir)
		if err != nil {
			logger.Warn("git version unavailable, using dev placeholder", zap.Error(err))
			v = gitver.Dev()
		}
		resolved := gitver.ResolveTemplate(tag, v)
		logger.Debug("resolved tag template", zap.String("template", tag), zap.String("tag", resolved))
		tag = resolved
	}

	if errs := registry.ValidateReference(repo, tag, cfg.Docker.Credentials); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	img := build.NewImage(dir, repo, tag)
	img.NoCache = cfg.Docker.NoCache
	img.Remove = cfg.Docker.Remove
	return img, nil
}

// retryPolicy merges config with the --retries and --delay overrides.
func retryPolicy(f imageFlags) *retry.Policy {
	p := &retry.Policy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay.Duration,
		Log:      logger,
	}
	if f.retries > 0 {
		p.Attempts = f.retries
	}
	if f.delay > 0 {
		p.Delay = f.delay
	}
	return p
}

func newPusher(sink output.Sink, f imageFlags) (*push.Pusher, error) {
	rec, err := metrics.NewOTel(otel.GetMeterProvider())
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}
	p := push.NewPusher(sink, logger)
	p.Retry = retryPolicy(f)
	p.Metrics = rec
	return p, nil
}

// bannerWidth is the configured width, or the terminal width.
func bannerWidth() int {
	if cfg.Output.Width > 0 {
		return cfg.Output.Width
	}
	return output.Width()
}

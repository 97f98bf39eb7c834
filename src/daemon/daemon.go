// Package daemon adapts the Docker Engine API client to the build and push
// executors.
package daemon

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/build"
	"github.com/sofmeright/dockpush/src/push"
	"github.com/sofmeright/dockpush/src/registry"
)

var (
	_ build.Client = (*Client)(nil)
	_ push.Client  = (*Client)(nil)
)

// engine is the subset of the Engine API client used here.
type engine interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, image string, options types.ImagePushOptions) (io.ReadCloser, error)
	Close() error
}

// Client talks to a Docker daemon. It implements build.Client and
// push.Client.
type Client struct {
	api engine
	log *zap.Logger

	// Credentials is the env var prefix for registry auth.
	Credentials string
}

// New connects to the daemon at host, or the DOCKER_HOST environment when
// host is empty. The API version is negotiated on first use.
func New(host, credentials string, log *zap.Logger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{api: api, log: log, Credentials: credentials}, nil
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.api.Close()
}

// Build sends opts.Dir as the build context and returns the progress stream.
// Closing the stream also closes the context archive.
func (c *Client) Build(ctx context.Context, opts build.Options) (io.ReadCloser, error) {
	tar, err := archive.TarWithOptions(opts.Dir, &archive.TarOptions{})
	if err != nil {
		return nil, fmt.Errorf("archiving build context %s: %w", opts.Dir, err)
	}

	c.log.Debug("sending build context", zap.String("dir", opts.Dir), zap.String("tag", opts.Tag))
	resp, err := c.api.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:       []string{opts.Tag},
		Dockerfile: build.DockerfileName,
		NoCache:    opts.NoCache,
		Remove:     opts.Remove,
	})
	if err != nil {
		tar.Close()
		return nil, err
	}
	return &streamCloser{ReadCloser: resp.Body, extra: tar}, nil
}

// Tag points repo:tag at imageID. The Engine API always replaces an
// existing tag, so force is implied.
func (c *Client) Tag(ctx context.Context, imageID, repo, tag string, force bool) error {
	target := reference(repo, tag)
	c.log.Debug("tagging image", zap.String("id", imageID), zap.String("target", target), zap.Bool("force", force))
	return c.api.ImageTag(ctx, imageID, target)
}

// Push uploads repo:tag, or every tag of repo when tag is empty.
func (c *Client) Push(ctx context.Context, repo, tag string) (io.ReadCloser, error) {
	auth, err := registry.EncodedAuth(repo, c.Credentials)
	if err != nil {
		return nil, fmt.Errorf("encoding registry auth: %w", err)
	}
	return c.api.ImagePush(ctx, reference(repo, tag), types.ImagePushOptions{RegistryAuth: auth})
}

func reference(repo, tag string) string {
	if tag == "" {
		return repo
	}
	return repo + ":" + tag
}

// streamCloser closes an extra resource alongside the response body.
type streamCloser struct {
	io.ReadCloser
	extra io.Closer
}

func (s *streamCloser) Close() error {
	err := s.ReadCloser.Close()
	if cerr := s.extra.Close(); err == nil {
		err = cerr
	}
	return err
}

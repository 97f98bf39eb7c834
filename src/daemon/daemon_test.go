package daemon

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/build"
)

type fakeEngine struct {
	buildOpts  types.ImageBuildOptions
	buildFiles []string
	buildErr   error

	tagSource, tagTarget string

	pushRef  string
	pushOpts types.ImagePushOptions

	bodyClosed bool
}

type trackedBody struct {
	io.Reader
	closed *bool
}

func (b *trackedBody) Close() error {
	*b.closed = true
	return nil
}

func (e *fakeEngine) ImageBuild(_ context.Context, ctxTar io.Reader, opts types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	e.buildOpts = opts
	tr := tar.NewReader(ctxTar)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		e.buildFiles = append(e.buildFiles, hdr.Name)
	}
	if e.buildErr != nil {
		return types.ImageBuildResponse{}, e.buildErr
	}
	body := &trackedBody{Reader: strings.NewReader(`{"stream":"Successfully built abcdef012345"}`), closed: &e.bodyClosed}
	return types.ImageBuildResponse{Body: body}, nil
}

func (e *fakeEngine) ImageTag(_ context.Context, source, target string) error {
	e.tagSource, e.tagTarget = source, target
	return nil
}

func (e *fakeEngine) ImagePush(_ context.Context, ref string, opts types.ImagePushOptions) (io.ReadCloser, error) {
	e.pushRef, e.pushOpts = ref, opts
	return io.NopCloser(strings.NewReader(`{"status":"ok"}`)), nil
}

func (e *fakeEngine) Close() error { return nil }

func TestBuildSendsContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM alpine\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("x"), 0o644))

	eng := &fakeEngine{}
	c := &Client{api: eng, log: zap.NewNop()}

	body, err := c.Build(context.Background(), build.Options{Dir: dir, Tag: "app:v1", NoCache: true, Remove: true})
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())

	assert.Contains(t, string(data), "Successfully built")
	assert.True(t, eng.bodyClosed)
	assert.Equal(t, []string{"app:v1"}, eng.buildOpts.Tags)
	assert.Equal(t, "Dockerfile", eng.buildOpts.Dockerfile)
	assert.True(t, eng.buildOpts.NoCache)
	assert.True(t, eng.buildOpts.Remove)
	assert.ElementsMatch(t, []string{"Dockerfile", "app.txt"}, eng.buildFiles)
}

func TestBuildRequestError(t *testing.T) {
	dir := t.TempDir()
	eng := &fakeEngine{buildErr: errors.New("daemon unreachable")}
	c := &Client{api: eng, log: zap.NewNop()}

	_, err := c.Build(context.Background(), build.Options{Dir: dir, Tag: "app"})
	assert.EqualError(t, err, "daemon unreachable")
}

func TestTagAndPush(t *testing.T) {
	t.Setenv("GCR_USER", "u")
	t.Setenv("GCR_PASS", "p")

	eng := &fakeEngine{}
	c := &Client{api: eng, log: zap.NewNop(), Credentials: "GCR"}

	require.NoError(t, c.Tag(context.Background(), "abcdef012345", "gcr.io/proj/app", "v1", true))
	assert.Equal(t, "abcdef012345", eng.tagSource)
	assert.Equal(t, "gcr.io/proj/app:v1", eng.tagTarget)

	body, err := c.Push(context.Background(), "gcr.io/proj/app", "")
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, "gcr.io/proj/app", eng.pushRef)
	assert.NotEmpty(t, eng.pushOpts.RegistryAuth)
}

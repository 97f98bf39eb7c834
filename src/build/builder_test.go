package build

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sofmeright/dockpush/src/output"
)

// fakeClient serves a canned stream, optionally failing the request or
// failing the read after the canned lines are consumed.
type fakeClient struct {
	lines   []string
	callErr error
	readErr error

	calls []Options
}

func (c *fakeClient) Build(_ context.Context, opts Options) (io.ReadCloser, error) {
	c.calls = append(c.calls, opts)
	if c.callErr != nil {
		return nil, c.callErr
	}
	var r io.Reader = strings.NewReader(strings.Join(c.lines, "\n"))
	if c.readErr != nil {
		r = io.MultiReader(r, &failingReader{err: c.readErr})
	}
	return io.NopCloser(r), nil
}

type failingReader struct{ err error }

func (r *failingReader) Read([]byte) (int, error) { return 0, r.err }

func newTestBuilder() (*Builder, *output.Recorder) {
	sink := &output.Recorder{}
	return &Builder{Sink: sink, Width: 40}, sink
}

func TestBuildSuccess(t *testing.T) {
	b, sink := newTestBuilder()
	img := NewImage("ctx", "gcr.io/proj/app", "v1")
	client := &fakeClient{lines: []string{
		`{"stream":"Step 1/2 : FROM alpine\n"}`,
		`{"stream":" ---> 1234\n"}`,
		`{"stream":"Successfully built abcdef012345\n"}`,
	}}

	res, err := b.Build(context.Background(), client, img)
	require.NoError(t, err)
	assert.Equal(t, "abcdef012345", img.ID)
	assert.True(t, img.Built())
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, "Successfully built abcdef012345", res.LastInfo)

	require.Len(t, client.calls, 1)
	assert.Equal(t, Options{Dir: "ctx", Tag: "gcr.io/proj/app:v1", NoCache: false, Remove: true}, client.calls[0])

	require.Len(t, sink.Infos, 5, "banner, three lines, rule")
	assert.Equal(t, "--------- DOCKER BUILD OUTPUT ----------\n", sink.Infos[0])
	assert.Equal(t, "Step 1/2 : FROM alpine\n", sink.Infos[1])
	assert.Equal(t, strings.Repeat("-", 40)+"\n\n", sink.Infos[4])
	assert.Empty(t, sink.Errors)
}

func TestBuildSuccessIgnoresEarlierErrors(t *testing.T) {
	b, sink := newTestBuilder()
	img := NewImage("ctx", "app", "")
	client := &fakeClient{lines: []string{
		`{"error":"transient glitch"}`,
		`{"errorDetail":{"message":"transient glitch"}}`,
		`{"stream":"Successfully built abcdef012345"}`,
	}}

	_, err := b.Build(context.Background(), client, img)
	require.NoError(t, err)
	assert.Equal(t, "abcdef012345", img.ID)
	assert.Equal(t, []string{"transient glitch\n", "transient glitch\n"}, sink.Errors)
}

func TestBuildSuccessMarkerIsStartAnchored(t *testing.T) {
	b, _ := newTestBuilder()

	img := NewImage("ctx", "app", "")
	_, err := b.Build(context.Background(), &fakeClient{lines: []string{
		`{"stream":"  Successfully built 0123456789abcdef trailing\n"}`,
	}}, img)
	require.NoError(t, err)
	assert.Equal(t, "0123456789ab", img.ID, "first 12 characters are captured")

	img = NewImage("ctx", "app", "")
	_, err = b.Build(context.Background(), &fakeClient{lines: []string{
		`{"stream":"note: Successfully built abcdef012345"}`,
	}}, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.Empty(t, img.ID)
}

func TestBuildNoOutput(t *testing.T) {
	for name, lines := range map[string][]string{
		"empty":        nil,
		"blank lines":  {"", "   ", "\t"},
		"only newline": {"\n"},
	} {
		t.Run(name, func(t *testing.T) {
			b, _ := newTestBuilder()
			img := NewImage("ctx", "app", "v1")

			res, err := b.Build(context.Background(), &fakeClient{lines: lines}, img)
			var bf *BuildFailedError
			require.ErrorAs(t, err, &bf)
			assert.True(t, bf.NoOutput)
			assert.Equal(t, "error building docker image app:v1 [with no output]", err.Error())
			assert.Equal(t, 0, res.Records)
			assert.Empty(t, img.ID)
		})
	}
}

func TestBuildTrailingErrorFails(t *testing.T) {
	b, sink := newTestBuilder()
	img := NewImage("ctx", "app", "")
	client := &fakeClient{lines: []string{
		`{"stream":"Successfully built abcdef012345"}`,
		`{"error":"disk full"}`,
	}}

	res, err := b.Build(context.Background(), client, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.False(t, bf.NoOutput)
	assert.Equal(t, "disk full", bf.Message)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, img.ID)
	assert.Equal(t, "failed", res.Status)
	assert.Equal(t, []string{"disk full\n"}, sink.Errors)
}

func TestBuildNonStreamLastRecordFails(t *testing.T) {
	b, _ := newTestBuilder()
	img := NewImage("ctx", "app", "")
	client := &fakeClient{lines: []string{
		`{"stream":"Step 1/1 : FROM alpine"}`,
		`{"status":"Pulling from library/alpine"}`,
	}}

	_, err := b.Build(context.Background(), client, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.Equal(t, "", bf.Message)
	assert.Equal(t, "docker build aborted: ", err.Error())
}

func TestBuildMixedFieldLastRecord(t *testing.T) {
	tests := []struct {
		name     string
		last     string
		wantInfo []string
		wantErrs []string
	}{
		{
			name:     "status and stream",
			last:     `{"status":"done","stream":"Successfully built abcdef012345\n"}`,
			wantInfo: []string{"Successfully built abcdef012345\n"},
		},
		{
			name:     "stream and error",
			last:     `{"stream":"Successfully built abcdef012345\n","error":"late warning"}`,
			wantInfo: []string{"Successfully built abcdef012345\n"},
			wantErrs: []string{"late warning\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, sink := newTestBuilder()
			img := NewImage("ctx", "app", "")

			res, err := b.Build(context.Background(), &fakeClient{lines: []string{tt.last}}, img)
			require.NoError(t, err)
			assert.Equal(t, "abcdef012345", img.ID)
			assert.Equal(t, "Successfully built abcdef012345", res.LastInfo)
			assert.Equal(t, tt.wantInfo, sink.Infos[1:len(sink.Infos)-1])
			assert.Equal(t, tt.wantErrs, sink.Errors)
		})
	}
}

func TestBuildMixedFieldErrorKeepsStreamInfo(t *testing.T) {
	b, sink := newTestBuilder()
	img := NewImage("ctx", "app", "")
	client := &fakeClient{lines: []string{
		`{"stream":"Step 2/2 : RUN make","error":"make: *** [all] Error 2","errorDetail":{"message":"make: *** [all] Error 2"}}`,
	}}

	res, err := b.Build(context.Background(), client, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.Equal(t, "make: *** [all] Error 2", bf.Message)
	assert.Equal(t, "Step 2/2 : RUN make", res.LastInfo)
	assert.Contains(t, sink.Infos, "Step 2/2 : RUN make\n")
	assert.Equal(t, []string{"make: *** [all] Error 2\n"}, sink.Errors, "error text is echoed once")
}

func TestBuildRequestFailureLogsWithoutStacktrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b, _ := newTestBuilder()
	b.Log = zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))

	_, err := b.Build(context.Background(), &fakeClient{callErr: errors.New("daemon unreachable")}, NewImage("ctx", "app", ""))
	require.Error(t, err)

	failures := logs.FilterMessage("docker build request failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.WarnLevel, failures[0].Level)
	assert.Empty(t, failures[0].Stack)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestBuildEmptyErrorDetail(t *testing.T) {
	b, _ := newTestBuilder()
	img := NewImage("ctx", "app", "")

	_, err := b.Build(context.Background(), &fakeClient{lines: []string{`{"errorDetail":{}}`}}, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.Equal(t, "Unknown Error", bf.Message)
}

func TestBuildRequestFailure(t *testing.T) {
	b, sink := newTestBuilder()
	img := NewImage("ctx", "app", "")

	_, err := b.Build(context.Background(), &fakeClient{callErr: errors.New("daemon unreachable")}, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.True(t, bf.NoOutput)
	assert.Equal(t, "daemon unreachable", bf.Message)
	assert.Equal(t, []string{"daemon unreachable\n"}, sink.Errors)
	assert.Len(t, sink.Infos, 2, "banner and rule are still printed")
}

func TestBuildMidStreamFailureIsRecorded(t *testing.T) {
	b, sink := newTestBuilder()
	img := NewImage("ctx", "app", "")
	client := &fakeClient{
		lines:   []string{`{"stream":"Step 1/3 : FROM alpine"}`, ""},
		readErr: errors.New("connection reset"),
	}

	res, err := b.Build(context.Background(), client, img)
	var bf *BuildFailedError
	require.ErrorAs(t, err, &bf)
	assert.False(t, bf.NoOutput)
	assert.Equal(t, "connection reset", bf.Message)
	assert.Equal(t, 1, res.Records)
	assert.Contains(t, sink.Errors, "connection reset\n")
}

func TestBuildMalformedLine(t *testing.T) {
	b, _ := newTestBuilder()
	img := NewImage("ctx", "app", "")

	_, err := b.Build(context.Background(), &fakeClient{lines: []string{`not json`}}, img)
	require.Error(t, err)
	var bf *BuildFailedError
	assert.False(t, errors.As(err, &bf))
	assert.Contains(t, err.Error(), "reading build output for app")
}

func TestImageTaggedName(t *testing.T) {
	assert.Equal(t, "repo:tag", NewImage("", "repo", "tag").TaggedName())
	assert.Equal(t, "repo", NewImage("", "repo", "").TaggedName())
	assert.Equal(t, filepath.Join("src", "Dockerfile"), NewImage("src", "r", "").Dockerfile())
}

func TestPreflight(t *testing.T) {
	dir := t.TempDir()
	img := NewImage(dir, "app", "")

	_, err := Preflight(img)
	assert.ErrorIs(t, err, ErrNoDockerfile)

	require.NoError(t, os.WriteFile(img.Dockerfile(), []byte("# comment\nARG VERSION=1\n"), 0o644))
	_, err = Preflight(img)
	assert.ErrorContains(t, err, "no FROM instruction")

	content := "ARG BASE=alpine\nFROM golang:1.25 AS builder\nRUN go build\nFROM --platform=linux/amd64 alpine:3.20\n"
	require.NoError(t, os.WriteFile(img.Dockerfile(), []byte(content), 0o644))
	info, err := Preflight(img)
	require.NoError(t, err)
	require.Len(t, info.Stages, 2)
	assert.Equal(t, Stage{Name: "builder", BaseImage: "golang:1.25", Line: 2}, info.Stages[0])
	assert.Equal(t, "alpine:3.20", info.Stages[1].BaseImage)
	assert.Equal(t, []string{"BASE"}, info.Args)
}

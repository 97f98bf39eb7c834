package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sofmeright/dockpush/src/build"
	"github.com/sofmeright/dockpush/src/daemon"
	"github.com/sofmeright/dockpush/src/output"
	"github.com/sofmeright/dockpush/src/push"
)

var (
	dpFlags imageFlags
	dpID    string
)

var dockerPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Tag and push a built image",
	Long: `Tag an image already present in the daemon as repo:tag and push it.

Each attempt re-applies the tag and restarts the push. Attempts are retried
with a fixed delay until the push succeeds or the attempts are spent.`,
	Args: cobra.NoArgs,
	RunE: runDockerPush,
}

func init() {
	f := dockerPushCmd.Flags()
	f.StringVar(&dpID, "id", "", "image id to push (required)")
	f.StringVar(&dpFlags.repo, "repo", "", "repository to push to (overrides docker.repo)")
	f.StringVar(&dpFlags.tag, "tag", "", "image tag or tag template (overrides docker.tag)")
	f.IntVar(&dpFlags.retries, "retries", 0, "push attempts (overrides retry.attempts)")
	f.DurationVar(&dpFlags.delay, "delay", 0, "wait between push attempts (overrides retry.delay)")
	_ = dockerPushCmd.MarkFlagRequired("id")

	dockerCmd.AddCommand(dockerPushCmd)
}

func runDockerPush(cmd *cobra.Command, args []string) error {
	img, err := resolveImage(".", dpFlags)
	if err != nil {
		return err
	}
	img.ID = dpID

	output.CIHeader(os.Stdout)
	output.ContextBlock(os.Stdout, []output.KV{
		{Key: "image", Value: img.TaggedName()},
		{Key: "id", Value: img.ID},
		{Key: "daemon", Value: cfg.Docker.Host},
	})

	client, err := daemon.New(cfg.Docker.Host, cfg.Docker.Credentials, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	return pushImage(cmd.Context(), client, output.NewConsole(), img, dpFlags)
}

// pushImage pushes img inside a collapsible CI section and reports the
// outcome in a framed block.
func pushImage(ctx context.Context, client push.Client, sink output.Sink, img *build.Image, f imageFlags) error {
	w := os.Stdout
	color := output.UseColor()

	pusher, err := newPusher(sink, f)
	if err != nil {
		return err
	}

	start := time.Now()
	output.SectionStart(w, "dockpush_push", "Push")
	err = pusher.Push(ctx, client, img)
	output.SectionEnd(w, "dockpush_push")

	sec := output.NewSection(w, "Push", time.Since(start), color)
	if err != nil {
		output.RowStatus(sec, img.TaggedName(), "push failed", "failed", color)
	} else {
		output.RowStatus(sec, img.TaggedName(), "", "success", color)
	}
	sec.Close()
	return err
}

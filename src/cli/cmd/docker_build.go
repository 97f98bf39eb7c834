package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sofmeright/dockpush/src/build"
	"github.com/sofmeright/dockpush/src/daemon"
	"github.com/sofmeright/dockpush/src/output"
)

var (
	dbFlags   imageFlags
	dbNoCache bool
	dbRemove  bool
	dbPush    bool
)

var dockerBuildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Build a container image",
	Long: `Build a container image from the Dockerfile in dir (default ".").

The build transcript is streamed as it arrives. The build succeeds only if
the daemon's last line reports the built image id. With --push the image is
then tagged and pushed, retrying failed pushes.

Tags may use templates resolved from git: {version}, {sha}, {sha:N},
{branch}, {major}, {minor}, {patch}, {env:VAR}, {date}.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDockerBuild,
}

func init() {
	f := dockerBuildCmd.Flags()
	f.StringVar(&dbFlags.repo, "repo", "", "repository to tag the image with (overrides docker.repo)")
	f.StringVar(&dbFlags.tag, "tag", "", "image tag or tag template (overrides docker.tag)")
	f.BoolVar(&dbNoCache, "no-cache", false, "do not use the layer cache")
	f.BoolVar(&dbRemove, "rm", true, "remove intermediate containers after a successful build")
	f.BoolVar(&dbPush, "push", false, "push the image after a successful build")
	f.IntVar(&dbFlags.retries, "retries", 0, "push attempts (overrides retry.attempts)")
	f.DurationVar(&dbFlags.delay, "delay", 0, "wait between push attempts (overrides retry.delay)")

	dockerCmd.AddCommand(dockerBuildCmd)
}

func runDockerBuild(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if cmd.Flags().Changed("no-cache") {
		cfg.Docker.NoCache = dbNoCache
	}
	if cmd.Flags().Changed("rm") {
		cfg.Docker.Remove = dbRemove
	}

	ctx := cmd.Context()
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()

	img, err := resolveImage(dir, dbFlags)
	if err != nil {
		return err
	}

	df, err := build.Preflight(img)
	if err != nil {
		return err
	}
	for _, st := range df.Stages {
		logger.Debug("dockerfile stage",
			zap.Int("line", st.Line),
			zap.String("from", st.BaseImage),
			zap.String("name", st.Name))
	}

	output.CIHeader(w)
	output.ContextBlock(w, []output.KV{
		{Key: "image", Value: img.TaggedName()},
		{Key: "dockerfile", Value: img.Dockerfile()},
		{Key: "daemon", Value: cfg.Docker.Host},
	})

	client, err := daemon.New(cfg.Docker.Host, cfg.Docker.Credentials, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	console := output.NewConsole()
	builder := build.NewBuilder(console, logger)
	builder.Width = bannerWidth()

	output.SectionStart(w, "dockpush_build", "Build")
	res, err := builder.Build(ctx, client, img)
	output.SectionEnd(w, "dockpush_build")

	sec := output.NewSection(w, "Build", res.Duration, color)
	sec.KV("image", img.TaggedName())
	if err != nil {
		output.RowStatus(sec, "status", "build failed", "failed", color)
		sec.Close()
		return err
	}
	sec.KV("id", img.ID)
	sec.KV("records", fmt.Sprint(res.Records))
	output.RowStatus(sec, "status", "built", "success", color)
	sec.Close()

	pushStatus, pushDetail := "skipped", "--push not set"
	var pushErr error
	if dbPush {
		pushErr = pushImage(ctx, client, console, img, dbFlags)
		pushStatus, pushDetail = "success", img.TaggedName()
		if pushErr != nil {
			pushStatus, pushDetail = "failed", pushErr.Error()
		}
	}

	overall := "success"
	if pushErr != nil {
		overall = "failed"
	}
	sum := output.NewSection(w, "Summary", 0, color)
	output.SummaryRow(w, "build", "success", img.ID, color)
	output.SummaryRow(w, "push", pushStatus, pushDetail, color)
	sum.Separator()
	output.SummaryTotal(w, time.Since(start), overall, color)
	sum.Close()

	return pushErr
}

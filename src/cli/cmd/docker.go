package cmd

import (
	"github.com/spf13/cobra"
)

var dockerCmd = &cobra.Command{
	Use:   "docker",
	Short: "Docker image commands",
	Long:  "Build container images and push them to a registry.",
}

func init() {
	rootCmd.AddCommand(dockerCmd)
}

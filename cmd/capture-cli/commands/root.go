package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var baseUrl *string

var rootCmd = &cobra.Command{
	Use:   "capture-cli",
	Short: "capture-cli is a CLI for inspecting and operating a running capture daemon.",
}

func init() {
	baseUrl = rootCmd.PersistentFlags().String(
		"base-url", "http://localhost:8460",
		"The base url of the capture daemon.",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package commands

import (
	"bufio"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearYes *bool

func init() {
	clearYes = clearCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt.")
	rootCmd.AddCommand(clearCmd)
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clears all captured data. Keyword and filter configuration survive.",
	Run: func(cmd *cobra.Command, args []string) {
		if !*clearYes {
			fmt.Print("This deletes all captured records on the daemon. Continue? [y/N] ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			if strings.TrimSpace(strings.ToLower(line)) != "y" {
				return
			}
		}

		if err := postJson(cmd.Context(), "/reset", nil, nil); err != nil {
			log.Fatal(err)
		}
		slog.Info("capture state cleared")
	},
}

package commands

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keywordCmd)
}

var keywordCmd = &cobra.Command{
	Use:   "keyword [value]",
	Short: "Shows the active search keyword, or sets it when a value is given.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			var body struct {
				Keyword string `json:"keyword"`
			}
			if err := getJson(cmd.Context(), "/keyword", &body); err != nil {
				log.Fatal(err)
			}
			fmt.Println(body.Keyword)
			return
		}

		err := postJson(cmd.Context(), "/keyword", map[string]string{"keyword": args[0]}, nil)
		if err != nil {
			log.Fatal(err)
		}
		slog.Info("keyword updated", "keyword", args[0])
	},
}

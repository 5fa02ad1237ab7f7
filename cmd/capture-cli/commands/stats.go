package commands

import (
	"log"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows the running capture statistics and filter configuration.",
	Run: func(cmd *cobra.Command, args []string) {
		var stats struct {
			PageCount       int    `json:"pageCount"`
			ItemCount       int    `json:"itemCount"`
			LastCaptureTime string `json:"lastCaptureTime"`
		}
		if err := getJson(cmd.Context(), "/statistics", &stats); err != nil {
			log.Fatal(err)
		}
		var keyword struct {
			Keyword string `json:"keyword"`
		}
		if err := getJson(cmd.Context(), "/keyword", &keyword); err != nil {
			log.Fatal(err)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Keyword", "Pages", "Items", "Last capture"})
		t.AppendRow(table.Row{
			keyword.Keyword,
			stats.PageCount,
			stats.ItemCount,
			stats.LastCaptureTime,
		})
		t.Render()
	},
}

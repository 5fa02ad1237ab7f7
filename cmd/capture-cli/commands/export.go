package commands

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var exportOut *string

func init() {
	exportOut = exportCmd.Flags().StringP("out", "o", "", "Write to this file instead of <surface>.csv.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <products|sellers|requests> [-o <path/to/output.csv>]",
	Short: "Downloads one of the CSV export surfaces from the daemon.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		surface := args[0]
		switch surface {
		case "products", "sellers", "requests":
		default:
			log.Fatalf("unknown export surface %q", surface)
		}

		res, err := newClient().R().
			SetContext(cmd.Context()).
			Get(fmt.Sprintf("/export/%s.csv", surface))
		if err != nil {
			log.Fatal(err)
		}
		if res.IsError() {
			log.Fatalf("export failed: %s: %s", res.Status(), res.Body())
		}

		out := *exportOut
		if out == "" {
			out = surface + ".csv"
		}
		if err := os.WriteFile(out, res.Body(), 0644); err != nil {
			log.Fatal(err)
		}
		slog.Info("wrote export", "file", out, "bytes", len(res.Body()))
	},
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/studio"
)

var flagSearchModel string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Answer a question grounded on Google Search",
	Long: `Answer a question about recent events using Google Search, and list
the pages the answer was grounded on.

Examples:
  livestudio search "Who won the most recent Formula 1 race?"
  livestudio search "latest Go release" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		client, err := newStudio(ctx, studio.WithSearchModel(flagSearchModel))
		if err != nil {
			return err
		}
		res, err := client.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if !outputJSON && outputFile == "" {
			fmt.Println(res.Text)
			if len(res.Sources) > 0 {
				fmt.Println("\nSources:")
				for i, s := range res.Sources {
					fmt.Printf("  [%d] %s\n      %s\n", i+1, s.Title, s.URI)
				}
			}
			return nil
		}
		return outputResult(res)
	},
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchModel, "model", studio.DefaultSearchModel, "model")
}

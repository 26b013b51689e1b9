package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/studio"
)

var flagThinkModel string

type thinkResult struct {
	Prompt string `json:"prompt" yaml:"prompt"`
	Model  string `json:"model" yaml:"model"`
	Text   string `json:"text" yaml:"text"`
}

var thinkCmd = &cobra.Command{
	Use:   "think <prompt>",
	Short: "Answer a hard question with extended reasoning",
	Long: `Answer a complex question with a large thinking budget.

Only the final answer is printed, the model's reasoning is dropped.

Examples:
  livestudio think "Plan a three day trip to Kyoto on a budget"
  livestudio think "Prove that sqrt(2) is irrational" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := strings.Join(args, " ")

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		client, err := newStudio(ctx, studio.WithReasoningModel(flagThinkModel))
		if err != nil {
			return err
		}
		cli.PrintInfo("thinking with %s...", flagThinkModel)
		text, err := client.Think(ctx, prompt)
		if err != nil {
			return err
		}

		if !outputJSON && outputFile == "" {
			fmt.Println(text)
			return nil
		}
		return outputResult(thinkResult{Prompt: prompt, Model: flagThinkModel, Text: text})
	},
}

func init() {
	thinkCmd.Flags().StringVar(&flagThinkModel, "model", studio.DefaultReasoningModel, "model")
}

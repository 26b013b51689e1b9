package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
)

// extraWebSocketURL overrides the Live API endpoint of a context.
const extraWebSocketURL = "ws_url"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long: `Manage CLI configuration and contexts.

Configuration is stored in ~/.livestudio/livestudio/config.yaml`,
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Add or replace a context",
	Long: `Add a context with the specified name.

Example:
  livestudio config add-context dev --api-key YOUR_API_KEY
  livestudio config add-context calm --api-key KEY --voice Aoede --system-prompt "Speak slowly."`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		get := func(name string) string {
			v, _ := flags.GetString(name)
			return v
		}
		timeout, err := flags.GetInt("timeout")
		if err != nil {
			return fmt.Errorf("failed to read 'timeout' flag: %w", err)
		}

		ctx := &cli.Context{
			APIKey:       get("api-key"),
			BaseURL:      get("base-url"),
			Model:        get("model"),
			Voice:        get("voice"),
			SystemPrompt: get("system-prompt"),
			Timeout:      timeout,
		}
		if ws := get("ws-url"); ws != "" {
			ctx.SetExtra(extraWebSocketURL, ws)
		}
		if ctx.APIKey == "" {
			cli.PrintWarning("no --api-key given; %s will be used", cli.EnvAPIKey)
		}

		name := args[0]
		if err := getConfig().AddContext(name, ctx); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q added", name)
		return nil
	},
}

var configDeleteContextCmd = &cobra.Command{
	Use:   "delete-context <name>",
	Short: "Delete a context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().DeleteContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Context %q deleted", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Set the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := getConfig().UseContext(args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("Switched to context %q", args[0])
		return nil
	},
}

var configGetContextCmd = &cobra.Command{
	Use:   "get-context",
	Short: "Display the current context",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if cfg.CurrentContext == "" {
			fmt.Println("No current context set")
			return nil
		}
		fmt.Println(cfg.CurrentContext)
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:     "list-contexts",
	Aliases: []string{"get-contexts"},
	Short:   "List all contexts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		if len(cfg.Contexts) == 0 {
			fmt.Println("No contexts configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CURRENT\tNAME\tMODEL\tVOICE")
		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			current := ""
			if name == cfg.CurrentContext {
				current = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", current, name, orDefault(ctx.Model), orDefault(ctx.Voice))
		}
		return w.Flush()
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View the configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		fmt.Printf("Config file: %s\n", cfg.Path())
		fmt.Printf("Current context: %s\n", cfg.CurrentContext)

		for _, name := range cfg.ListContexts() {
			ctx := cfg.Contexts[name]
			fmt.Printf("\n  %s:\n", name)
			fmt.Printf("    API Key: %s\n", cli.MaskAPIKey(ctx.APIKey))
			if ctx.BaseURL != "" {
				fmt.Printf("    Base URL: %s\n", ctx.BaseURL)
			}
			if ws := ctx.GetExtra(extraWebSocketURL); ws != "" {
				fmt.Printf("    WebSocket URL: %s\n", ws)
			}
			fmt.Printf("    Model: %s\n", orDefault(ctx.Model))
			fmt.Printf("    Voice: %s\n", orDefault(ctx.Voice))
			if ctx.SystemPrompt != "" {
				fmt.Printf("    System Prompt: %s\n", ctx.SystemPrompt)
			}
			if ctx.Timeout > 0 {
				fmt.Printf("    Timeout: %ds\n", ctx.Timeout)
			}
		}
		return nil
	},
}

func orDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func init() {
	configAddContextCmd.Flags().String("api-key", "", "Gemini API key")
	configAddContextCmd.Flags().String("base-url", "", "API base URL for one-shot requests")
	configAddContextCmd.Flags().String("ws-url", "", "Live API websocket URL")
	configAddContextCmd.Flags().String("model", "", "live model")
	configAddContextCmd.Flags().String("voice", "", "prebuilt voice name")
	configAddContextCmd.Flags().String("system-prompt", "", "system instruction for live sessions")
	configAddContextCmd.Flags().Int("timeout", 0, "connection setup timeout in seconds")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configDeleteContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configGetContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configViewCmd)
}

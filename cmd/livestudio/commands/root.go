package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/studio"
)

const appName = "livestudio"

var (
	cfgFile     string
	contextName string
	outputFile  string
	inputFile   string
	outputJSON  bool
	verbose     bool

	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Gemini live audio studio",
	Long: `livestudio - live voice conversations and media tools for Gemini.

  live        talk to the model through your microphone and speakers
  frames      extract evenly spaced stills from a video
  analyze     describe a video from sampled frames
  transcribe  transcribe an audio file
  speak       synthesize speech with a prebuilt voice
  chat        text chat with a friendly assistant
  think       answer a hard question with extended reasoning
  image       describe or ask about an image
  search      answer a question grounded on Google Search
  history     browse saved live session transcripts

Configuration is stored in ~/.livestudio/livestudio/ and supports multiple
contexts. Without a context the API key is read from GEMINI_API_KEY, which
may also be set in ./.env.

Examples:
  livestudio config add-context dev --api-key YOUR_API_KEY
  livestudio config use-context dev
  livestudio live
  livestudio analyze clip.mp4 --prompt "What sport is this?"
  livestudio speak "Hello there" -o hello.wav`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(os.Stderr)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.livestudio/livestudio/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name to use")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")
	rootCmd.PersistentFlags().StringVarP(&inputFile, "file", "f", "", "request file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(framesCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(speakCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(thinkCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(devicesCmd)
}

func initConfig() {
	if err := cli.LoadEnv(); err != nil {
		cli.PrintWarning("%v", err)
	}
	var err error
	globalConfig, err = cli.LoadConfigWithPath(appName, cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging installs a text handler on w at Info, or Debug with -v.
func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func getConfig() *cli.Config {
	return globalConfig
}

// getContext returns the selected context, or nil when none is configured.
func getContext() (*cli.Context, error) {
	cfg := getConfig()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}
	return cfg.ResolveContext(contextName)
}

// apiKey resolves the API key of the selected context.
func apiKey() (*cli.Context, string, error) {
	ctx, err := getContext()
	if err != nil {
		return nil, "", err
	}
	key, err := cli.ResolveAPIKey(ctx)
	if err != nil {
		return nil, "", err
	}
	return ctx, key, nil
}

// newStudio builds a one-shot client for the selected context.
func newStudio(ctx context.Context, opts ...studio.Option) (*studio.Client, error) {
	c, key, err := apiKey()
	if err != nil {
		return nil, err
	}
	var baseURL string
	if c != nil {
		baseURL = c.BaseURL
		opts = append([]studio.Option{studio.WithVoice(c.Voice)}, opts...)
	}
	return studio.NewGemini(ctx, key, baseURL, opts...)
}

func outputResult(result any) error {
	format := cli.FormatYAML
	if outputJSON {
		format = cli.FormatJSON
	}
	return cli.Output(result, cli.OutputOptions{Format: format, File: outputFile})
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func elapsed(since time.Time) string {
	return cli.FormatDuration(time.Since(since))
}

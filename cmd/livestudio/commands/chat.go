package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/studio"
)

var (
	flagChatModel  string
	flagChatSystem string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Text chat with a friendly assistant",
	Long: `Chat with Sparky, a cheerful assistant, over text.

With a message argument a single turn is sent and the reply printed.
Without one, an interactive conversation reads lines from stdin until
EOF, "exit" or "quit". The conversation is kept for the whole session.

Examples:
  livestudio chat
  livestudio chat "Give me a fun fact about octopuses"
  livestudio chat --system "You answer like a pirate."`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		client, err := newStudio(ctx, studio.WithChatModel(flagChatModel))
		if err != nil {
			return err
		}
		chat := client.NewChat(flagChatSystem)

		if len(args) == 1 {
			reply, err := chat.Send(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		}

		if flagChatSystem == "" {
			fmt.Println(studio.ChatGreeting)
		}
		return chatLoop(os.Stdin, os.Stdout, func(line string) (string, error) {
			return chat.Send(ctx, line)
		})
	},
}

func init() {
	chatCmd.Flags().StringVar(&flagChatModel, "model", studio.DefaultChatModel, "model")
	chatCmd.Flags().StringVar(&flagChatSystem, "system", "", "system instruction (default: Sparky persona)")
}

// chatLoop sends each non-empty line of r and writes the replies to w.
func chatLoop(r io.Reader, w io.Writer, send func(string) (string, error)) error {
	sc := bufio.NewScanner(r)
	for {
		fmt.Fprint(w, "> ")
		if !sc.Scan() {
			fmt.Fprintln(w)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}
		reply, err := send(line)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, reply)
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/haivivi/livestudio/pkg/cli"
	"github.com/haivivi/livestudio/pkg/geminilive"
	"github.com/haivivi/livestudio/pkg/history"
	"github.com/haivivi/livestudio/pkg/kv"
	"github.com/haivivi/livestudio/pkg/live"
)

var (
	flagNoTUI     bool
	flagNoHistory bool
	flagLiveVoice string
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Start a live voice session",
	Long: `Start a live voice conversation with the model.

Microphone audio is streamed to the model and its spoken replies are played
back as they arrive. Speaking over the model interrupts it. Finished turns
are saved to the history database unless --no-history is given.

Examples:
  livestudio live
  livestudio live --device ffmpeg --input-format pulse
  livestudio live --device file --input question.pcm --no-tui -o reply.pcm`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	addDeviceFlags(liveCmd)
	liveCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "print turns instead of the full-screen UI")
	liveCmd.Flags().BoolVar(&flagNoHistory, "no-history", false, "do not save turns")
	liveCmd.Flags().StringVar(&flagLiveVoice, "voice", "", "prebuilt voice (overrides the context)")
}

// liveRecorder persists runs and turns and remembers the last error.
type liveRecorder struct {
	store *history.Store

	mu      sync.Mutex
	runID   string
	lastErr error
}

func (r *liveRecorder) begin(runID string, cfg live.Config) {
	r.mu.Lock()
	r.runID = runID
	r.lastErr = nil
	r.mu.Unlock()
	if r.store == nil {
		return
	}
	err := r.store.BeginRun(context.Background(), history.Run{
		ID:        runID,
		Model:     cfg.Model,
		Voice:     cfg.Voice,
		StartedAt: time.Now(),
	})
	if err != nil {
		slog.Warn("history: begin run", "err", err)
	}
}

func (r *liveRecorder) turn(t live.Turn) {
	if r.store == nil {
		return
	}
	if err := r.store.AppendTurn(context.Background(), t); err != nil {
		slog.Warn("history: append turn", "err", err)
	}
}

func (r *liveRecorder) fail(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// end closes the current run. It is safe to call more than once.
func (r *liveRecorder) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.runID
	r.runID = ""
	if r.store == nil || id == "" {
		return
	}
	if err := r.store.EndRun(context.Background(), id, time.Now(), r.lastErr); err != nil {
		slog.Warn("history: end run", "err", err)
	}
}

// watch closes the run once the session tears it down.
func (r *liveRecorder) watch(sess *live.Session) {
	done := sess.Done()
	go func() {
		<-done
		r.end()
	}()
}

func (r *liveRecorder) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func liveConfig(c *cli.Context) live.Config {
	cfg := live.DefaultConfig()
	if c != nil {
		if c.Model != "" {
			cfg.Model = c.Model
		}
		if c.SystemPrompt != "" {
			cfg.SystemPrompt = c.SystemPrompt
		}
		cfg.Voice = c.Voice
		cfg.ConnectTimeout = c.TimeoutDuration(cfg.ConnectTimeout)
	}
	if flagLiveVoice != "" {
		cfg.Voice = flagLiveVoice
	}
	return cfg
}

// openHistory opens the history database, or returns nil when disabled.
func openHistory() (*history.Store, func() error, error) {
	if flagNoHistory {
		return nil, func() error { return nil }, nil
	}
	paths, err := cli.NewPaths(appName)
	if err != nil {
		return nil, nil, err
	}
	dir, err := cli.Ensure(paths.HistoryDir())
	if err != nil {
		return nil, nil, err
	}
	db, err := kv.OpenBadger(dir)
	if err != nil {
		return nil, nil, err
	}
	return history.New(db), db.Close, nil
}

func runLive(cmd *cobra.Command, args []string) error {
	c, key, err := apiKey()
	if err != nil {
		return err
	}
	cfg := liveConfig(c)

	clientOpts := []geminilive.Option{geminilive.WithHandshakeTimeout(cfg.ConnectTimeout)}
	if ws := c.GetExtra(extraWebSocketURL); ws != "" {
		clientOpts = append(clientOpts, geminilive.WithWebSocketURL(ws))
	}
	connector := &live.GeminiConnector{Client: geminilive.NewClient(key, clientOpts...)}

	devices, closeDevices, err := openDevices()
	if err != nil {
		return err
	}
	defer closeDevices()

	store, closeStore, err := openHistory()
	if err != nil {
		return err
	}
	defer closeStore()

	rec := &liveRecorder{store: store}
	onTurn := rec.turn
	if flagNoTUI {
		onTurn = func(t live.Turn) {
			rec.turn(t)
			printTurn(t)
		}
	}
	var sess *live.Session
	opts := []live.Option{
		live.WithConfig(cfg),
		live.WithOnError(rec.fail),
		live.WithOnTurn(onTurn),
		live.WithOnState(func(st live.State) {
			if st == live.StateActive {
				rec.begin(sess.RunID(), cfg)
			}
		}),
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if flagNoTUI {
		sess = live.NewSession(devices, connector, opts...)
		return runLivePlain(ctx, sess, rec)
	}

	logs := cli.NewLogWriter(200)
	setupLogging(logs)
	sess = live.NewSession(devices, connector, opts...)
	m := newLiveModel(sess, rec, logs, cfg)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	sess.Stop()
	rec.end()
	setupLogging(cmd.ErrOrStderr())
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if err == nil {
		err = rec.err()
	}
	return err
}

func runLivePlain(ctx context.Context, sess *live.Session, rec *liveRecorder) error {
	started := time.Now()
	cli.PrintInfo("connecting...")
	if err := sess.Start(ctx); err != nil {
		if errors.Is(err, live.ErrStopped) || ctx.Err() != nil {
			return nil
		}
		return err
	}
	cli.PrintInfo("live; press Ctrl+C to stop")
	rec.watch(sess)

	select {
	case <-ctx.Done():
		sess.Stop()
	case <-sess.Done():
	}
	rec.end()

	st := sess.Stats()
	cli.PrintInfo("session ended after %s: %d turns, %d chunks sent, %d interruptions",
		elapsed(started), st.Turns, st.ChunksSent, st.Interruptions)
	return rec.err()
}

func printTurn(t live.Turn) {
	if t.User != "" {
		fmt.Printf("You:   %s\n", t.User)
	}
	if t.Model != "" {
		fmt.Printf("Model: %s\n", t.Model)
	}
	fmt.Println()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alexjbarnes/chat-sync/internal/bridge"
	"github.com/alexjbarnes/chat-sync/internal/chat"
	"github.com/alexjbarnes/chat-sync/internal/config"
	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
	"github.com/alexjbarnes/chat-sync/internal/logging"
	"github.com/alexjbarnes/chat-sync/internal/protocol"
	"github.com/alexjbarnes/chat-sync/internal/push"
	"github.com/alexjbarnes/chat-sync/internal/state"
	"golang.org/x/sync/errgroup"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	appState, err := state.LoadAt(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer appState.Close()

	// CHAT_USERNAME wins; otherwise restore the previous session.
	username := protocol.Normalize(cfg.Username)
	if username == "" {
		username = appState.Username()
	}
	if username == "" {
		return fmt.Errorf("%w: set CHAT_USERNAME", apperrors.ErrNotLoggedIn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	caller := bridge.NewCaller(cfg.BackendAddr, cfg.CallTimeout, logger)
	client := bridge.NewClient(caller)

	if err := client.Login(ctx, username); err != nil {
		return fmt.Errorf("logging in as %s: %w", username, err)
	}

	if err := appState.SetUsername(username); err != nil {
		logger.Warn("failed to save username", slog.String("error", err.Error()))
	}

	logger.Info("chat-client starting",
		slog.String("version", Version),
		slog.String("username", username),
		slog.String("backend", cfg.BackendAddr),
	)

	engine := chat.New(chat.Config{
		Fetcher:      client,
		View:         &terminalView{out: os.Stdout},
		Username:     username,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(gctx)
	})

	if cfg.PushURL != "" {
		channel := push.NewChannel(cfg.PushURL, username, engine, logger)
		g.Go(func() error {
			return channel.Run(gctx)
		})
	}

	repl := &repl{
		client:   client,
		engine:   engine,
		state:    appState,
		username: username,
		audioDir: filepath.Join(filepath.Dir(cfg.StatePath), "audio"),
		out:      os.Stdout,
	}

	g.Go(func() error {
		return repl.loop(gctx, os.Stdin)
	})

	// Restore the conversation that was open when the client last exited.
	if last := appState.LastConversation(); last != "" {
		if err := engine.Open(ctx, last); err != nil {
			logger.Warn("reopening last conversation failed",
				slog.String("conversation", last),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
		return err
	}

	return nil
}

// terminalView renders merged messages to the terminal. A terminal
// appends naturally, so scrolling is a no-op and the pending affordance
// prints as a notice line.
type terminalView struct {
	out io.Writer
}

func (v *terminalView) Append(m protocol.Message) {
	ts := time.UnixMilli(m.Timestamp).Format("15:04")
	if m.IsVoiceNote() {
		fmt.Fprintf(v.out, "[%s] %s: (voice note %s)\n", ts, m.Sender, m.FilePath)
		return
	}

	fmt.Fprintf(v.out, "[%s] %s: %s\n", ts, m.Sender, m.Text)
}

func (v *terminalView) ScrollToBottom() {}

func (v *terminalView) ShowPending(count int) {
	fmt.Fprintf(v.out, "-- %d new message(s), /ack to jump --\n", count)
}

func (v *terminalView) DismissPending() {}

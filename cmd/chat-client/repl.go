package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexjbarnes/chat-sync/internal/bridge"
	"github.com/alexjbarnes/chat-sync/internal/chat"
	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
	"github.com/alexjbarnes/chat-sync/internal/state"
)

var errQuit = errors.New("quit")

// repl is the interactive command loop. Plain lines are sent as text
// messages to the open conversation; lines starting with "/" are
// commands.
type repl struct {
	client   *bridge.Client
	engine   *chat.Engine
	state    *state.State
	username string
	audioDir string
	out      io.Writer
}

// loop reads lines until EOF, /quit, or context cancellation. Command
// failures are reported and the loop continues; they never terminate
// the session.
func (r *repl) loop(ctx context.Context, in io.Reader) error {
	fmt.Fprintf(r.out, "signed in as %s, /help for commands\n", r.username)

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				// Nobody is receiving anymore; drop the line and exit.
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			if err := r.handle(ctx, strings.TrimSpace(line)); err != nil {
				if errors.Is(err, errQuit) {
					return errQuit
				}
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) error {
	if line == "" {
		return nil
	}

	if !strings.HasPrefix(line, "/") {
		return r.sendText(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		r.printHelp()
		return nil

	case "/quit":
		return errQuit

	case "/open":
		if arg == "" {
			return fmt.Errorf("usage: /open <user|group>")
		}
		return r.open(ctx, arg)

	case "/users":
		users, err := r.client.ListUsers(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "users: %s\n", strings.Join(users, ", "))
		return nil

	case "/groups":
		groups, err := r.client.ListGroups(ctx, r.username)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "groups: %s\n", strings.Join(groups, ", "))
		return nil

	case "/creategroup":
		if arg == "" {
			return fmt.Errorf("usage: /creategroup <name>")
		}
		if err := r.client.CreateGroup(ctx, arg); err != nil {
			return err
		}
		return r.client.JoinGroup(ctx, r.username, arg)

	case "/join":
		if arg == "" {
			return fmt.Errorf("usage: /join <group>")
		}
		return r.client.JoinGroup(ctx, r.username, arg)

	case "/delete":
		return r.deleteChat(ctx)

	case "/voice":
		if arg == "" {
			return fmt.Errorf("usage: /voice <path>")
		}
		return r.sendVoiceNote(ctx, arg)

	case "/play":
		if arg == "" {
			return fmt.Errorf("usage: /play <file>")
		}
		return r.play(ctx, arg)

	case "/ack":
		r.engine.AcknowledgePending()
		return nil

	case "/pause":
		r.engine.SetPaused(true)
		return nil

	case "/resume":
		r.engine.SetPaused(false)
		return nil

	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

func (r *repl) open(ctx context.Context, id string) error {
	if err := r.engine.Open(ctx, id); err != nil {
		return err
	}

	return r.state.SetLastConversation(r.engine.Conversation())
}

func (r *repl) sendText(ctx context.Context, text string) error {
	conv := r.engine.Conversation()
	if conv == "" {
		return apperrors.ErrNoConversation
	}

	if err := r.client.SendText(ctx, r.username, conv, text); err != nil {
		return err
	}

	return r.engine.Resync(ctx, true)
}

func (r *repl) sendVoiceNote(ctx context.Context, path string) error {
	conv := r.engine.Conversation()
	if conv == "" {
		return apperrors.ErrNoConversation
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading voice note: %w", err)
	}

	if err := r.client.SendVoiceNote(ctx, r.username, conv, filepath.Base(path), content); err != nil {
		return err
	}

	return r.engine.Resync(ctx, true)
}

func (r *repl) deleteChat(ctx context.Context) error {
	conv := r.engine.Conversation()
	if conv == "" {
		return apperrors.ErrNoConversation
	}

	if err := r.client.DeleteChat(ctx, r.username, conv); err != nil {
		return err
	}

	r.engine.Close()

	return r.state.SetLastConversation("")
}

// play downloads a voice note into the local audio cache and prints
// where it landed; actual playback is up to the user.
func (r *repl) play(ctx context.Context, file string) error {
	content, mime, err := r.client.FetchAudio(ctx, file)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(r.audioDir, 0o700); err != nil {
		return fmt.Errorf("creating audio cache: %w", err)
	}

	dest := filepath.Join(r.audioDir, filepath.Base(file))
	if err := os.WriteFile(dest, content, 0o600); err != nil {
		return fmt.Errorf("writing audio file: %w", err)
	}

	fmt.Fprintf(r.out, "saved %s (%s)\n", dest, mime)
	return nil
}

func (r *repl) printHelp() {
	fmt.Fprint(r.out, `commands:
  /open <user|group>   open a conversation
  /users               list users
  /groups              list your groups
  /creategroup <name>  create and join a group
  /join <group>        join a group
  /delete              delete the open conversation
  /voice <path>        send a voice note
  /play <file>         download a voice note
  /ack                 jump to newest messages
  /pause, /resume      pause or resume background refresh
  /quit                exit
anything else is sent to the open conversation
`)
}

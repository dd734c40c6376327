// Package chat implements the client-side incremental sync engine: it
// owns the view state of the currently open conversation and merges
// freshly fetched history into it without duplicating or losing
// messages, whichever of the poll loop or the push channel triggered
// the fetch.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
	"github.com/alexjbarnes/chat-sync/internal/protocol"
)

const defaultPollInterval = 1200 * time.Millisecond

// Fetcher retrieves the full current history of a conversation.
// *bridge.Client implements it.
type Fetcher interface {
	FetchHistory(ctx context.Context, username, conversation string) ([]protocol.Message, error)
}

// View receives the user-visible effects of a merge. Calls arrive with
// the engine lock held, so implementations must not call back into the
// Engine.
type View interface {
	// Append renders one newly arrived message below the existing ones.
	Append(msg protocol.Message)
	// ScrollToBottom moves the viewport to the newest content.
	ScrollToBottom()
	// ShowPending surfaces or updates the new-messages affordance.
	ShowPending(count int)
	// DismissPending removes the new-messages affordance.
	DismissPending()
}

// Config holds the parameters for a sync engine.
type Config struct {
	Fetcher      Fetcher
	View         View
	Username     string
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Engine is the per-session sync engine. At most one conversation is
// open at a time; opening another discards the previous view state.
// All state mutation happens under one mutex, so the poll loop, the
// push channel, and user actions may invoke it concurrently.
type Engine struct {
	fetcher  Fetcher
	view     View
	username string
	interval time.Duration
	logger   *slog.Logger

	mu           sync.Mutex
	conversation string // normalized; empty when nothing is open
	generation   uint64 // bumped on every open/close to invalidate in-flight fetches
	rendered     map[protocol.Key]struct{}
	pending      int
	atBottom     bool
	paused       bool
}

// New creates a sync engine. A zero PollInterval selects the default
// 1.2 s cadence.
func New(cfg Config) *Engine {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Engine{
		fetcher:  cfg.Fetcher,
		view:     cfg.View,
		username: protocol.Normalize(cfg.Username),
		interval: interval,
		logger:   cfg.Logger,
		atBottom: true,
	}
}

// Open makes id the current conversation. View state starts empty and
// the first merge is forced, so the view ends scrolled to the newest
// content. Fetch errors propagate to the caller.
func (e *Engine) Open(ctx context.Context, id string) error {
	id = protocol.Normalize(id)

	e.mu.Lock()
	e.conversation = id
	e.generation++
	gen := e.generation
	e.rendered = make(map[protocol.Key]struct{})
	e.pending = 0
	e.atBottom = true
	e.mu.Unlock()

	return e.resync(ctx, id, gen, true)
}

// Close discards the current view state. An in-flight fetch for the
// closed conversation is not cancelled; its result is discarded when it
// arrives.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.conversation = ""
	e.generation++
	e.rendered = nil
	e.pending = 0
	e.atBottom = true
}

// Conversation returns the normalized id of the open conversation, or
// empty string.
func (e *Engine) Conversation() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.conversation
}

// Resync re-fetches the open conversation's history and merges it.
// Used after an explicit send and by push hints; force moves the view
// to the newest content regardless of scroll position.
func (e *Engine) Resync(ctx context.Context, force bool) error {
	e.mu.Lock()
	id, gen := e.conversation, e.generation
	e.mu.Unlock()

	if id == "" {
		return apperrors.ErrNoConversation
	}

	return e.resync(ctx, id, gen, force)
}

// Tick runs one background refresh. It is a no-op when nothing is open
// or the viewer paused refreshing; fetch errors are swallowed, the
// next tick retries naturally.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	id, gen, paused := e.conversation, e.generation, e.paused
	e.mu.Unlock()

	if id == "" || paused {
		return
	}

	if err := e.resync(ctx, id, gen, false); err != nil {
		e.logger.Debug("background refresh failed",
			slog.String("conversation", id),
			slog.String("error", err.Error()),
		)
	}
}

// Run drives Tick on the configured cadence until ctx is cancelled.
// The loop reschedules unconditionally; there is no backoff and no
// retry cap.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// UserScrolled records the viewer's position. Reaching the bottom
// clears the pending count and dismisses the affordance.
func (e *Engine) UserScrolled(atBottom bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.atBottom = atBottom
	if atBottom {
		e.pending = 0
		e.view.DismissPending()
	}
}

// SetPaused suspends or resumes background refreshing. Explicit opens,
// sends, and push hints still refresh while paused.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.paused = paused
}

// AcknowledgePending jumps to the newest content and clears the pending
// count without re-fetching.
func (e *Engine) AcknowledgePending() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = 0
	e.atBottom = true
	e.view.DismissPending()
	e.view.ScrollToBottom()
}

// HandleNotification reacts to a push hint. A new_message concerning
// the open conversation triggers a forced resync from a fresh fetch;
// the notification payload is a hint, never a complete delta. Everything
// else is logged and ignored.
func (e *Engine) HandleNotification(ctx context.Context, n protocol.Notification) {
	switch n.Type {
	case protocol.NotifyNewMessage:
		if n.Message == nil {
			return
		}

		e.mu.Lock()
		open := e.conversation
		e.mu.Unlock()

		if open == "" {
			return
		}

		sender := protocol.Normalize(n.Message.Sender)
		recipient := protocol.Normalize(n.Message.Recipient)
		if sender != open && recipient != open {
			return
		}

		if err := e.Resync(ctx, true); err != nil {
			e.logger.Warn("push-triggered refresh failed",
				slog.String("conversation", open),
				slog.String("error", err.Error()),
			)
		}

	case protocol.NotifyUserJoined:
		e.logger.Debug("user joined", slog.String("user", n.User))

	case protocol.NotifyUserLeft:
		e.logger.Debug("user left", slog.String("user", n.User))

	default:
		e.logger.Debug("ignoring unknown notification", slog.String("type", n.Type))
	}
}

// resync fetches id's history and merges it. gen is the generation
// observed when the refresh was decided; merge discards the batch if
// the conversation changed underneath the fetch.
func (e *Engine) resync(ctx context.Context, id string, gen uint64, force bool) error {
	msgs, err := e.fetcher.FetchHistory(ctx, e.username, id)
	if err != nil {
		return fmt.Errorf("fetching history for %s: %w", id, err)
	}

	e.merge(id, gen, msgs, force)

	return nil
}

// merge applies a fetched batch to the view state: deduplicate, append
// in delivery order, then either scroll to the bottom (forced merges
// and merges that started at the bottom) or grow the pending count.
func (e *Engine) merge(id string, gen uint64, incoming []protocol.Message, force bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// The conversation may have been switched or closed while the fetch
	// was in flight; a stale batch must not touch the new view state.
	if e.conversation != id || e.generation != gen {
		e.logger.Debug("discarding stale fetch result", slog.String("conversation", id))
		return
	}

	wasAtBottom := e.atBottom

	appended := 0
	for _, m := range incoming {
		key := m.Key()
		if _, dup := e.rendered[key]; dup {
			continue
		}

		e.rendered[key] = struct{}{}
		appended++
		e.view.Append(m)
	}

	if force || wasAtBottom {
		e.atBottom = true
		e.pending = 0
		e.view.DismissPending()
		e.view.ScrollToBottom()
		return
	}

	if appended > 0 {
		e.pending += appended
		e.view.ShowPending(e.pending)
	}
}

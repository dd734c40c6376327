package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
	"github.com/alexjbarnes/chat-sync/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeFetcher serves a mutable history slice and counts fetches.
type fakeFetcher struct {
	mu      sync.Mutex
	history map[string][]protocol.Message
	calls   int
	err     error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{history: make(map[string][]protocol.Message)}
}

func (f *fakeFetcher) FetchHistory(_ context.Context, _, conversation string) ([]protocol.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]protocol.Message(nil), f.history[conversation]...), nil
}

func (f *fakeFetcher) set(conversation string, msgs ...protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[conversation] = msgs
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// recordingView logs every view effect in order.
type recordingView struct {
	mu     sync.Mutex
	events []string
}

func (v *recordingView) Append(msg protocol.Message) { v.record("append:" + msg.Text) }
func (v *recordingView) ScrollToBottom()             { v.record("scroll") }
func (v *recordingView) ShowPending(count int)       { v.record(fmt.Sprintf("pending:%d", count)) }
func (v *recordingView) DismissPending()             { v.record("dismiss") }

func (v *recordingView) record(event string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = append(v.events, event)
}

func (v *recordingView) log() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.events...)
}

func (v *recordingView) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.events = nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeFetcher, *recordingView) {
	t.Helper()

	fetcher := newFakeFetcher()
	view := &recordingView{}
	engine := New(Config{
		Fetcher:  fetcher,
		View:     view,
		Username: "alice",
		Logger:   slog.Default(),
	})
	return engine, fetcher, view
}

func msg(sender, text string, ts int64) protocol.Message {
	return protocol.Message{Type: protocol.MessageText, Sender: sender, Text: text, Timestamp: ts}
}

// --- Open / Close ---

func TestOpen_RendersHistoryScrolledToBottom(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1), msg("alice", "m2", 2))

	require.NoError(t, engine.Open(context.Background(), "bob"))

	assert.Equal(t, []string{"append:m1", "append:m2", "dismiss", "scroll"}, view.log())
	assert.Equal(t, "bob", engine.Conversation())
}

func TestOpen_NormalizesConversationID(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("bob")

	require.NoError(t, engine.Open(context.Background(), "  Bob "))
	assert.Equal(t, "bob", engine.Conversation())
}

func TestOpen_FetchErrorPropagates(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.fail(fmt.Errorf("boom"))

	err := engine.Open(context.Background(), "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestOpen_AnotherConversationResetsDedup(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	shared := msg("bob", "m1", 1)
	fetcher.set("bob", shared)
	fetcher.set("carol", shared)

	require.NoError(t, engine.Open(context.Background(), "bob"))
	view.reset()

	// The same message key in a different conversation renders again.
	require.NoError(t, engine.Open(context.Background(), "carol"))
	assert.Contains(t, view.log(), "append:m1")
}

func TestClose_ThenResyncFails(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("bob")

	require.NoError(t, engine.Open(context.Background(), "bob"))
	engine.Close()

	assert.Equal(t, "", engine.Conversation())
	assert.ErrorIs(t, engine.Resync(context.Background(), false), apperrors.ErrNoConversation)
}

// --- merge / dedup ---

func TestResync_IsIdempotent(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1), msg("alice", "m2", 2))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	view.reset()

	// Full history arrives again; nothing new is appended.
	require.NoError(t, engine.Resync(context.Background(), false))
	assert.NotContains(t, view.log(), "append:m1")
	assert.NotContains(t, view.log(), "append:m2")
}

func TestResync_AppendsOnlyNewMessages(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	view.reset()

	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2))
	require.NoError(t, engine.Resync(context.Background(), false))

	log := view.log()
	assert.NotContains(t, log, "append:m1")
	assert.Contains(t, log, "append:m2")
}

func TestMerge_DedupIsCaseInsensitiveOnSender(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("Bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	view.reset()

	// Same message with different sender casing is still a duplicate.
	fetcher.set("bob", msg("BOB", "m1", 1))
	require.NoError(t, engine.Resync(context.Background(), false))
	assert.NotContains(t, view.log(), "append:m1")
}

// --- scroll position and pending count ---

func TestMerge_ScrolledUpAccumulatesPending(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	engine.UserScrolled(false)
	view.reset()

	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2), msg("bob", "m3", 3))
	require.NoError(t, engine.Resync(context.Background(), false))
	assert.Equal(t, []string{"append:m3", "pending:1"}, view.log())

	view.reset()
	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2), msg("bob", "m3", 3), msg("bob", "m4", 4))
	require.NoError(t, engine.Resync(context.Background(), false))
	assert.Equal(t, []string{"append:m4", "pending:2"}, view.log())
}

func TestMerge_AtBottomScrollsInsteadOfPending(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	view.reset()

	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2))
	require.NoError(t, engine.Resync(context.Background(), false))

	log := view.log()
	assert.Contains(t, log, "append:m2")
	assert.Contains(t, log, "scroll")
	assert.NotContains(t, log, "pending:1")
}

func TestMerge_ForcedWhileScrolledUpJumpsToBottom(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	engine.UserScrolled(false)
	view.reset()

	fetcher.set("bob", msg("bob", "m1", 1), msg("alice", "m2", 2))
	require.NoError(t, engine.Resync(context.Background(), true))

	assert.Equal(t, []string{"append:m2", "dismiss", "scroll"}, view.log())
}

func TestUserScrolled_BackToBottomClearsPending(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	engine.UserScrolled(false)

	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2))
	require.NoError(t, engine.Resync(context.Background(), false))
	view.reset()

	engine.UserScrolled(true)
	assert.Equal(t, []string{"dismiss"}, view.log())

	// Pending is gone: a later merge with no news shows nothing.
	view.reset()
	require.NoError(t, engine.Resync(context.Background(), false))
	assert.Empty(t, view.log())
}

func TestAcknowledgePending_JumpsWithoutFetching(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	engine.UserScrolled(false)

	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2))
	require.NoError(t, engine.Resync(context.Background(), false))

	before := fetcher.fetchCount()
	view.reset()

	engine.AcknowledgePending()

	assert.Equal(t, []string{"dismiss", "scroll"}, view.log())
	assert.Equal(t, before, fetcher.fetchCount(), "acknowledging must not re-fetch")
}

// --- stale fetches ---

func TestMerge_DiscardsBatchForSwitchedConversation(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))
	fetcher.set("carol")

	require.NoError(t, engine.Open(context.Background(), "bob"))
	staleGen := engine.generation

	require.NoError(t, engine.Open(context.Background(), "carol"))
	view.reset()

	// A fetch that started before the switch delivers late.
	engine.merge("bob", staleGen, []protocol.Message{msg("bob", "late", 9)}, false)
	assert.Empty(t, view.log(), "stale batch must not touch the new view")
}

func TestMerge_DiscardsBatchAfterClose(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob")

	require.NoError(t, engine.Open(context.Background(), "bob"))
	staleGen := engine.generation
	engine.Close()
	view.reset()

	engine.merge("bob", staleGen, []protocol.Message{msg("bob", "late", 9)}, false)
	assert.Empty(t, view.log())
}

// --- Tick ---

func TestTick_NoopWithoutConversation(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)

	engine.Tick(context.Background())
	assert.Zero(t, fetcher.fetchCount())
}

func TestTick_SwallowsFetchErrors(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("bob")

	require.NoError(t, engine.Open(context.Background(), "bob"))
	fetcher.fail(fmt.Errorf("backend down"))

	engine.Tick(context.Background())
	engine.Tick(context.Background())

	// Still open, still polling; a recovered backend resumes normally.
	fetcher.fail(nil)
	fetcher.set("bob", msg("bob", "m1", 1))
	engine.Tick(context.Background())
	assert.Equal(t, "bob", engine.Conversation())
}

func TestTick_PausedSkipsFetch(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("bob")

	require.NoError(t, engine.Open(context.Background(), "bob"))
	engine.SetPaused(true)

	before := fetcher.fetchCount()
	engine.Tick(context.Background())
	assert.Equal(t, before, fetcher.fetchCount())

	// Explicit resync is not gated on pause.
	require.NoError(t, engine.Resync(context.Background(), false))
	assert.Equal(t, before+1, fetcher.fetchCount())

	engine.SetPaused(false)
	engine.Tick(context.Background())
	assert.Equal(t, before+2, fetcher.fetchCount())
}

// --- push notifications ---

func TestHandleNotification_RelatedMessageTriggersRefresh(t *testing.T) {
	engine, fetcher, view := newTestEngine(t)
	fetcher.set("bob", msg("bob", "m1", 1))

	require.NoError(t, engine.Open(context.Background(), "bob"))
	view.reset()

	fetcher.set("bob", msg("bob", "m1", 1), msg("bob", "m2", 2))
	engine.HandleNotification(context.Background(), protocol.Notification{
		Type:    protocol.NotifyNewMessage,
		Message: &protocol.Message{Sender: "BOB", Recipient: "alice", Text: "m2", Timestamp: 2},
	})

	assert.Contains(t, view.log(), "append:m2")
	assert.Contains(t, view.log(), "scroll", "push refresh is forced")
}

func TestHandleNotification_MatchesOnRecipientToo(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("equipo")

	require.NoError(t, engine.Open(context.Background(), "equipo"))
	before := fetcher.fetchCount()

	engine.HandleNotification(context.Background(), protocol.Notification{
		Type:    protocol.NotifyNewMessage,
		Message: &protocol.Message{Sender: "carol", Recipient: "Equipo", Text: "hi", Timestamp: 2},
	})

	assert.Equal(t, before+1, fetcher.fetchCount())
}

func TestHandleNotification_UnrelatedMessageIgnored(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("bob")

	require.NoError(t, engine.Open(context.Background(), "bob"))
	before := fetcher.fetchCount()

	engine.HandleNotification(context.Background(), protocol.Notification{
		Type:    protocol.NotifyNewMessage,
		Message: &protocol.Message{Sender: "carol", Recipient: "dave", Text: "hi", Timestamp: 2},
	})

	assert.Equal(t, before, fetcher.fetchCount())
}

func TestHandleNotification_NoConversationIgnored(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)

	engine.HandleNotification(context.Background(), protocol.Notification{
		Type:    protocol.NotifyNewMessage,
		Message: &protocol.Message{Sender: "bob", Recipient: "alice", Text: "hi", Timestamp: 2},
	})

	assert.Zero(t, fetcher.fetchCount())
}

func TestHandleNotification_PresenceAndUnknownIgnored(t *testing.T) {
	engine, fetcher, _ := newTestEngine(t)
	fetcher.set("bob")
	require.NoError(t, engine.Open(context.Background(), "bob"))
	before := fetcher.fetchCount()

	engine.HandleNotification(context.Background(), protocol.Notification{Type: protocol.NotifyUserJoined, User: "carol"})
	engine.HandleNotification(context.Background(), protocol.Notification{Type: protocol.NotifyUserLeft, User: "carol"})
	engine.HandleNotification(context.Background(), protocol.Notification{Type: "shiny_new_thing"})
	engine.HandleNotification(context.Background(), protocol.Notification{Type: protocol.NotifyNewMessage})

	assert.Equal(t, before, fetcher.fetchCount())
}

// --- mock-driven error paths ---

func TestResync_FetcherErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := NewMockFetcher(ctrl)
	view := NewMockView(ctrl)

	engine := New(Config{Fetcher: fetcher, View: view, Username: "Alice", Logger: slog.Default()})

	fetcher.EXPECT().FetchHistory(gomock.Any(), "alice", "bob").Return(nil, nil)
	view.EXPECT().DismissPending()
	view.EXPECT().ScrollToBottom()
	require.NoError(t, engine.Open(context.Background(), "bob"))

	fetcher.EXPECT().FetchHistory(gomock.Any(), "alice", "bob").Return(nil, fmt.Errorf("timeout"))

	err := engine.Resync(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
	"github.com/alexjbarnes/chat-sync/internal/protocol"
)

// Service is the backend surface the HTTP API relays to. *Client
// implements it; tests substitute a stub.
type Service interface {
	Login(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]string, error)
	ListGroups(ctx context.Context, username string) ([]string, error)
	CreateGroup(ctx context.Context, group string) error
	JoinGroup(ctx context.Context, username, group string) error
	SendText(ctx context.Context, username, recipient, text string) error
	SendVoiceNote(ctx context.Context, username, recipient, fileName string, content []byte) error
	DeleteChat(ctx context.Context, username, recipient string) error
	FetchHistory(ctx context.Context, username, recipient string) ([]protocol.Message, error)
	FetchAudio(ctx context.Context, file string) ([]byte, string, error)
}

// MuxConfig holds dependencies for building the HTTP mux.
type MuxConfig struct {
	Backend Service
	Logger  *slog.Logger
}

// NewMux builds the HTTP mux exposing the bridge API. Requests are
// validated before the backend is dialed; backend transport failures
// map to 500, backend-reported errors are relayed in the envelope.
func NewMux(cfg MuxConfig) *http.ServeMux {
	s := &server{backend: cfg.Backend, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("GET /api/groups/{username}", s.handleListGroups)
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("POST /api/groups/join", s.handleJoinGroup)
	mux.HandleFunc("POST /api/messages", s.handleSendText)
	mux.HandleFunc("DELETE /api/messages", s.handleDeleteChat)
	mux.HandleFunc("GET /api/history/{recipient}", s.handleFetchHistory)
	mux.HandleFunc("POST /api/voicenote", s.handleSendVoiceNote)
	mux.HandleFunc("GET /api/audio", s.handleFetchAudio)

	return mux
}

type server struct {
	backend Service
	logger  *slog.Logger
}

// apiRequest covers the JSON bodies of all POST/DELETE endpoints; each
// handler checks the fields its action requires.
type apiRequest struct {
	Username  string `json:"username"`
	Recipient string `json:"recipient"`
	Group     string `json:"group"`
	Text      string `json:"text"`
	FileName  string `json:"fileName"`
	Content   string `json:"content"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type usersResponse struct {
	Status string   `json:"status"`
	Users  []string `json:"users"`
}

type groupsResponse struct {
	Status string   `json:"status"`
	Groups []string `json:"groups"`
}

type historyResponse struct {
	Status   string             `json:"status"`
	Messages []protocol.Message `json:"messages"`
}

type audioResponse struct {
	Status  string `json:"status"`
	Content string `json:"content"`
	Mime    string `json:"mime"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if req.Username == "" {
		writeClientError(w, "username required")
		return
	}

	if err := s.backend.Login(r.Context(), req.Username); err != nil {
		s.relayError(w, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusOK})
}

func (s *server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.backend.ListUsers(r.Context())
	if err != nil {
		s.relayError(w, "list_users", err)
		return
	}
	if users == nil {
		users = []string{}
	}

	writeJSON(w, http.StatusOK, usersResponse{Status: protocol.StatusOK, Users: users})
}

func (s *server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	groups, err := s.backend.ListGroups(r.Context(), username)
	if err != nil {
		s.relayError(w, "list_groups", err)
		return
	}
	if groups == nil {
		groups = []string{}
	}

	writeJSON(w, http.StatusOK, groupsResponse{Status: protocol.StatusOK, Groups: groups})
}

func (s *server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if req.Group == "" {
		writeClientError(w, "group required")
		return
	}

	if err := s.backend.CreateGroup(r.Context(), req.Group); err != nil {
		s.relayError(w, "create_group", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusOK})
}

func (s *server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Group == "" {
		writeClientError(w, "username and group required")
		return
	}

	if err := s.backend.JoinGroup(r.Context(), req.Username, req.Group); err != nil {
		s.relayError(w, "join_group", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusOK})
}

func (s *server) handleSendText(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Recipient == "" || req.Text == "" {
		writeClientError(w, "username, recipient and text required")
		return
	}

	if err := s.backend.SendText(r.Context(), req.Username, req.Recipient, req.Text); err != nil {
		s.relayError(w, "send_text", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusOK})
}

func (s *server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Recipient == "" {
		writeClientError(w, "username and recipient required")
		return
	}

	if err := s.backend.DeleteChat(r.Context(), req.Username, req.Recipient); err != nil {
		s.relayError(w, "delete_chat", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusOK, Message: "conversation deleted"})
}

func (s *server) handleFetchHistory(w http.ResponseWriter, r *http.Request) {
	recipient := r.PathValue("recipient")

	username := r.URL.Query().Get("username")
	if username == "" {
		writeClientError(w, "username required")
		return
	}

	messages, err := s.backend.FetchHistory(r.Context(), username, recipient)
	if err != nil {
		s.relayError(w, "fetch_history", err)
		return
	}
	if messages == nil {
		messages = []protocol.Message{}
	}

	writeJSON(w, http.StatusOK, historyResponse{Status: protocol.StatusOK, Messages: messages})
}

func (s *server) handleSendVoiceNote(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeBody(w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Recipient == "" || req.FileName == "" || req.Content == "" {
		writeClientError(w, "username, recipient, fileName and content required")
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeClientError(w, "invalid base64")
		return
	}

	if err := s.backend.SendVoiceNote(r.Context(), req.Username, req.Recipient, req.FileName, content); err != nil {
		s.relayError(w, "send_voice", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusOK})
}

func (s *server) handleFetchAudio(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		writeClientError(w, "file required")
		return
	}

	content, mime, err := s.backend.FetchAudio(r.Context(), file)
	if err != nil {
		s.relayError(w, "fetch_audio", err)
		return
	}

	writeJSON(w, http.StatusOK, audioResponse{
		Status:  protocol.StatusOK,
		Content: base64.StdEncoding.EncodeToString(content),
		Mime:    mime,
	})
}

// decodeBody parses a JSON request body, answering 400 on failure.
func (s *server) decodeBody(w http.ResponseWriter, r *http.Request) (apiRequest, bool) {
	var req apiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeClientError(w, "invalid JSON body")
		return apiRequest{}, false
	}

	return req, true
}

// relayError distinguishes backend-reported errors, which are relayed in
// the response envelope like the original proxy did, from transport and
// decode failures, which map to a generic server error.
func (s *server) relayError(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, apperrors.ErrBackendStatus) {
		msg := strings.TrimPrefix(err.Error(), apperrors.ErrBackendStatus.Error()+": ")
		writeJSON(w, http.StatusOK, statusResponse{Status: protocol.StatusError, Message: msg})
		return
	}

	s.logger.Warn("backend call failed",
		slog.String("action", action),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, statusResponse{
		Status:  protocol.StatusError,
		Message: "backend call failed",
	})
}

func writeClientError(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, statusResponse{Status: protocol.StatusError, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

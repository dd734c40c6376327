package protocol

import (
	"fmt"

	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
)

// Actions understood by the backend. Each bridge call names exactly one.
const (
	ActionLogin        = "login"
	ActionListUsers    = "list_users"
	ActionListGroups   = "list_groups"
	ActionCreateGroup  = "create_group"
	ActionJoinGroup    = "join_group"
	ActionSendText     = "send_text"
	ActionSendVoice    = "send_voice"
	ActionDeleteChat   = "delete_chat"
	ActionFetchHistory = "fetch_history"
	ActionFetchAudio   = "fetch_audio"
)

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Request is the envelope written to the backend, one JSON line per
// call. Action is always set; the remaining fields depend on it.
type Request struct {
	Action    string `json:"action"`
	Username  string `json:"username,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Group     string `json:"group,omitempty"`
	Text      string `json:"text,omitempty"`
	FileName  string `json:"fileName,omitempty"`
	Content   string `json:"content,omitempty"` // base64 voice note payload
	File      string `json:"file,omitempty"`
}

// Response is the envelope the backend replies with: a status
// discriminator plus the action-specific payload.
type Response struct {
	Status   string    `json:"status"`
	Message  string    `json:"message,omitempty"`
	Users    []string  `json:"users,omitempty"`
	Groups   []string  `json:"groups,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	Content  string    `json:"content,omitempty"` // base64 audio payload
	Mime     string    `json:"mime,omitempty"`
}

// OK reports whether the backend accepted the request.
func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// Err converts an error-status response into an error, nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	if r.Message == "" {
		return apperrors.ErrBackendStatus
	}
	return fmt.Errorf("%w: %s", apperrors.ErrBackendStatus, r.Message)
}

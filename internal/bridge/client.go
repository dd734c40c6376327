package bridge

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/alexjbarnes/chat-sync/internal/protocol"
)

// Client exposes one typed wrapper per backend action. Each wrapper maps
// its parameters onto a request envelope, performs a single call, and
// checks the response status.
type Client struct {
	caller *Caller
}

// NewClient wraps a caller with the typed action surface.
func NewClient(caller *Caller) *Client {
	return &Client{caller: caller}
}

// Login registers the username with the backend, creating it on first
// sight (name-only auto-registration).
func (c *Client) Login(ctx context.Context, username string) error {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:   protocol.ActionLogin,
		Username: username,
	})
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}

	return resp.Err()
}

// ListUsers returns all registered usernames.
func (c *Client) ListUsers(ctx context.Context) ([]string, error) {
	resp, err := c.caller.Call(ctx, protocol.Request{Action: protocol.ActionListUsers})
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	return resp.Users, nil
}

// ListGroups returns the groups the user belongs to.
func (c *Client) ListGroups(ctx context.Context, username string) ([]string, error) {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:   protocol.ActionListGroups,
		Username: username,
	})
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	return resp.Groups, nil
}

// CreateGroup creates a group.
func (c *Client) CreateGroup(ctx context.Context, group string) error {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action: protocol.ActionCreateGroup,
		Group:  group,
	})
	if err != nil {
		return fmt.Errorf("creating group: %w", err)
	}

	return resp.Err()
}

// JoinGroup adds the user to a group.
func (c *Client) JoinGroup(ctx context.Context, username, group string) error {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:   protocol.ActionJoinGroup,
		Username: username,
		Group:    group,
	})
	if err != nil {
		return fmt.Errorf("joining group: %w", err)
	}

	return resp.Err()
}

// SendText sends a text message to a peer or group.
func (c *Client) SendText(ctx context.Context, username, recipient, text string) error {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:    protocol.ActionSendText,
		Username:  username,
		Recipient: recipient,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	return resp.Err()
}

// SendVoiceNote uploads a recorded voice note. The content travels
// base64-encoded in the envelope.
func (c *Client) SendVoiceNote(ctx context.Context, username, recipient, fileName string, content []byte) error {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:    protocol.ActionSendVoice,
		Username:  username,
		Recipient: recipient,
		FileName:  fileName,
		Content:   base64.StdEncoding.EncodeToString(content),
	})
	if err != nil {
		return fmt.Errorf("sending voice note: %w", err)
	}

	return resp.Err()
}

// DeleteChat removes the conversation history between the user and a
// peer or group.
func (c *Client) DeleteChat(ctx context.Context, username, recipient string) error {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:    protocol.ActionDeleteChat,
		Username:  username,
		Recipient: recipient,
	})
	if err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}

	return resp.Err()
}

// FetchHistory returns the full current history of the conversation
// between the user and a peer or group, ordered by the backend.
func (c *Client) FetchHistory(ctx context.Context, username, recipient string) ([]protocol.Message, error) {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action:    protocol.ActionFetchHistory,
		Username:  username,
		Recipient: recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	return resp.Messages, nil
}

// FetchAudio downloads a stored voice note, returning the decoded audio
// bytes and their mime type.
func (c *Client) FetchAudio(ctx context.Context, file string) ([]byte, string, error) {
	resp, err := c.caller.Call(ctx, protocol.Request{
		Action: protocol.ActionFetchAudio,
		File:   file,
	})
	if err != nil {
		return nil, "", fmt.Errorf("fetching audio: %w", err)
	}
	if err := resp.Err(); err != nil {
		return nil, "", err
	}

	content, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil {
		return nil, "", fmt.Errorf("decoding audio content: %w", err)
	}

	return content, resp.Mime, nil
}

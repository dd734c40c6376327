// Package bridge converts stateless calls into single request/response
// exchanges with the backend chat service, and exposes the HTTP API
// that web clients consume.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	apperrors "github.com/alexjbarnes/chat-sync/internal/errors"
	"github.com/alexjbarnes/chat-sync/internal/protocol"
	"github.com/tidwall/gjson"
)

const defaultCallTimeout = 10 * time.Second

// Caller performs one request/response exchange per call against the
// backend's line-JSON listener. Every call opens its own connection;
// there is no reuse, no multiplexing, and no shared state between
// calls, so concurrent calls cannot affect each other.
type Caller struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
	logger  *slog.Logger
}

// NewCaller creates a caller for the backend at addr. The timeout bounds
// a whole call (dial, write, read-to-close); zero selects the default.
func NewCaller(addr string, timeout time.Duration, logger *slog.Logger) *Caller {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Caller{
		addr:    addr,
		timeout: timeout,
		logger:  logger,
	}
}

// Call writes req as a single newline-terminated JSON document, then
// accumulates everything the backend sends until it closes the
// connection. The accumulated bytes must parse as exactly one response
// document; the backend, not the bridge, decides the transaction
// boundary by closing.
func (c *Caller) Call(ctx context.Context, req protocol.Request) (*protocol.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("dialing backend: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("setting deadline: %w", err)
		}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", req.Action, err)
	}
	payload = append(payload, '\n')

	if _, err := conn.Write(payload); err != nil {
		return nil, fmt.Errorf("writing %s request: %w", req.Action, err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", req.Action, err)
	}

	c.logger.Debug("backend call",
		slog.String("action", req.Action),
		slog.Int("reply_bytes", len(raw)),
	)

	return decodeResponse(req.Action, raw)
}

// decodeResponse parses exactly one JSON document from raw. An empty
// reply, a reply with trailing data beyond the first document, or a
// document without a status discriminator all violate the wire contract.
func decodeResponse(action string, raw []byte) (*protocol.Response, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty reply to %s", apperrors.ErrBadResponse, action)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))

	var resp protocol.Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decoding reply to %s: %v", apperrors.ErrBadResponse, action, err)
	}

	if dec.More() {
		return nil, fmt.Errorf("%w: more than one document in reply to %s", apperrors.ErrBadResponse, action)
	}

	if !gjson.GetBytes(raw, "status").Exists() {
		return nil, fmt.Errorf("%w: reply to %s has no status", apperrors.ErrBadResponse, action)
	}

	return &resp, nil
}

// Package platform holds the chat platform adapters the executor drives.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/Wikid82/warden/internal/moderation"
	"github.com/Wikid82/warden/internal/version"
)

// Bridge talks JSON over HTTP to the bot process that owns the platform
// connection. Each action is one POST under /tenants/{tenant}/.
type Bridge struct {
	baseURL string
	client  *http.Client
}

// NewBridge returns a client for the bridge at baseURL.
func NewBridge(baseURL string, timeout time.Duration) *Bridge {
	return &Bridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type actionRequest struct {
	Reason     string `json:"reason,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Amount     int    `json:"amount,omitempty"`
	Role       string `json:"role,omitempty"`
}

type actionResponse struct {
	Deleted int    `json:"deleted"`
	Error   string `json:"error"`
}

func (b *Bridge) Mute(ctx context.Context, tenantID, userID string, d time.Duration, reason string) error {
	_, err := b.post(ctx, memberPath(tenantID, userID, "mute"), actionRequest{Reason: reason, DurationMS: d.Milliseconds()})
	return err
}

func (b *Bridge) Unmute(ctx context.Context, tenantID, userID, reason string) error {
	_, err := b.post(ctx, memberPath(tenantID, userID, "unmute"), actionRequest{Reason: reason})
	return err
}

func (b *Bridge) Kick(ctx context.Context, tenantID, userID, reason string) error {
	_, err := b.post(ctx, memberPath(tenantID, userID, "kick"), actionRequest{Reason: reason})
	return err
}

func (b *Bridge) Ban(ctx context.Context, tenantID, userID, reason string, retention time.Duration) error {
	_, err := b.post(ctx, memberPath(tenantID, userID, "ban"), actionRequest{Reason: reason, DurationMS: retention.Milliseconds()})
	return err
}

func (b *Bridge) Unban(ctx context.Context, tenantID, userID, reason string) error {
	_, err := b.post(ctx, memberPath(tenantID, userID, "unban"), actionRequest{Reason: reason})
	return err
}

func (b *Bridge) Purge(ctx context.Context, tenantID, channelID string, amount int) (int, error) {
	resp, err := b.post(ctx, channelPath(tenantID, channelID, "purge"), actionRequest{Amount: amount})
	if err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (b *Bridge) LockChannel(ctx context.Context, tenantID, channelID, reason string) error {
	_, err := b.post(ctx, channelPath(tenantID, channelID, "lock"), actionRequest{Reason: reason})
	return err
}

func (b *Bridge) UnlockChannel(ctx context.Context, tenantID, channelID, reason string) error {
	_, err := b.post(ctx, channelPath(tenantID, channelID, "unlock"), actionRequest{Reason: reason})
	return err
}

func (b *Bridge) AssignRole(ctx context.Context, tenantID, userID, role string) error {
	_, err := b.post(ctx, memberPath(tenantID, userID, "roles"), actionRequest{Role: role})
	return err
}

func memberPath(tenantID, userID, action string) string {
	return fmt.Sprintf("/tenants/%s/members/%s/%s", neturl.PathEscape(tenantID), neturl.PathEscape(userID), action)
}

func channelPath(tenantID, channelID, action string) string {
	return fmt.Sprintf("/tenants/%s/channels/%s/%s", neturl.PathEscape(tenantID), neturl.PathEscape(channelID), action)
}

func (b *Bridge) post(ctx context.Context, path string, body actionRequest) (*actionResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &moderation.Error{Code: moderation.CodeInternal, Message: "could not encode platform request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, &moderation.Error{Code: moderation.CodeTransient, Message: "could not build platform request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	var out actionResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &out, nil
	}
	return nil, statusError(resp.StatusCode, out.Error)
}

func transportError(err error) *moderation.Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &moderation.Error{Code: moderation.CodeTransient, Message: "the platform did not answer in time", Err: err}
	}
	return &moderation.Error{Code: moderation.CodeTransient, Message: "the platform is unreachable", Err: err}
}

// statusError maps bridge status codes onto executor error codes.
func statusError(status int, detail string) *moderation.Error {
	msg := detail
	switch {
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "the member or channel no longer exists"
		}
		return &moderation.Error{Code: moderation.CodeNotFound, Message: msg}
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "the platform refused the action"
		}
		return &moderation.Error{Code: moderation.CodeAdapterForbidden, Message: msg}
	default:
		if msg == "" {
			msg = fmt.Sprintf("the platform returned status %d", status)
		}
		return &moderation.Error{Code: moderation.CodeTransient, Message: msg}
	}
}

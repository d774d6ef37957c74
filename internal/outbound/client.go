package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yuchenlin/chatgate-go/internal/credential"
	cgerrors "github.com/yuchenlin/chatgate-go/internal/errors"
)

const (
	replyPath = "/v2/bot/message/reply"
	tokenPath = "/v2/oauth/token"

	maxErrorBodyBytes = 2048
)

// Client talks to the provider messaging API. It implements both the
// reply call consumed by the Dispatcher and credential.Issuer for the
// token endpoint.
type Client struct {
	baseURL       string
	channelID     string
	channelSecret string
	credentialTTL time.Duration
	httpClient    *http.Client
}

// NewClient creates a provider API client.
func NewClient(baseURL, channelID, channelSecret string, credentialTTL, timeout time.Duration) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		channelID:     channelID,
		channelSecret: channelSecret,
		credentialTTL: credentialTTL,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Reply delivers a reply batch for the given reply token.
// A non-nil return is always a *SendError carrying the classification the
// dispatcher's retry loop needs.
func (c *Client) Reply(ctx context.Context, accessToken, replyToken string, payloads []map[string]any) error {
	body, err := json.Marshal(map[string]any{
		"replyToken": replyToken,
		"messages":   payloads,
	})
	if err != nil {
		return cgerrors.NewSendError(0, 1, "", fmt.Errorf("marshal reply: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+replyPath, bytes.NewReader(body))
	if err != nil {
		return cgerrors.NewSendError(0, 1, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cgerrors.NewSendError(0, 1, "", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet := readErrorBody(resp.Body)
	return cgerrors.NewSendError(resp.StatusCode, 1, snippet, classifyReplyError(resp.StatusCode, snippet))
}

// classifyReplyError maps provider error bodies onto reply-handle
// sentinels so the dispatcher never retries a dead token.
func classifyReplyError(status int, body string) error {
	if status != http.StatusBadRequest {
		return nil
	}
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "expired"):
		return cgerrors.ErrReplyHandleExpired
	case strings.Contains(lower, "invalid reply token"), strings.Contains(lower, "already"):
		return cgerrors.ErrReplyHandleConsumed
	default:
		return nil
	}
}

func readErrorBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return string(b)
}

// Issue obtains a fresh channel access token via the client-credentials
// grant. Implements credential.Issuer.
func (c *Client) Issue(ctx context.Context) (credential.Credential, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.channelID},
		"client_secret": {c.channelSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return credential.Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return credential.Credential{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return credential.Credential{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return credential.Credential{}, fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return credential.Credential{}, fmt.Errorf("token endpoint returned empty access_token")
	}

	now := time.Now()
	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = c.credentialTTL
	}

	return credential.Credential{
		Token:     out.AccessToken,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

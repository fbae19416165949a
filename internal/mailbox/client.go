// Package mailbox pulls report CSVs delivered as Gmail attachments,
// for accounts where the analytics queue API is not available.
package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ignite/domain-performance/internal/config"
)

const gmailBase = "https://gmail.googleapis.com/gmail/v1/users/me"

// Client is a minimal Gmail REST client scoped to listing messages and
// downloading attachments. Authentication uses a long-lived refresh
// token; the oauth2 transport mints access tokens as needed.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a Gmail client from config. The returned client owns
// an oauth2 transport bound to ctx.
func NewClient(ctx context.Context, cfg config.GmailConfig) *Client {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	client := oauthCfg.Client(ctx, token)
	client.Timeout = cfg.Timeout()
	return &Client{baseURL: gmailBase, httpClient: client}
}

// MessageRef is one entry of a message list response.
type MessageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// PartBody is the body descriptor of a MIME part. Large attachments
// carry an AttachmentID to fetch separately; small ones inline Data.
type PartBody struct {
	AttachmentID string `json:"attachmentId"`
	Data         string `json:"data"`
}

// MessagePart is one MIME part of a full-format message.
type MessagePart struct {
	Filename string        `json:"filename"`
	Body     PartBody      `json:"body"`
	Parts    []MessagePart `json:"parts"`
}

// Message is a full-format Gmail message.
type Message struct {
	ID      string `json:"id"`
	Payload struct {
		Parts []MessagePart `json:"parts"`
	} `json:"payload"`
}

// ListMessages returns up to maxResults message refs matching the Gmail
// search query, newest first.
func (c *Client) ListMessages(ctx context.Context, query string, maxResults int) ([]MessageRef, error) {
	params := url.Values{
		"q":          {query},
		"maxResults": {fmt.Sprintf("%d", maxResults)},
	}
	var out struct {
		Messages []MessageRef `json:"messages"`
	}
	if err := c.get(ctx, "/messages?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return out.Messages, nil
}

// GetMessage fetches one message in full format.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := c.get(ctx, "/messages/"+id+"?format=full", &msg); err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}
	return &msg, nil
}

// GetAttachment downloads and decodes one attachment's bytes.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	var out struct {
		Data string `json:"data"`
		Size int    `json:"size"`
	}
	if err := c.get(ctx, "/messages/"+messageID+"/attachments/"+attachmentID, &out); err != nil {
		return nil, fmt.Errorf("fetching attachment: %w", err)
	}
	if out.Data == "" {
		return nil, fmt.Errorf("attachment %s has no inline data", attachmentID)
	}
	return decodeBase64URL(out.Data)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}
	return json.Unmarshal(body, out)
}

// decodeBase64URL decodes Gmail's base64url payloads, tolerating both
// missing padding and standard-alphabet input.
func decodeBase64URL(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "-", "+")
	s = strings.ReplaceAll(s, "_", "/")
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding attachment data: %w", err)
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

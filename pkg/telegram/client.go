package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/asala-storefront/pkg/errors"
)

const (
	defaultBaseURL              = "https://api.telegram.org"
	sendMessageMethod           = "sendMessage"
	responseBodyReadLimit int64 = 4096

	// ParseModeMarkdown selects Telegram's legacy Markdown formatting.
	ParseModeMarkdown = "Markdown"
)

var (
	errTokenRequired = errors.New("telegram bot token is required")
)

// Client talks to the Telegram Bot API on behalf of a single bot.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Bot API host, mainly for tests and local proxies.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds each request. Zero keeps the transport defaults.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// NewClient builds a Bot API client for the given token.
func NewClient(token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		token:      trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// SendMessageRequest is the sendMessage body.
type SendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// Message is the subset of the sent message returned by the API.
type Message struct {
	MessageID int64 `json:"message_id"`
	Date      int64 `json:"date"`
}

// APIError is returned when the Bot API answers with a non-success status.
type APIError struct {
	Status      int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: status %d", e.Status)
	}
	return fmt.Sprintf("telegram: status %d: %s", e.Status, e.Description)
}

// StatusCode exposes the HTTP status for error dumps.
func (e *APIError) StatusCode() int {
	return e.Status
}

// IsRejected reports whether err came from a Bot API response rather than
// the transport.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type apiEnvelope struct {
	OK          bool            `json:"ok"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// SendMessage posts text to a chat. Exactly one HTTP request is issued.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "telegram client not configured")
	}
	if strings.TrimSpace(req.ChatID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chat id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal send message request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(sendMessageMethod), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, c.redact(err), "build send message request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, c.redact(err), "execute send message request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))

	var envelope apiEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.ErrorCode = envelope.ErrorCode
			apiErr.Description = envelope.Description
		} else {
			apiErr.Description = strings.TrimSpace(string(body))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, apiErr, "send message rejected")
	}

	msg := &Message{}
	if decodeErr == nil && len(envelope.Result) > 0 {
		_ = json.Unmarshal(envelope.Result, msg)
	}
	return msg, nil
}

func (c *Client) methodURL(method string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	return fmt.Sprintf("%s/bot%s/%s", trimmed, c.token, method)
}

// redact strips the bot token from transport errors, which embed the URL.
func (c *Client) redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, c.token, "<redacted>"),
			Err: urlErr.Err,
		}
	}
	return err
}

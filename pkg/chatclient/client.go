package chatclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// State of the current exchange.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateFailed
)

// Config for a relay client.
type Config struct {
	// BaseURL of the API, e.g. http://localhost:8000/api/v1.
	BaseURL string
	// Token is sent as a bearer credential when set.
	Token      string
	HTTPClient *http.Client
}

// Client drives one conversation against the chat relay endpoint. Methods
// are safe for concurrent use; Send blocks until the stream ends.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string

	mu             sync.Mutex
	state          State
	conversationID string
	transcript     Transcript
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{httpClient: hc, baseURL: cfg.BaseURL, token: cfg.Token}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conversationID
}

// Messages returns a snapshot of the transcript.
func (c *Client) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Messages()
}

type wireMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

type sendRequest struct {
	ConversationID string        `json:"conversation_id,omitempty"`
	Messages       []wireMessage `json:"messages"`
}

// imageDataURL encodes attached bytes as a data URL the relay forwards to the
// model as an image content part.
func imageDataURL(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// Send appends an optimistic user message, POSTs the full history and reads
// the reply stream incrementally. Any transport or decode failure, and any
// terminal error frame, marks the triggering user message failed. There is
// no automatic retry; cancellation happens only through ctx.
func (c *Client) Send(ctx context.Context, text string, image []byte) error {
	c.mu.Lock()
	index := c.transcript.appendUser(text, image)
	c.state = StateSending
	req := sendRequest{ConversationID: c.conversationID}
	for _, m := range c.transcript.msgs {
		req.Messages = append(req.Messages, wireMessage{
			Role:     m.Role,
			Content:  m.Raw,
			ImageURL: imageDataURL(m.Image),
		})
	}
	c.mu.Unlock()

	err := c.stream(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.transcript.markError(index)
		c.state = StateFailed
		return err
	}
	c.transcript.finish()
	c.state = StateIdle
	return nil
}

// Retry removes the failed user message at index and re-sends its text and
// image.
func (c *Client) Retry(ctx context.Context, index int) error {
	c.mu.Lock()
	m, err := c.transcript.removeFailed(index)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = StateIdle
	c.mu.Unlock()

	return c.Send(ctx, m.Raw, m.Image)
}

func (c *Client) stream(ctx context.Context, req sendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/stream", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chat request failed (status %d): %s", resp.StatusCode, msg)
	}

	c.mu.Lock()
	c.state = StateStreaming
	c.mu.Unlock()

	var dec decoder
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if err := c.handleEvents(dec.feed(buf[:n])); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading stream: %w", readErr)
		}
	}
	return c.handleEvents(dec.flush())
}

func (c *Client) handleEvents(events []event) error {
	for _, ev := range events {
		if ev.Error != nil {
			return fmt.Errorf("stream error: %s", ev.Error.Message)
		}

		c.mu.Lock()
		if ev.ConversationID != "" {
			c.conversationID = ev.ConversationID
		}
		for _, choice := range ev.Choices {
			if choice.Delta.Content != "" {
				c.transcript.appendDelta(choice.Delta.Content)
			}
		}
		c.mu.Unlock()
	}
	return nil
}

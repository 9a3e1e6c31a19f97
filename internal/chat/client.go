package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// StreamError is an error frame sent by the server.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string { return "chat: " + e.Message }

// ConnectionError means the stream could not be opened or broke mid-way.
type ConnectionError struct {
	StatusCode int
	Err        error
}

func (e *ConnectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("chat stream: unexpected status %d", e.StatusCode)
	}
	return "chat stream: " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CloseKind classifies how a stream ended.
type CloseKind int

const (
	CloseNormal CloseKind = iota
	CloseConnectionError
)

// ClassifyClose decides whether a stream that stopped after frames frames, with readErr
// from the final read, ended normally. A clean end after a terminal frame, or a server
// close after at least one frame, is normal. A close before any frame or a broken read is not.
func ClassifyClose(frames int, terminal bool, readErr error) CloseKind {
	if terminal {
		return CloseNormal
	}
	if errors.Is(readErr, io.EOF) && frames > 0 {
		return CloseNormal
	}
	return CloseConnectionError
}

// Client sends chat messages and streams the assistant's reply into a Store.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Store   *Store

	// OnEvent, when set, sees every decoded event after the store has applied it.
	OnEvent func(Event)
}

func NewClient(baseURL, token string, store *Store) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    http.DefaultClient,
		Store:   store,
	}
}

// StreamURL builds the stream endpoint URL. The token travels as a query parameter
// because browsers cannot set headers on an EventSource.
func (c *Client) StreamURL(conversationID, message string, attachmentIDs []string) string {
	q := url.Values{}
	q.Set("conversation_id", conversationID)
	q.Set("message", message)
	if len(attachmentIDs) > 0 {
		q.Set("attachment_ids", strings.Join(attachmentIDs, ","))
	}
	if c.Token != "" {
		q.Set("token", c.Token)
	}
	return c.BaseURL + "/api/chat/stream?" + q.Encode()
}

// Send opens one stream for message and blocks until it ends. It returns a *StreamError
// for an error frame and a *ConnectionError when the connection failed.
func (c *Client) Send(ctx context.Context, conversationID, message string, attachmentIDs []string) error {
	c.Store.Begin(message, attachmentIDs)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.StreamURL(conversationID, message, attachmentIDs), nil)
	if err != nil {
		return c.fail(&ConnectionError{Err: err})
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return c.fail(&ConnectionError{Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(&ConnectionError{StatusCode: resp.StatusCode})
	}

	frames := NewFrameReader(resp.Body)
	seen := 0
	for {
		data, err := frames.Next()
		if err != nil {
			if ClassifyClose(seen, false, err) == CloseNormal {
				c.Store.End()
				return nil
			}
			if errors.Is(err, io.EOF) {
				err = errors.New("stream closed before any event")
			}
			return c.fail(&ConnectionError{Err: err})
		}
		seen++

		ev, err := DecodeEvent(data)
		if err != nil {
			// Unknown or malformed frames are skipped; the stream itself is still healthy.
			continue
		}
		c.Store.Apply(ev)
		if c.OnEvent != nil {
			c.OnEvent(ev)
		}
		if ev.Type.Terminal() {
			if ev.Type == EventError {
				return &StreamError{Message: ev.Error}
			}
			return nil
		}
	}
}

func (c *Client) fail(err error) error {
	c.Store.Fail(err)
	return err
}

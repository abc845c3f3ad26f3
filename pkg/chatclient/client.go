// Package chatclient is the Go client for the comments service: it joins
// subject threads over the live channel, posts through the durable path and
// runs the periodic re-fetch loop that feeds each subject's timeline.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cwrk-planet/comments-service/pkg/timeline"

	"github.com/gorilla/websocket"
)

// frame mirrors the live-channel wire format.
type frame struct {
	Type      string    `json:"type,omitempty"`
	ID        int64     `json:"id,omitempty"`
	SubjectID int64     `json:"subjectId"`
	Sender    string    `json:"sender,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type messageItem struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subjectId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Config struct {
	BaseURL string // durable path, e.g. http://host:8082
	WSURL   string // live channel, e.g. ws://host:8082/ws
	Sender  string
	Token   string // optional bearer token for the durable path

	RefetchEvery  time.Duration // observed 5-15s depending on call site
	ConfirmWindow time.Duration

	HTTPClient *http.Client
}

type Client struct {
	cfg  Config
	conn *websocket.Conn
	hc   *http.Client

	writeMu sync.Mutex

	mu        sync.Mutex
	timelines map[int64]*timeline.Timeline
}

// Dial opens the live connection. Call Run to start receiving.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" || cfg.WSURL == "" {
		return nil, fmt.Errorf("chatclient: base url and ws url are required")
	}
	if cfg.RefetchEvery <= 0 {
		cfg.RefetchEvery = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WSURL, nil)
	if err != nil {
		return nil, fmt.Errorf("chatclient: dial: %w", err)
	}

	return &Client{
		cfg:       cfg,
		conn:      conn,
		hc:        cfg.HTTPClient,
		timelines: make(map[int64]*timeline.Timeline),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Join subscribes to a subject thread and seeds its timeline with a durable
// fetch. Joining twice is harmless.
func (c *Client) Join(ctx context.Context, subjectID int64) error {
	c.timeline(subjectID)

	c.writeMu.Lock()
	err := c.conn.WriteJSON(frame{Type: "join", SubjectID: subjectID, Sender: c.cfg.Sender})
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("chatclient: join: %w", err)
	}

	return c.refetch(ctx, subjectID)
}

// Timeline returns the reconciler state for a joined subject.
func (c *Client) Timeline(subjectID int64) *timeline.Timeline {
	return c.timeline(subjectID)
}

// Post relays the message live for instant visibility, then persists it via
// the durable path. A failed POST means the message is not persisted even
// though other viewers may have seen the relay; the error is returned and the
// local placeholder is left to expire at the next reconcile.
func (c *Client) Post(ctx context.Context, subjectID int64, content string) (timeline.Message, error) {
	now := time.Now().UTC()
	placeholder := timeline.Message{
		SubjectID: subjectID,
		Sender:    c.cfg.Sender,
		Content:   content,
		Timestamp: now,
	}

	c.writeMu.Lock()
	relayErr := c.conn.WriteJSON(frame{
		SubjectID: subjectID,
		Sender:    c.cfg.Sender,
		Content:   content,
		Timestamp: now,
	})
	c.writeMu.Unlock()
	if relayErr == nil {
		c.timeline(subjectID).AddLive(placeholder, now)
	}

	body, err := json.Marshal(map[string]any{
		"subjectId": subjectID,
		"sender":    c.cfg.Sender,
		"content":   content,
	})
	if err != nil {
		return timeline.Message{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return timeline.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return timeline.Message{}, fmt.Errorf("chatclient: post: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusCreated {
		var er errorResponse
		_ = json.NewDecoder(res.Body).Decode(&er)
		return timeline.Message{}, fmt.Errorf("chatclient: post: status %d: %s", res.StatusCode, er.Error)
	}

	var item messageItem
	if err := json.NewDecoder(res.Body).Decode(&item); err != nil {
		return timeline.Message{}, fmt.Errorf("chatclient: post: decode: %w", err)
	}

	msg := toMessage(item)
	// canonical id/timestamp retire the placeholder via the dedup rule
	c.timeline(subjectID).AddLive(msg, time.Now().UTC())
	return msg, nil
}

// Run pumps live frames into timelines and re-fetches durable state on a
// fixed interval. Blocks until ctx is cancelled or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	go c.refetchLoop(ctx)
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()

	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("chatclient: read: %w", err)
		}
		if f.Content == "" || f.SubjectID <= 0 {
			continue
		}
		c.timeline(f.SubjectID).AddLive(timeline.Message{
			ID:        f.ID,
			SubjectID: f.SubjectID,
			Sender:    f.Sender,
			Content:   f.Content,
			Timestamp: f.Timestamp,
		}, time.Now().UTC())
	}
}

func (c *Client) refetchLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RefetchEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, subjectID := range c.joinedSubjects() {
				_ = c.refetch(ctx, subjectID)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) refetch(ctx context.Context, subjectID int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/messages/"+strconv.FormatInt(subjectID, 10), nil)
	if err != nil {
		return err
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("chatclient: fetch: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("chatclient: fetch: status %d", res.StatusCode)
	}

	var items []messageItem
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return fmt.Errorf("chatclient: fetch: decode: %w", err)
	}

	msgs := make([]timeline.Message, 0, len(items))
	for _, it := range items {
		msgs = append(msgs, toMessage(it))
	}
	c.timeline(subjectID).Reconcile(msgs, time.Now().UTC())
	return nil
}

func (c *Client) timeline(subjectID int64) *timeline.Timeline {
	c.mu.Lock()
	defer c.mu.Unlock()

	tl, ok := c.timelines[subjectID]
	if !ok {
		tl = timeline.New(c.cfg.ConfirmWindow)
		c.timelines[subjectID] = tl
	}
	return tl
}

func (c *Client) joinedSubjects() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]int64, 0, len(c.timelines))
	for id := range c.timelines {
		out = append(out, id)
	}
	return out
}

func toMessage(it messageItem) timeline.Message {
	return timeline.Message{
		ID:        it.ID,
		SubjectID: it.SubjectID,
		Sender:    it.Sender,
		Content:   it.Content,
		Timestamp: it.Timestamp,
	}
}

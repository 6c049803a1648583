package kick

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"github.com/jan/streamchat/internal/chat"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults observed from the live site. The app key, endpoint version and
// reconnect bound drift between site revisions, so all three are
// configuration rather than constants.
const (
	defaultAppKey        = "32cbd69e4b950bf97679"
	defaultAPIURL        = "https://kick.com/api/v1/channels"
	defaultWSHost        = "wss://ws-us2.pusher.com"
	defaultMaxReconnects = 1
)

// Config holds Kick-specific settings. The zero value uses the observed
// production defaults.
type Config struct {
	AppKey        string // Pusher application key
	APIURL        string // channel-info REST endpoint base
	WSURL         string // full WebSocket URL override (testing)
	MaxReconnects int    // resubscription attempts on transport closure; 0 means the default of 1, negative disables
}

// channelResponse is the Kick channel-info API response.
type channelResponse struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Chatroom struct {
		ID int `json:"id"`
	} `json:"chatroom"`
}

// envelope is the outer Pusher event frame. For chat-message events Data is
// a JSON-encoded string that needs a second decode.
type envelope struct {
	Event string              `json:"event"`
	Data  jsoniter.RawMessage `json:"data"`
}

type subscribeEvent struct {
	Event string        `json:"event"`
	Data  subscribeData `json:"data"`
}

type subscribeData struct {
	Auth    string `json:"auth"`
	Channel string `json:"channel"`
}

// Client is the Kick chat adapter: REST chat-room resolution followed by a
// Pusher-protocol WebSocket subscription.
type Client struct {
	channel string
	cfg     Config

	httpClient *http.Client
	chatroomID int
	connected  bool

	mu sync.Mutex
	ws *websocket.Conn
}

// New creates a Kick adapter for the given channel URL or bare slug.
func New(streamID string, cfg Config) *Client {
	if cfg.AppKey == "" {
		cfg.AppKey = defaultAppKey
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = defaultMaxReconnects
	}

	streamID = strings.TrimRight(streamID, "/")
	parts := strings.Split(streamID, "/")

	return &Client{
		channel:    parts[len(parts)-1],
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Platform returns the constant platform name.
func (c *Client) Platform() string { return chat.PlatformKick }

// Connect resolves the chat-room ID over REST, then opens the WebSocket and
// subscribes to the chat room's pub/sub channel.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.resolveChatroomID(ctx); err != nil {
		return err
	}
	if err := c.subscribe(ctx); err != nil {
		return err
	}
	c.connected = true
	slog.Info("Subscribed to Kick chat room", "channel", c.channel, "chatroom_id", c.chatroomID)
	return nil
}

// Disconnect closes the WebSocket. Safe to call repeatedly and after a
// failed Connect.
func (c *Client) Disconnect() error {
	c.closeWS()
	c.connected = false
	return nil
}

// resolveChatroomID fetches channel information from the Kick API.
func (c *Client) resolveChatroomID(ctx context.Context) error {
	url := fmt.Sprintf("%s/%s", c.cfg.APIURL, c.channel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build channel request: %v", chat.ErrConnection, err)
	}

	// Browser headers keep CloudFlare from blocking the lookup.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://kick.com/")
	req.Header.Set("Alt-Used", "kick.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: kick channel lookup: %v", chat.ErrConnection, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: kick channel %q", chat.ErrStreamNotFound, c.channel)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: kick channel lookup returned status %d: %s", chat.ErrStreamChat, resp.StatusCode, body)
	}

	var info channelResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("%w: decode channel response: %v", chat.ErrStreamChat, err)
	}
	if info.Chatroom.ID == 0 {
		return fmt.Errorf("%w: no chat room for channel %q", chat.ErrStreamChat, c.channel)
	}

	c.chatroomID = info.Chatroom.ID
	return nil
}

// subscribe opens the Pusher WebSocket and joins the chat room channel.
func (c *Client) subscribe(ctx context.Context) error {
	wsURL := c.cfg.WSURL
	if wsURL == "" {
		wsURL = fmt.Sprintf("%s/app/%s?protocol=7&client=js&flash=false", defaultWSHost, c.cfg.AppKey)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial kick websocket: %v", chat.ErrConnection, err)
	}

	sub := subscribeEvent{
		Event: "pusher:subscribe",
		Data: subscribeData{
			Channel: fmt.Sprintf("chatrooms.%d.v2", c.chatroomID),
		},
	}
	if err := ws.WriteJSON(sub); err != nil {
		ws.Close()
		return fmt.Errorf("%w: subscribe to chat room: %v", chat.ErrConnection, err)
	}

	c.setWS(ws)
	return nil
}

func (c *Client) setWS(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
}

func (c *Client) getWS() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

func (c *Client) closeWS() {
	c.mu.Lock()
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()
}

// Listen reads Pusher frames until ctx is canceled or the transport fails,
// pushing parsed chat messages into out. Pings are answered inline. On
// transport closure the adapter resubscribes up to MaxReconnects times; a
// failed resubscription is fatal.
func (c *Client) Listen(ctx context.Context, out chan<- chat.Message) error {
	if !c.connected {
		return chat.ErrNotConnected
	}

	// Closing the socket on cancellation unblocks the pending read.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.closeWS()
		case <-stop:
		}
	}()

	reconnects := 0
	for {
		ws := c.getWS()
		if ws == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.connected = false
			return fmt.Errorf("%w: kick websocket gone", chat.ErrStreamChat)
		}

		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if reconnects >= c.cfg.MaxReconnects {
				c.connected = false
				return fmt.Errorf("%w: kick websocket closed: %v", chat.ErrStreamChat, err)
			}
			reconnects++
			slog.Info("Kick websocket closed, resubscribing", "channel", c.channel, "attempt", reconnects)
			c.closeWS()
			if subErr := c.subscribe(ctx); subErr != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.connected = false
				return fmt.Errorf("%w: kick resubscription failed: %v", chat.ErrStreamChat, subErr)
			}
			if ctx.Err() != nil {
				c.closeWS()
				return ctx.Err()
			}
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch {
		case env.Event == "pusher:ping":
			if err := ws.WriteJSON(map[string]any{"event": "pusher:pong", "data": map[string]any{}}); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.connected = false
				return fmt.Errorf("%w: send pong: %v", chat.ErrStreamChat, err)
			}

		case strings.Contains(env.Event, "ChatMessageEvent"):
			msg, ok := c.parseChatMessage(env.Data)
			if !ok {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// parseChatMessage decodes the double-encoded chat payload: the envelope's
// data field is a JSON string containing the actual event object.
func (c *Client) parseChatMessage(data jsoniter.RawMessage) (chat.Message, bool) {
	var inner string
	if err := json.Unmarshal(data, &inner); err != nil {
		return chat.Message{}, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(inner), &payload); err != nil {
		return chat.Message{}, false
	}

	sender, _ := payload["sender"].(map[string]any)
	content, _ := payload["content"].(string)

	// System events carry no sender or no content.
	if sender == nil || content == "" {
		return chat.Message{}, false
	}

	author, _ := sender["username"].(string)
	if author == "" {
		author = "Unknown"
	}

	identity, _ := sender["identity"].(map[string]any)
	color, _ := identity["color"].(string)
	badges := extractBadges(identity)

	return chat.Message{
		ID:           stringify(payload["id"]),
		Author:       author,
		Content:      content,
		Timestamp:    time.Now(), // Kick does not provide a precise per-message timestamp
		Platform:     chat.PlatformKick,
		AuthorID:     stringify(sender["id"]),
		Badges:       badges,
		Emotes:       []chat.Emote{},
		Color:        color,
		IsModerator:  contains(badges, "moderator"),
		IsSubscriber: contains(badges, "subscriber"),
		RawData:      payload,
	}, true
}

// extractBadges pulls badge type names from identity.badges; a non-empty
// display color adds a synthetic colored_name badge.
func extractBadges(identity map[string]any) []string {
	badges := []string{}
	if identity == nil {
		return badges
	}
	if list, ok := identity["badges"].([]any); ok {
		for _, entry := range list {
			badge, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if t, _ := badge["type"].(string); t != "" {
				badges = append(badges, t)
			}
		}
	}
	if color, _ := identity["color"].(string); color != "" {
		badges = append(badges, "colored_name")
	}
	return badges
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// stringify renders Kick's numeric-or-string IDs as strings.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

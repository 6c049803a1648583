package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jan/streamchat/internal/chat"
)

func TestResolveVideoIDDirectForms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?list=PL1&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/live/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		c := New(tt.in, Config{APIKey: "k"})
		if err := c.resolveVideoID(context.Background()); err != nil {
			t.Errorf("resolveVideoID(%q): %v", tt.in, err)
			continue
		}
		if c.videoID != tt.want {
			t.Errorf("resolveVideoID(%q) = %q, want %q", tt.in, c.videoID, tt.want)
		}
	}
}

func TestResolveVideoIDUnrecognized(t *testing.T) {
	c := New("https://www.youtube.com/feed/trending", Config{APIKey: "k"})
	if err := c.resolveVideoID(context.Background()); !errors.Is(err, chat.ErrStreamNotFound) {
		t.Errorf("error = %v, want ErrStreamNotFound", err)
	}
}

func TestConnectRequiresAPIKey(t *testing.T) {
	c := New("dQw4w9WgXcQ", Config{})
	if err := c.Connect(context.Background()); !errors.Is(err, chat.ErrAuthentication) {
		t.Errorf("error = %v, want ErrAuthentication", err)
	}
}

func TestConnectResolvesChatID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Error("missing API key query parameter")
		}
		fmt.Fprint(w, `{"items":[{"id":"dQw4w9WgXcQ","liveStreamingDetails":{"activeLiveChatId":"chat123"}}]}`)
	}))
	defer srv.Close()

	c := New("dQw4w9WgXcQ", Config{APIKey: "k", BaseURL: srv.URL})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()
	if c.chatID != "chat123" {
		t.Errorf("chatID = %q, want chat123", c.chatID)
	}
}

func TestConnectErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"video missing", http.StatusOK, `{"items":[]}`, chat.ErrStreamNotFound},
		{"no live chat", http.StatusOK, `{"items":[{"id":"x","liveStreamingDetails":{}}]}`, chat.ErrStreamChat},
		{"key rejected", http.StatusUnauthorized, `{}`, chat.ErrAuthentication},
		{"quota exceeded", http.StatusForbidden, `{}`, chat.ErrAuthentication},
		{"server error", http.StatusInternalServerError, `{}`, chat.ErrStreamChat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := New("dQw4w9WgXcQ", Config{APIKey: "k", BaseURL: srv.URL})
			if err := c.Connect(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

// channelAPI fakes handle resolution, live search, statistics and chat-id
// lookup for a channel with two concurrent live broadcasts.
func channelAPI(t *testing.T, statsBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/channels":
			if q.Get("forHandle") != "@somecreator" {
				t.Errorf("forHandle = %q", q.Get("forHandle"))
			}
			fmt.Fprint(w, `{"items":[{"id":"UC123"}]}`)
		case "/search":
			if q.Get("channelId") != "UC123" || q.Get("eventType") != "live" {
				t.Errorf("unexpected search query %v", q)
			}
			fmt.Fprint(w, `{"items":[{"id":{"videoId":"aaaaaaaaaaa"}},{"id":{"videoId":"bbbbbbbbbbb"}}]}`)
		case "/videos":
			if q.Get("part") == "liveStreamingDetails,statistics" {
				fmt.Fprint(w, statsBody)
				return
			}
			fmt.Fprintf(w, `{"items":[{"id":%q,"liveStreamingDetails":{"activeLiveChatId":"chat-%s"}}]}`,
				q.Get("id"), q.Get("id"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestConnectChannelPicksMostViewers(t *testing.T) {
	srv := channelAPI(t, `{"items":[
		{"id":"aaaaaaaaaaa","liveStreamingDetails":{"concurrentViewers":"5"}},
		{"id":"bbbbbbbbbbb","liveStreamingDetails":{"concurrentViewers":"100"}}]}`)
	defer srv.Close()

	c := New("https://www.youtube.com/@somecreator", Config{APIKey: "k", BaseURL: srv.URL})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()
	if c.videoID != "bbbbbbbbbbb" {
		t.Errorf("videoID = %q, want the broadcast with more viewers", c.videoID)
	}
}

func TestConnectChannelMissingStatsFallsBackToListingOrder(t *testing.T) {
	// No concurrentViewers anywhere: the first search result wins.
	srv := channelAPI(t, `{"items":[
		{"id":"aaaaaaaaaaa","liveStreamingDetails":{}},
		{"id":"bbbbbbbbbbb","liveStreamingDetails":{}}]}`)
	defer srv.Close()

	c := New("https://www.youtube.com/@somecreator", Config{APIKey: "k", BaseURL: srv.URL})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()
	if c.videoID != "aaaaaaaaaaa" {
		t.Errorf("videoID = %q, want first in listing order", c.videoID)
	}
}

func TestConnectChannelNoLiveBroadcast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels":
			fmt.Fprint(w, `{"items":[{"id":"UC123"}]}`)
		case "/search":
			fmt.Fprint(w, `{"items":[]}`)
		}
	}))
	defer srv.Close()

	c := New("https://www.youtube.com/@somecreator", Config{APIKey: "k", BaseURL: srv.URL})
	if err := c.Connect(context.Background()); !errors.Is(err, chat.ErrStreamNotFound) {
		t.Errorf("error = %v, want ErrStreamNotFound", err)
	}
}

func TestListenBeforeConnect(t *testing.T) {
	c := New("dQw4w9WgXcQ", Config{APIKey: "k"})
	out := make(chan chat.Message)
	if err := c.Listen(context.Background(), out); !errors.Is(err, chat.ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	c := New("dQw4w9WgXcQ", Config{APIKey: "k"})
	if err := c.Disconnect(); err != nil {
		t.Errorf("first Disconnect: %v", err)
	}
	if err := c.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
}

func TestListenFiltersByConnectTime(t *testing.T) {
	before := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	after := time.Now().Add(time.Minute).UTC().Format(time.RFC3339)

	var (
		mu     sync.Mutex
		tokens []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/videos":
			fmt.Fprint(w, `{"items":[{"id":"dQw4w9WgXcQ","liveStreamingDetails":{"activeLiveChatId":"chat123"}}]}`)
		case "/liveChat/messages":
			mu.Lock()
			token := r.URL.Query().Get("pageToken")
			tokens = append(tokens, token)
			mu.Unlock()
			if token != "" {
				fmt.Fprint(w, `{"nextPageToken":"p1","pollingIntervalMillis":10,"items":[]}`)
				return
			}
			fmt.Fprintf(w, `{"nextPageToken":"p1","pollingIntervalMillis":10,"items":[
				{"id":"old","snippet":{"type":"textMessageEvent","displayMessage":"too old","publishedAt":%q},
				 "authorDetails":{"displayName":"A","channelId":"c1"}},
				{"id":"new","snippet":{"type":"textMessageEvent","displayMessage":"fresh","publishedAt":%q},
				 "authorDetails":{"displayName":"B","channelId":"c2"}}]}`, before, after)
		}
	}))
	defer srv.Close()

	c := New("dQw4w9WgXcQ", Config{APIKey: "k", BaseURL: srv.URL, PollInterval: 10 * time.Millisecond})
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan chat.Message, 4)
	errChan := make(chan error, 1)
	go func() { errChan <- c.Listen(ctx, out) }()

	select {
	case msg := <-out:
		if msg.ID != "new" || msg.Content != "fresh" {
			t.Errorf("got %q (%s), want the fresh message", msg.Content, msg.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	// Let a few more polls happen: the old message must never appear and the
	// fresh one must not repeat.
	select {
	case msg := <-out:
		t.Errorf("unexpected extra message %q (%s)", msg.Content, msg.ID)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	if err := <-errChan; !errors.Is(err, context.Canceled) {
		t.Errorf("Listen after cancel: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(tokens) < 2 {
		t.Fatalf("expected repeated polling, saw %d requests", len(tokens))
	}
	if tokens[0] != "" || tokens[1] != "p1" {
		t.Errorf("cursor not advanced: tokens = %v", tokens[:2])
	}

	if c.pollInterval != 10*time.Millisecond {
		t.Errorf("pollInterval = %v, want the server-supplied 10ms", c.pollInterval)
	}
}

func TestParseMessage(t *testing.T) {
	raw := []byte(`{"id":"m1","snippet":{"type":"textMessageEvent","displayMessage":"hello <b>&amp;</b>","publishedAt":"2026-01-02T15:04:05Z"},
		"authorDetails":{"displayName":"Ann","channelId":"c9","isChatOwner":true,"isChatModerator":true,"isChatSponsor":false,"isVerified":true}}`)

	msg, ok := parseMessage(raw)
	if !ok {
		t.Fatal("expected a message")
	}
	if msg.Author != "Ann" || msg.AuthorID != "c9" {
		t.Errorf("author = %q/%q", msg.Author, msg.AuthorID)
	}
	// Content passes through unmodified, no unescaping.
	if msg.Content != "hello <b>&amp;</b>" {
		t.Errorf("Content = %q", msg.Content)
	}
	if !reflect.DeepEqual(msg.Badges, []string{"owner", "moderator", "verified"}) {
		t.Errorf("Badges = %v", msg.Badges)
	}
	if !msg.IsModerator || msg.IsSubscriber {
		t.Errorf("flags = %t/%t", msg.IsModerator, msg.IsSubscriber)
	}
	if msg.RawData == nil {
		t.Error("RawData should carry the original item")
	}
}

func TestParseMessageDrops(t *testing.T) {
	tests := map[string]string{
		"wrong type":     `{"id":"m","snippet":{"type":"superChatEvent","displayMessage":"x","publishedAt":"2026-01-02T15:04:05Z"},"authorDetails":{"displayName":"A"}}`,
		"no content":     `{"id":"m","snippet":{"type":"textMessageEvent","publishedAt":"2026-01-02T15:04:05Z"},"authorDetails":{"displayName":"A"}}`,
		"no author":      `{"id":"m","snippet":{"type":"textMessageEvent","displayMessage":"x","publishedAt":"2026-01-02T15:04:05Z"},"authorDetails":{}}`,
		"malformed json": `{"id":`,
	}
	for name, raw := range tests {
		if _, ok := parseMessage([]byte(raw)); ok {
			t.Errorf("%s: expected drop", name)
		}
	}
}

func TestPlatformName(t *testing.T) {
	if got := New("dQw4w9WgXcQ", Config{}).Platform(); got != chat.PlatformYouTube {
		t.Errorf("Platform() = %q, want %q", got, chat.PlatformYouTube)
	}
}

// Package client provides the platform-detection facade: it maps a stream
// identifier to the right adapter, narrows the shared configuration to the
// selected platform, and exposes one connect/listen/disconnect surface.
package client

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jan/streamchat/internal/chat"
	"github.com/jan/streamchat/internal/kick"
	"github.com/jan/streamchat/internal/twitch"
	"github.com/jan/streamchat/internal/youtube"
)

// Config is the shared configuration bag. Each adapter receives only the
// fields for its platform; the rest are ignored.
type Config struct {
	YouTubeAPIKey       string
	YouTubePollInterval time.Duration
	TwitchOAuthToken    string
	TwitchUsername      string
	KickAppKey          string
	KickMaxReconnects   int
}

// adapters maps a platform tag to its adapter constructor, each projecting
// the platform's slice of the shared configuration.
var adapters = map[string]func(streamID string, cfg Config) chat.Adapter{
	chat.PlatformYouTube: func(streamID string, cfg Config) chat.Adapter {
		return youtube.New(streamID, youtube.Config{
			APIKey:       cfg.YouTubeAPIKey,
			PollInterval: cfg.YouTubePollInterval,
		})
	},
	chat.PlatformTwitch: func(streamID string, cfg Config) chat.Adapter {
		return twitch.New(streamID, twitch.Config{
			OAuthToken: cfg.TwitchOAuthToken,
			Username:   cfg.TwitchUsername,
		})
	},
	chat.PlatformKick: func(streamID string, cfg Config) chat.Adapter {
		return kick.New(streamID, kick.Config{
			AppKey:        cfg.KickAppKey,
			MaxReconnects: cfg.KickMaxReconnects,
		})
	},
}

// Platforms returns the supported platform names, sorted.
func Platforms() []string {
	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client is the unified chat client. It detects the platform at
// construction and drives the matching adapter.
type Client struct {
	streamURL string
	platform  string
	cfg       Config

	adapter   chat.Adapter
	connected bool
}

// New creates a client for the given stream URL or bare handle, detecting
// the platform automatically.
func New(streamURL string, cfg Config) (*Client, error) {
	platform, err := Detect(streamURL)
	if err != nil {
		return nil, err
	}
	return &Client{streamURL: streamURL, platform: platform, cfg: cfg}, nil
}

// NewForPlatform creates a client for an explicitly named platform,
// bypassing detection.
func NewForPlatform(platform, streamID string, cfg Config) (*Client, error) {
	if _, ok := adapters[platform]; !ok {
		return nil, fmt.Errorf("%w: %q", chat.ErrPlatformNotSupported, platform)
	}
	return &Client{streamURL: streamID, platform: platform, cfg: cfg}, nil
}

// Platform returns the detected platform name.
func (c *Client) Platform() string { return c.platform }

// Connect builds the platform adapter and establishes its transport.
// Connecting twice without an intervening Disconnect is an error.
func (c *Client) Connect(ctx context.Context) error {
	if c.connected {
		return fmt.Errorf("%w: already connected", chat.ErrStreamChat)
	}

	build := adapters[c.platform]
	adapter := build(c.streamURL, c.cfg)
	if err := adapter.Connect(ctx); err != nil {
		adapter.Disconnect()
		return err
	}

	c.adapter = adapter
	c.connected = true
	return nil
}

// Listen delegates to the adapter's listen loop, forwarding each message
// into out. Fails if Connect has not succeeded.
func (c *Client) Listen(ctx context.Context, out chan<- chat.Message) error {
	if c.adapter == nil {
		return chat.ErrNotConnected
	}
	return c.adapter.Listen(ctx, out)
}

// Disconnect releases the adapter. Safe to call repeatedly. A fresh Connect
// builds a new adapter instance; adapters themselves are single-use.
func (c *Client) Disconnect() error {
	if c.adapter == nil {
		c.connected = false
		return nil
	}
	err := c.adapter.Disconnect()
	c.adapter = nil
	c.connected = false
	return err
}

// Stream is the scoped-acquisition form: connect, listen into out, and
// disconnect on every exit path.
func (c *Client) Stream(ctx context.Context, out chan<- chat.Message) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer c.Disconnect()
	return c.Listen(ctx, out)
}

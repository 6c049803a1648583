package youtube

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/jan/streamchat/internal/chat"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultBaseURL      = "https://www.googleapis.com/youtube/v3"
	defaultPollInterval = 2 * time.Second
)

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`/embed/([0-9A-Za-z_-]{11})`),
		regexp.MustCompile(`/live/([0-9A-Za-z_-]{11})`),
	}
	bareVideoID      = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	channelIDPattern = regexp.MustCompile(`/channel/([0-9A-Za-z_-]+)`)
	handlePattern    = regexp.MustCompile(`/(@[A-Za-z0-9_.\-]+)`)
)

// Config holds YouTube-specific settings.
type Config struct {
	APIKey       string
	PollInterval time.Duration // initial polling cadence; the server value takes over once seen
	BaseURL      string        // Data API base override (testing)
}

// Client is the YouTube chat adapter. It resolves a live video (directly or
// by searching a channel's live broadcasts), resolves the active live chat,
// then polls for messages at the server-dictated interval.
type Client struct {
	streamID string
	cfg      Config

	httpClient *http.Client

	videoID       string
	chatID        string
	nextPageToken string
	pollInterval  time.Duration
	connectedAt   time.Time
	connected     bool
}

// New creates a YouTube adapter for a video URL, bare video ID, or channel
// URL (handle or channel-id form).
func New(streamID string, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Client{
		streamID:     streamID,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		pollInterval: cfg.PollInterval,
	}
}

// Platform returns the constant platform name.
func (c *Client) Platform() string { return chat.PlatformYouTube }

// Connect resolves the target video and its active live chat. Messages
// published before Connect are never emitted by Listen.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return fmt.Errorf("%w: YouTube API key is required", chat.ErrAuthentication)
	}

	if err := c.resolveVideoID(ctx); err != nil {
		return err
	}
	if err := c.resolveChatID(ctx); err != nil {
		return err
	}

	c.connectedAt = time.Now()
	c.connected = true
	slog.Info("Resolved YouTube live chat", "video_id", c.videoID)
	return nil
}

// Disconnect releases the HTTP transport. Safe to call repeatedly.
func (c *Client) Disconnect() error {
	c.httpClient.CloseIdleConnections()
	c.connected = false
	return nil
}

// resolveVideoID fills c.videoID from the stream identifier: a literal video
// ID is used directly, a channel URL is resolved to its live broadcast.
func (c *Client) resolveVideoID(ctx context.Context) error {
	if bareVideoID.MatchString(c.streamID) {
		c.videoID = c.streamID
		return nil
	}
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(c.streamID); m != nil {
			c.videoID = m[1]
			return nil
		}
	}
	if m := channelIDPattern.FindStringSubmatch(c.streamID); m != nil {
		return c.resolveLiveVideo(ctx, m[1])
	}
	if m := handlePattern.FindStringSubmatch(c.streamID); m != nil {
		channelID, err := c.resolveHandle(ctx, m[1])
		if err != nil {
			return err
		}
		return c.resolveLiveVideo(ctx, channelID)
	}
	return fmt.Errorf("%w: cannot extract a video or channel from %q", chat.ErrStreamNotFound, c.streamID)
}

// resolveHandle maps an @handle to its channel ID.
func (c *Client) resolveHandle(ctx context.Context, handle string) (string, error) {
	var resp channelListResponse
	err := c.apiGet(ctx, "channels", url.Values{
		"part":      {"id"},
		"forHandle": {handle},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("%w: channel handle %q", chat.ErrStreamNotFound, handle)
	}
	return resp.Items[0].ID, nil
}

// resolveLiveVideo lists the channel's currently live broadcasts and picks
// the one with the most concurrent viewers. When viewer counts tie or are
// unavailable the first broadcast in listing order wins.
func (c *Client) resolveLiveVideo(ctx context.Context, channelID string) error {
	var resp searchListResponse
	err := c.apiGet(ctx, "search", url.Values{
		"part":      {"snippet"},
		"channelId": {channelID},
		"eventType": {"live"},
		"type":      {"video"},
	}, &resp)
	if err != nil {
		return err
	}

	candidates := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID != "" {
			candidates = append(candidates, item.ID.VideoID)
		}
	}
	switch len(candidates) {
	case 0:
		return fmt.Errorf("%w: channel %s has no live broadcast", chat.ErrStreamNotFound, channelID)
	case 1:
		c.videoID = candidates[0]
		return nil
	}

	viewers, err := c.fetchViewerCounts(ctx, candidates)
	if err != nil {
		return err
	}
	best := candidates[0]
	for _, id := range candidates[1:] {
		if viewers[id] > viewers[best] {
			best = id
		}
	}
	c.videoID = best
	return nil
}

// fetchViewerCounts returns concurrent-viewer counts per video ID. Videos
// with missing or unparsable statistics count as zero.
func (c *Client) fetchViewerCounts(ctx context.Context, ids []string) (map[string]int64, error) {
	var resp videoListResponse
	err := c.apiGet(ctx, "videos", url.Values{
		"part": {"liveStreamingDetails,statistics"},
		"id":   {strings.Join(ids, ",")},
	}, &resp)
	if err != nil {
		return nil, err
	}

	viewers := make(map[string]int64, len(resp.Items))
	for _, item := range resp.Items {
		n, err := strconv.ParseInt(item.LiveStreamingDetails.ConcurrentViewers, 10, 64)
		if err == nil {
			viewers[item.ID] = n
		}
	}
	return viewers, nil
}

// resolveChatID fetches the video's live-streaming details and extracts the
// active live chat ID.
func (c *Client) resolveChatID(ctx context.Context) error {
	var resp videoListResponse
	err := c.apiGet(ctx, "videos", url.Values{
		"part": {"liveStreamingDetails"},
		"id":   {c.videoID},
	}, &resp)
	if err != nil {
		return err
	}
	if len(resp.Items) == 0 {
		return fmt.Errorf("%w: video %s", chat.ErrStreamNotFound, c.videoID)
	}
	chatID := resp.Items[0].LiveStreamingDetails.ActiveLiveChatID
	if chatID == "" {
		return fmt.Errorf("%w: no active live chat for video %s", chat.ErrStreamChat, c.videoID)
	}
	c.chatID = chatID
	return nil
}

// Listen polls the live chat until ctx is canceled, pushing new messages
// into out. The polling cadence follows the server-supplied interval; the
// continuation cursor advances each page. Only messages published strictly
// after Connect are emitted.
func (c *Client) Listen(ctx context.Context, out chan<- chat.Message) error {
	if !c.connected {
		return chat.ErrNotConnected
	}

	for {
		msgs, err := c.fetchMessages(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.connected = false
			return err
		}

		for _, msg := range msgs {
			if !msg.Timestamp.After(c.connectedAt) {
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// fetchMessages retrieves one page of chat messages, advancing the cursor
// and adopting the server's polling interval.
func (c *Client) fetchMessages(ctx context.Context) ([]chat.Message, error) {
	params := url.Values{
		"liveChatId": {c.chatID},
		"part":       {"snippet,authorDetails"},
	}
	if c.nextPageToken != "" {
		params.Set("pageToken", c.nextPageToken)
	}

	var resp messageListResponse
	if err := c.apiGet(ctx, "liveChat/messages", params, &resp); err != nil {
		return nil, err
	}

	c.nextPageToken = resp.NextPageToken
	if resp.PollingIntervalMillis > 0 {
		c.pollInterval = time.Duration(resp.PollingIntervalMillis) * time.Millisecond
	}

	msgs := make([]chat.Message, 0, len(resp.Items))
	for _, raw := range resp.Items {
		if msg, ok := parseMessage(raw); ok {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// parseMessage parses one API item. Non-text events and items missing
// required fields are dropped, not fatal.
func parseMessage(raw jsoniter.RawMessage) (chat.Message, bool) {
	var item messageItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return chat.Message{}, false
	}
	if item.Snippet.Type != "textMessageEvent" {
		return chat.Message{}, false
	}
	if item.ID == "" || item.Snippet.DisplayMessage == "" || item.AuthorDetails.DisplayName == "" {
		return chat.Message{}, false
	}

	rawData := map[string]any{}
	_ = json.Unmarshal(raw, &rawData)

	author := item.AuthorDetails
	badges := []string{}
	if author.IsChatOwner {
		badges = append(badges, "owner")
	}
	if author.IsChatModerator {
		badges = append(badges, "moderator")
	}
	if author.IsChatSponsor {
		badges = append(badges, "member")
	}
	if author.IsVerified {
		badges = append(badges, "verified")
	}

	return chat.Message{
		ID:           item.ID,
		Author:       author.DisplayName,
		Content:      item.Snippet.DisplayMessage,
		Timestamp:    item.Snippet.PublishedAt,
		Platform:     chat.PlatformYouTube,
		AuthorID:     author.ChannelID,
		Badges:       badges,
		Emotes:       []chat.Emote{},
		IsModerator:  author.IsChatModerator,
		IsSubscriber: author.IsChatSponsor,
		RawData:      rawData,
	}, true
}

// apiGet performs one Data API call and decodes the JSON response. Status
// mapping is uniform: 401/403 authentication, 404 not found, other non-200
// statuses are protocol failures.
func (c *Client) apiGet(ctx context.Context, endpoint string, params url.Values, v any) error {
	params.Set("key", c.cfg.APIKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build %s request: %v", chat.ErrConnection, endpoint, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request: %v", chat.ErrConnection, endpoint, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: YouTube API rejected the key (status %d)", chat.ErrAuthentication, resp.StatusCode)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s returned 404", chat.ErrStreamNotFound, endpoint)
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s returned status %d: %s", chat.ErrStreamChat, endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", chat.ErrStreamChat, endpoint, err)
	}
	return nil
}

package twitch

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jan/streamchat/internal/chat"
)

const (
	defaultAddr = "irc.chat.twitch.tv:6667"

	// Well-known anonymous nickname accepted by Twitch for read-only access.
	anonymousNick = "justinfan12345"
)

// :nick!user@host PRIVMSG #channel :text
var privmsgPattern = regexp.MustCompile(`^:(\w+)!\w+@[\w.]+ PRIVMSG #(\w+) :(.+)$`)

// Config holds Twitch-specific settings.
type Config struct {
	OAuthToken string // optional; anonymous read-only access works without one
	Username   string // optional; defaults to the anonymous nickname
	Addr       string // optional IRC server address override
}

// Client is the Twitch chat adapter. It speaks the IRC line protocol
// directly: authenticate, request tag capabilities, join one channel and
// parse tagged PRIVMSG lines into chat messages.
type Client struct {
	channel string
	cfg     Config

	conn      net.Conn
	reader    *bufio.Reader
	connected bool
}

// New creates a Twitch adapter for the given channel URL or bare channel
// name. The channel is the trailing path segment of the identifier.
func New(streamID string, cfg Config) *Client {
	return &Client{
		channel: extractChannel(streamID),
		cfg:     cfg,
	}
}

func extractChannel(streamID string) string {
	streamID = strings.TrimRight(streamID, "/")
	parts := strings.Split(streamID, "/")
	name := parts[len(parts)-1]
	return strings.ToLower(strings.TrimPrefix(name, "#"))
}

// Platform returns the constant platform name.
func (c *Client) Platform() string { return chat.PlatformTwitch }

// Connect dials the IRC server, authenticates and joins the channel.
func (c *Client) Connect(ctx context.Context) error {
	addr := c.cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: dial twitch irc: %v", chat.ErrConnection, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	nick := c.cfg.Username
	if nick == "" {
		nick = anonymousNick
	}

	// PASS must precede NICK and is only sent when a token is supplied;
	// anonymous nicks log in without one.
	cmds := make([]string, 0, 5)
	if c.cfg.OAuthToken != "" {
		cmds = append(cmds, "PASS oauth:"+strings.TrimPrefix(c.cfg.OAuthToken, "oauth:"))
	}
	cmds = append(cmds,
		"NICK "+nick,
		"CAP REQ :twitch.tv/tags",
		"CAP REQ :twitch.tv/commands",
		"JOIN #"+c.channel,
	)
	for _, cmd := range cmds {
		if err := c.send(cmd); err != nil {
			conn.Close()
			c.conn = nil
			return fmt.Errorf("%w: twitch irc handshake: %v", chat.ErrConnection, err)
		}
	}

	c.connected = true
	slog.Info("Joined Twitch channel", "channel", c.channel, "nick", nick)
	return nil
}

// Disconnect parts the channel and closes the connection. Safe to call
// repeatedly and after a failed Connect.
func (c *Client) Disconnect() error {
	if c.conn != nil {
		if c.connected {
			_ = c.send("PART #" + c.channel)
		}
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	return nil
}

func (c *Client) send(cmd string) error {
	_, err := c.conn.Write([]byte(cmd + "\r\n"))
	return err
}

// Listen reads IRC lines until ctx is canceled or the connection dies,
// pushing parsed channel messages into out. PINGs are answered inline;
// lines for other channels and non-PRIVMSG traffic are ignored.
func (c *Client) Listen(ctx context.Context, out chan<- chat.Message) error {
	if !c.connected {
		return chat.ErrNotConnected
	}

	// Closing the connection on cancellation unblocks the pending read.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-stop:
		}
	}()

	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.connected = false
			return fmt.Errorf("%w: read irc line: %v", chat.ErrStreamChat, err)
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasPrefix(line, "PING") {
			if err := c.send("PONG :tmi.twitch.tv"); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.connected = false
				return fmt.Errorf("%w: send pong: %v", chat.ErrStreamChat, err)
			}
			continue
		}

		msg, ok := c.parseLine(line)
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

// parseLine parses one IRC line into a chat message. Returns false for
// anything that is not a PRIVMSG for the joined channel.
func (c *Client) parseLine(line string) (chat.Message, bool) {
	rawLine := line

	tags := map[string]string{}
	if strings.HasPrefix(line, "@") {
		idx := strings.Index(line, " ")
		if idx < 0 {
			return chat.Message{}, false
		}
		tags = parseTags(line[1:idx])
		line = line[idx+1:]
	}

	m := privmsgPattern.FindStringSubmatch(line)
	if m == nil {
		return chat.Message{}, false
	}
	nick, channel, content := m[1], m[2], m[3]
	if channel != c.channel {
		return chat.Message{}, false
	}

	now := time.Now()

	id := tags["id"]
	if id == "" {
		id = fmt.Sprintf("%s_%d", nick, now.UnixNano())
	}
	author := tags["display-name"]
	if author == "" {
		author = nick
	}

	return chat.Message{
		ID:           id,
		Author:       author,
		Content:      content,
		Timestamp:    now,
		Platform:     chat.PlatformTwitch,
		AuthorID:     tags["user-id"],
		Badges:       parseBadges(tags["badges"]),
		Emotes:       parseEmotes(tags["emotes"]),
		Color:        tags["color"],
		IsModerator:  tags["mod"] == "1",
		IsSubscriber: tags["subscriber"] == "1",
		IsVIP:        tags["vip"] == "1",
		RawData: map[string]any{
			"tags":     tags,
			"raw_line": rawLine,
		},
	}, true
}

// parseTags parses the @-prefix tag segment: semicolon-separated key=value
// pairs. Tags without an = are dropped.
func parseTags(s string) map[string]string {
	tags := make(map[string]string)
	for _, tag := range strings.Split(s, ";") {
		key, value, ok := strings.Cut(tag, "=")
		if !ok {
			continue
		}
		tags[key] = value
	}
	return tags
}

// parseBadges extracts badge names from a comma-separated badges tag, where
// each entry is name/version.
func parseBadges(s string) []string {
	badges := []string{}
	if s == "" {
		return badges
	}
	for _, badge := range strings.Split(s, ",") {
		name, _, ok := strings.Cut(badge, "/")
		if ok {
			badges = append(badges, name)
		}
	}
	return badges
}

// parseEmotes parses the emotes tag: /-separated id:ranges groups, each
// range being start-end character offsets into the message content.
func parseEmotes(s string) []chat.Emote {
	emotes := []chat.Emote{}
	if s == "" {
		return emotes
	}
	for _, group := range strings.Split(s, "/") {
		id, positions, ok := strings.Cut(group, ":")
		if !ok {
			continue
		}
		for _, pos := range strings.Split(positions, ",") {
			startStr, endStr, ok := strings.Cut(pos, "-")
			if !ok {
				continue
			}
			start, err := strconv.Atoi(startStr)
			if err != nil {
				continue
			}
			end, err := strconv.Atoi(endStr)
			if err != nil {
				continue
			}
			emotes = append(emotes, chat.Emote{ID: id, Start: start, End: end})
		}
	}
	return emotes
}

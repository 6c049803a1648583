package chat

import "time"

// Platform names used in Message.Platform and by the client facade.
const (
	PlatformYouTube = "youtube"
	PlatformTwitch  = "twitch"
	PlatformKick    = "kick"
)

// Emote references an inline platform emote by identifier and the character
// offset range it occupies within the message content.
type Emote struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Message represents a chat message from any platform (Twitch, Kick, YouTube).
// Every adapter fills the full field set: optional fields carry their zero
// value rather than being omitted, so consumers never need presence checks.
type Message struct {
	ID           string         `json:"id"`        // Platform message ID, or synthesized author+timestamp
	Author       string         `json:"author"`    // User's display name
	Content      string         `json:"content"`   // Chat message text, passed through unmodified
	Timestamp    time.Time      `json:"timestamp"` // Platform-specific semantics; not comparable across platforms
	Platform     string         `json:"platform"`  // One of the Platform* constants
	AuthorID     string         `json:"author_id"` // Platform-specific user ID
	Badges       []string       `json:"badges"`    // Platform-defined badge tags, in wire order
	Emotes       []Emote        `json:"emotes"`    // Inline emotes, for platforms that provide them
	Color        string         `json:"color"`     // Display color, if the platform provides one
	IsModerator  bool           `json:"is_moderator"`
	IsSubscriber bool           `json:"is_subscriber"`
	IsVIP        bool           `json:"is_vip"`
	RawData      map[string]any `json:"raw_data"` // Opaque platform payload, never parsed downstream
}

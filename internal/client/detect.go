package client

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jan/streamchat/internal/chat"
)

var (
	videoIDToken = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	handleToken  = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// Detect maps a stream URL or bare handle to a platform name. Domain
// matches take precedence; bare tokens fall back to heuristics: an
// 11-character token shaped like a YouTube video ID is YouTube, any other
// simple handle defaults to Twitch.
func Detect(streamURL string) (string, error) {
	lower := strings.ToLower(streamURL)

	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return chat.PlatformYouTube, nil
	case strings.Contains(lower, "twitch.tv"):
		return chat.PlatformTwitch, nil
	case strings.Contains(lower, "kick.com"):
		return chat.PlatformKick, nil
	}

	if looksLikeVideoID(streamURL) {
		return chat.PlatformYouTube, nil
	}
	if handleToken.MatchString(streamURL) && len(streamURL) > 2 {
		return chat.PlatformTwitch, nil
	}

	return "", fmt.Errorf("%w: cannot detect platform from %q", chat.ErrPlatformNotSupported, streamURL)
}

// looksLikeVideoID reports whether a bare token is shaped like a YouTube
// video ID. Length and alphabet alone are not enough: an 11-letter
// lowercase word is far more likely a channel handle, so at least one
// digit, uppercase letter, dash or underscore is required.
func looksLikeVideoID(s string) bool {
	return videoIDToken.MatchString(s) && strings.ContainsAny(s, "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-_")
}

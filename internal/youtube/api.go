package youtube

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Wire types for the subset of the YouTube Data API v3 this adapter uses.

type channelListResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type searchListResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID                   string `json:"id"`
		LiveStreamingDetails struct {
			ActiveLiveChatID  string `json:"activeLiveChatId"`
			ConcurrentViewers string `json:"concurrentViewers"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

type messageListResponse struct {
	NextPageToken         string                `json:"nextPageToken"`
	PollingIntervalMillis int                   `json:"pollingIntervalMillis"`
	Items                 []jsoniter.RawMessage `json:"items"`
}

type messageItem struct {
	ID      string `json:"id"`
	Snippet struct {
		Type           string    `json:"type"`
		DisplayMessage string    `json:"displayMessage"`
		PublishedAt    time.Time `json:"publishedAt"`
	} `json:"snippet"`
	AuthorDetails struct {
		ChannelID       string `json:"channelId"`
		DisplayName     string `json:"displayName"`
		IsChatOwner     bool   `json:"isChatOwner"`
		IsChatModerator bool   `json:"isChatModerator"`
		IsChatSponsor   bool   `json:"isChatSponsor"`
		IsVerified      bool   `json:"isVerified"`
	} `json:"authorDetails"`
}

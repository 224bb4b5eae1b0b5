package notifier

import (
	"time"

	"xsportbot/internal/transport"
)

type Config struct {
	Workers         int
	QueueSize       int
	RatePerSec      int
	RetryMax        int
	RetryBase       time.Duration
	RetryMaxDelay   time.Duration
	DedupWindow     time.Duration
	DedupMaxEntries int
}

// Notice is a message for one log channel.
type Notice struct {
	ChannelID string
	Message   transport.Message
}

type HistoryItem struct {
	At        time.Time
	ChannelID string
	Text      string
}

// NoticeEvent is published on the bus after each notice settles.
type NoticeEvent struct {
	ChannelID string    `json:"channel_id"`
	Key       string    `json:"key"`
	At        time.Time `json:"at"`
	Error     string    `json:"error,omitempty"`
}

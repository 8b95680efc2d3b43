// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/jonasqin/automedia/internal/models"
)

// Server-to-client event types.
const (
	EventConnected           = "connected"
	EventPing                = "ping"
	EventTweetCollected      = "tweet:collected"
	EventTrendUpdated        = "trend:updated"
	EventGenerationProgress  = "generation:progress"
	EventGenerationCompleted = "generation:completed"
	EventGenerationFailed    = "generation:failed"
	EventNotification        = "notification"
	EventSystemStatus        = "system:status"
)

// Client-to-server message types (room/subscription control). Each is a
// no-ack, no-response operation.
const (
	msgJoinTopic        = "join-topic"
	msgLeaveTopic       = "leave-topic"
	msgJoinCollection   = "join-collection"
	msgLeaveCollection  = "leave-collection"
	msgSubscribeTweets  = "subscribe-tweets"
	msgUnsubscribeTweet = "unsubscribe-tweets"
	msgSubscribeTrends  = "subscribe-trends"
	msgUnsubscribeTrend = "unsubscribe-trends"
	msgPong             = "pong"
)

// Room name construction. Rooms are plain strings of the form "<kind>:<id>"
// plus the shared feed room joined by subscribe-tweets.
const FeedRoom = "tweets-updates"

func UserRoom(userID string) string { return "user:" + userID }

func TopicRoom(topicID string) string { return "topic:" + topicID }

func CollectionRoom(id string) string { return "collection:" + id }

func TrendsRoom(location string) string { return "trends:" + location }

// Message is one distribution event on the wire. Ephemeral: constructed,
// published, discarded.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage constructs a Message stamped with the current time.
func NewMessage(eventType string, data interface{}) Message {
	return Message{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
}

// inboundMessage is the envelope for client-to-server control messages.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// tweetsSubscription carries the optional filters of subscribe-tweets. The
// filters are advisory; membership of the shared feed room is what drives
// delivery.
type tweetsSubscription struct {
	UserIDs  []string `json:"userIds,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

// decodeStringData accepts both a bare JSON string and {"<key>": "..."}
// shapes for single-value control payloads, since dashboard clients have
// historically sent both.
func decodeStringData(raw json.RawMessage, key string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj[key]
	}
	return ""
}

// ConnectedData acknowledges a successful handshake; delivered only to the
// newly opened connection.
type ConnectedData struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// PingData carries the server timestamp of a liveness ping.
type PingData struct {
	Timestamp time.Time `json:"timestamp"`
}

// TrendUpdateData is the payload of trend:updated.
type TrendUpdateData struct {
	Trends   []models.Trend `json:"trends"`
	Location string         `json:"location"`
}

// TweetCollectedData is the payload of tweet:collected, one event per newly
// persisted item.
type TweetCollectedData struct {
	Tweet    models.ContentItem `json:"tweet"`
	TopicID  string             `json:"topicId,omitempty"`
	TopicIDs []string           `json:"topicIds,omitempty"`
}

// NotificationData is the payload of notification events such as the daily
// digest.
type NotificationData struct {
	Kind  string      `json:"kind"`
	Title string      `json:"title"`
	Body  interface{} `json:"body,omitempty"`
}

// SystemStatusData is the payload of system:status operational broadcasts.
type SystemStatusData struct {
	Status   string  `json:"status"` // e.g. "rate_limit_warning"
	Endpoint string  `json:"endpoint,omitempty"`
	Detail   string  `json:"detail,omitempty"`
	Percent  float64 `json:"percent,omitempty"`
}

// StatusRateLimitWarning is the system:status value broadcast when the
// external quota falls below the configured threshold.
const StatusRateLimitWarning = "rate_limit_warning"

// GenerationProgressData is the payload of generation:progress.
type GenerationProgressData struct {
	GenerationID string `json:"generationId"`
	UserID       string `json:"userId"`
	Progress     int    `json:"progress"`
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
}

// GenerationResultData is the payload of generation:completed.
type GenerationResultData struct {
	GenerationID string      `json:"generationId"`
	UserID       string      `json:"userId"`
	Result       interface{} `json:"result"`
}

// GenerationFailureData is the payload of generation:failed.
type GenerationFailureData struct {
	GenerationID string `json:"generationId"`
	UserID       string `json:"userId"`
	Error        string `json:"error"`
}

// AutoMedia - Social Media Aggregation and AI Content Platform
// Copyright 2026 Jonas Qin (jonasqin)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jonasqin/automedia

package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jonasqin/automedia/internal/logging"
)

const (
	writeWait = 10 * time.Second

	// pingPeriod is the cadence of application-level ping{timestamp}
	// messages; pongWait is how long a connection may stay silent before
	// the read side gives up on it.
	pingPeriod = 30 * time.Second
	pongWait   = 90 * time.Second

	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

// clientSeq orders clients by registration for deterministic fan-out.
var clientSeq atomic.Uint64

// Client is the middleman between one websocket connection and the hub. The
// connection id is opaque and unique per channel instance; reconnecting
// yields a fresh one.
type Client struct {
	seq      uint64
	id       string
	userID   string
	email    string
	conn     *websocket.Conn
	registry *Registry

	send      chan Message
	done      chan struct{}
	closeOnce sync.Once

	// connectedAt is refreshed by the registry on each liveness response.
	connectedAt time.Time
}

// NewClient wraps an upgraded connection for an authenticated identity.
func NewClient(conn *websocket.Conn, identity Identity, registry *Registry) *Client {
	return &Client{
		seq:         clientSeq.Add(1),
		id:          uuid.NewString(),
		userID:      identity.ID,
		email:       identity.Email,
		conn:        conn,
		registry:    registry,
		send:        make(chan Message, sendQueueSize),
		done:        make(chan struct{}),
		connectedAt: time.Now(),
	}
}

// ID returns the opaque connection id.
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated user id.
func (c *Client) UserID() string { return c.userID }

// trySend queues a message without blocking. Returns false when the send
// queue is full, which the hub treats as a slow client. A closing client
// reports true: dropping during teardown is not a delivery failure.
func (c *Client) trySend(msg Message) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend signals the write pump to finish. Idempotent; the registry calls
// it on unregister, which may race with pump teardown.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Start begins the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump consumes control messages from the connection until it closes.
// It guarantees unregistration on any exit path, graceful or not, so an
// ungraceful network drop prunes memberships as reliably as a clean close.
func (c *Client) readPump() {
	defer func() {
		c.registry.Unregister(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("connection_id", c.id).Msg("unexpected websocket close")
			}
			return
		}

		// Any inbound traffic counts as liveness.
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			// Liveness over strictness: a malformed frame is ignored and
			// the channel stays usable.
			logging.Debug().Str("connection_id", c.id).Msg("ignoring malformed client message")
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage dispatches one client-to-server control message. Every
// operation is no-ack and best-effort; unknown types and blank identifiers
// are ignored.
func (c *Client) handleMessage(msg inboundMessage) {
	switch msg.Type {
	case msgPong:
		c.registry.Touch(c.id)

	case msgJoinTopic:
		if id := decodeStringData(msg.Data, "topicId"); id != "" {
			c.registry.JoinRoom(c.id, TopicRoom(id))
		}
	case msgLeaveTopic:
		if id := decodeStringData(msg.Data, "topicId"); id != "" {
			c.registry.LeaveRoom(c.id, TopicRoom(id))
		}

	case msgJoinCollection:
		if id := decodeStringData(msg.Data, "collectionId"); id != "" {
			c.registry.JoinRoom(c.id, CollectionRoom(id))
		}
	case msgLeaveCollection:
		if id := decodeStringData(msg.Data, "collectionId"); id != "" {
			c.registry.LeaveRoom(c.id, CollectionRoom(id))
		}

	case msgSubscribeTweets:
		var sub tweetsSubscription
		if len(msg.Data) > 0 {
			_ = json.Unmarshal(msg.Data, &sub)
		}
		// Filters are advisory; the shared feed room drives delivery.
		logging.Debug().
			Str("connection_id", c.id).
			Int("user_filters", len(sub.UserIDs)).
			Int("keyword_filters", len(sub.Keywords)).
			Msg("feed subscription")
		c.registry.JoinRoom(c.id, FeedRoom)
	case msgUnsubscribeTweet:
		c.registry.LeaveRoom(c.id, FeedRoom)

	case msgSubscribeTrends:
		location := decodeStringData(msg.Data, "location")
		if location == "" {
			location = "global"
		}
		c.registry.JoinRoom(c.id, TrendsRoom(location))
	case msgUnsubscribeTrend:
		if location := decodeStringData(msg.Data, "location"); location != "" {
			c.registry.LeaveRoom(c.id, TrendsRoom(location))
		}

	default:
		logging.Debug().Str("type", msg.Type).Msg("ignoring unknown client message type")
	}
}

// writePump writes queued messages and periodic liveness pings until the
// client is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				logging.Debug().Err(err).Str("connection_id", c.id).Msg("write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			ping := NewMessage(EventPing, PingData{Timestamp: time.Now().UTC()})
			if err := c.conn.WriteJSON(ping); err != nil {
				return
			}
		}
	}
}

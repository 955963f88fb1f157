/*
Package signaling implements the room membership and signaling relay core.

This file defines the Client, the WebSocket side of one connection. Its read pump feeds
frames to the Manager in arrival order and its write pump drains the send queue.
*/
package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rtcsignal/internal/pkg/errs"
	"rtcsignal/internal/pkg/logx"
	"rtcsignal/internal/pkg/metrics"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client; SDP blobs fit.
	maxMessageSize = 64 * 1024

	// DefaultSendQueueSize is used when ClientOptions.SendQueueSize is not positive.
	DefaultSendQueueSize = 256
)

// ClientOptions configures a Client.
type ClientOptions struct {
	// ID is the connection id; the handler generates it.
	ID string

	// SendQueueSize is the number of outbound frames buffered before the client is
	// considered too slow and disconnected.
	SendQueueSize int

	// EventRate and EventBurst bound inbound frames. A zero EventRate disables the limit.
	EventRate  rate.Limit
	EventBurst int
}

// Client is an active WebSocket connection. It implements Peer.
type Client struct {
	id      string
	conn    *websocket.Conn
	manager *Manager

	// a buffered channel used to queue frames waiting to be written.
	send chan []byte

	// closed once the client should stop; never closes send.
	done      chan struct{}
	closeOnce sync.Once

	limiter *rate.Limiter

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(manager *Manager, wsConn *websocket.Conn, opts ClientOptions) *Client {
	queueSize := opts.SendQueueSize
	if queueSize <= 0 {
		queueSize = DefaultSendQueueSize
	}

	var limiter *rate.Limiter
	if opts.EventRate > 0 {
		limiter = rate.NewLimiter(opts.EventRate, max(opts.EventBurst, 1))
	}

	return &Client{
		id:      opts.ID,
		conn:    wsConn,
		manager: manager,
		send:    make(chan []byte, queueSize),
		done:    make(chan struct{}),
		limiter: limiter,
		logger: logx.Logger().With().
			Str("component", "Client").
			Str("conn_id", opts.ID).
			Logger(),
	}
}

// ID returns the connection id.
func (c *Client) ID() string {
	return c.id
}

// Deliver queues frame for the write pump. A full queue drops the frame and closes
// the connection so a slow reader cannot stall a room.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, closing connection.")
		c.Close()
		return false
	}
}

// Close signals both pumps to stop. It is safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump reads frames until the connection fails, then detaches the client from the
// Manager. Frames are handled synchronously so per-connection order is preserved.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			c.manager.Reject(c, metrics.ReasonRateLimited, errs.NewError(errs.ErrEventRateExceeded))
			continue
		}

		// Handle reports failures to the client itself.
		_ = c.manager.Handle(c, raw)
	}
}

// cleanupOnDisconnect detaches the client and closes the socket.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.Close()
	c.manager.Disconnect(c.id)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// WritePump writes queued frames and keepalive pings until the client is closed or a
// write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// write sends one message under the write deadline and reports success.
func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

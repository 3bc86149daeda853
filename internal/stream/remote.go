package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/cargotrack/routeplay/pkg/streaming"
)

const (
	remoteSendChSize = 256
	remoteMsgChSize  = 1024
	replyChSize      = 16
	maxReconnect     = 10
	maxBackoff       = 30 * time.Second
)

// ErrClosed is returned by a Remote after Close.
var ErrClosed = errors.New("remote connection closed")

// Remote is the other end of a Hub: it follows a playback from another
// process and sends it commands. It reconnects with backoff and declares
// its layout again after every reconnect.
type Remote struct {
	mu      sync.Mutex
	conn    *ws.Conn
	sendCh  chan []byte
	replyCh chan streaming.ReplyPayload
	msgCh   chan streaming.Envelope
	done    chan struct{}
	closed  bool
	nextID  atomic.Uint64

	wsURL  string
	secret string

	// Cached layout message for reconnect replay.
	cachedLayout []byte

	logger *slog.Logger
}

// Dial connects to a hub at rawURL.
func Dial(rawURL, secret string, logger *slog.Logger) (*Remote, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Remote{
		sendCh:  make(chan []byte, remoteSendChSize),
		replyCh: make(chan streaming.ReplyPayload, replyChSize),
		msgCh:   make(chan streaming.Envelope, remoteMsgChSize),
		done:    make(chan struct{}),
		wsURL:   rawURL,
		secret:  secret,
		logger:  logger,
	}

	conn, err := r.dialOnce()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	go r.writeLoop(conn)
	go r.readLoop()

	return r, nil
}

// dialOnce performs a single WebSocket dial with the secret query param.
func (r *Remote) dialOnce() (*ws.Conn, error) {
	u, err := url.Parse(r.wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	if r.secret != "" {
		q := u.Query()
		q.Set("secret", r.secret)
		u.RawQuery = q.Encode()
	}

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// Messages delivers every display message the hub sends. Messages are
// dropped when nobody reads.
func (r *Remote) Messages() <-chan streaming.Envelope {
	return r.msgCh
}

// SetLayout declares the element ids this side renders.
func (r *Remote) SetLayout(ids ...string) error {
	data, err := streaming.MarshalEnvelope(streaming.TypeLayout, streaming.LayoutPayload{Elements: ids})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cachedLayout = data
	r.mu.Unlock()

	return r.send(data)
}

// Command runs command on the hub and waits for its reply.
func (r *Remote) Command(ctx context.Context, command string, args ...string) (json.RawMessage, error) {
	id := strconv.FormatUint(r.nextID.Add(1), 10)
	data, err := streaming.MarshalEnvelope(streaming.TypeCommand, streaming.CommandPayload{ID: id, Command: command, Args: args})
	if err != nil {
		return nil, err
	}
	if err := r.send(data); err != nil {
		return nil, err
	}

	for {
		select {
		case reply := <-r.replyCh:
			if reply.ID != id {
				// Not our reply, keep waiting.
				continue
			}
			if reply.Error != "" {
				return nil, fmt.Errorf("%s: %s", command, reply.Error)
			}
			return reply.Result, nil
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for reply to %q: %w", command, ctx.Err())
		case <-r.done:
			return nil, ErrClosed
		}
	}
}

// send pushes data to the write loop. Non-blocking; drops if channel full.
func (r *Remote) send(data []byte) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}
	select {
	case <-r.done:
		return ErrClosed
	case r.sendCh <- data:
		return nil
	default:
		r.logger.Warn("WebSocket send channel full, dropping message")
		return errors.New("send channel full")
	}
}

// writeLoop drains sendCh and writes messages to conn. It is the only
// writer of data frames on conn and returns once conn is replaced, on error
// or on shutdown.
func (r *Remote) writeLoop(conn *ws.Conn) {
	for {
		select {
		case <-r.done:
			return
		case data := <-r.sendCh:
			r.mu.Lock()
			current := r.conn
			r.mu.Unlock()

			if current != conn {
				// a reconnect owns the connection now
				select {
				case r.sendCh <- data:
				default:
				}
				return
			}

			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				r.logger.Warn("WebSocket SetWriteDeadline error", "error", err)
				go r.reconnect()
				return
			}
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				r.logger.Warn("WebSocket write error", "error", err)
				go r.reconnect()
				return
			}
		}
	}
}

// readLoop routes replies to Command and everything else to Messages.
func (r *Remote) readLoop() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
				return
			default:
			}
			r.logger.Warn("WebSocket read error", "error", err)
			go r.reconnect()
			return
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			r.logger.Debug("Malformed message received", "raw", string(message))
			continue
		}

		if env.Type == streaming.TypeReply {
			var reply streaming.ReplyPayload
			if err := json.Unmarshal(env.Payload, &reply); err != nil {
				r.logger.Debug("Malformed reply", "error", err)
				continue
			}
			select {
			case r.replyCh <- reply:
			default:
				r.logger.Debug("Reply channel full, dropping", "id", reply.ID)
			}
			continue
		}

		select {
		case r.msgCh <- env:
		default:
			r.logger.Debug("Message channel full, dropping", "type", env.Type)
		}
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. On success it replays the cached layout message and
// restarts the read/write loops.
func (r *Remote) reconnect() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
	r.mu.Unlock()

	backoff := time.Second
	for attempt := 1; attempt <= maxReconnect; attempt++ {
		select {
		case <-r.done:
			return
		case <-time.After(backoff):
		}

		r.logger.Info("Reconnecting to WebSocket", "attempt", attempt, "backoff", backoff)

		conn, err := r.dialOnce()
		if err != nil {
			r.logger.Warn("Reconnect dial failed", "attempt", attempt, "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		r.mu.Lock()
		r.conn = conn
		cached := r.cachedLayout
		r.mu.Unlock()

		if cached != nil {
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				r.logger.Warn("Failed to set deadline for layout replay", "error", err)
				_ = conn.Close()
				continue
			}
			if err := conn.WriteMessage(ws.TextMessage, cached); err != nil {
				r.logger.Warn("Failed to replay layout after reconnect", "error", err)
				_ = conn.Close()
				continue
			}
		}

		r.logger.Info("WebSocket reconnected", "attempt", attempt)
		go r.writeLoop(conn)
		go r.readLoop()
		return
	}

	r.logger.Error("WebSocket reconnect failed after max attempts", "maxAttempts", maxReconnect)
}

// Close sends a WebSocket close frame and shuts down all goroutines.
func (r *Remote) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn != nil {
		// WriteControl may run alongside the write loop's WriteMessage.
		_ = conn.WriteControl(
			ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		return conn.Close()
	}
	return nil
}

package drivers

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"nami/events"
)

const (
	MIN_RECONNECT_DELAY = 500 * time.Millisecond
	MAX_RECONNECT_DELAY = 10 * time.Second
)

// Websocket receives director events over the director's event socket and sends operator control frames back on the
// same connection. It reconnects with capped exponential backoff until its context ends.
type Websocket struct {
	url      string
	origin   string
	eventHub *events.EventHub
	logger   *slog.Logger

	wsConfig *websocket.Config

	mu   sync.Mutex
	conn *websocket.Conn

	minDelay time.Duration
	maxDelay time.Duration
}

func NewWebsocket(url, origin string, eventHub *events.EventHub, logger *slog.Logger) *Websocket {
	return &Websocket{
		url:      url,
		origin:   origin,
		eventHub: eventHub,
		logger:   logger,
		minDelay: MIN_RECONNECT_DELAY,
		maxDelay: MAX_RECONNECT_DELAY,
	}
}

func (w *Websocket) Init() error {
	wsConfig, err := websocket.NewConfig(w.url, w.origin)
	if err != nil {
		return fmt.Errorf("websocket config for %s: %w", w.url, err)
	}
	w.wsConfig = wsConfig
	return nil
}

func (w *Websocket) Run(ctx context.Context) error {
	delay := w.minDelay
	for {
		conn, err := w.wsConfig.DialContext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Warn("dial director events", "url", w.url, "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			delay = min(delay*2, w.maxDelay)
			continue
		}

		w.logger.Info("connected to director events", "url", w.url)
		delay = w.minDelay
		w.setConn(conn)
		err = w.receive(ctx, conn)
		w.setConn(nil)
		_ = conn.Close()

		if ctx.Err() != nil {
			return nil
		}
		w.logger.Warn("director events disconnected", "error", err)
	}
}

func (w *Websocket) receive(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var frame []byte
		if err := websocket.Message.Receive(conn, &frame); err != nil {
			return err
		}
		event, err := events.ParseFrame(frame)
		if err != nil {
			w.logger.Warn("skip frame", "error", err)
			continue
		}
		w.eventHub.Broadcast(event)
	}
}

// Send writes a control frame to the director. It fails with ErrNotConnected while the socket is down.
func (w *Websocket) Send(ctx context.Context, event *events.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return ErrNotConnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = w.conn.SetWriteDeadline(deadline)
		defer func() { _ = w.conn.SetWriteDeadline(time.Time{}) }()
	}
	if err := websocket.JSON.Send(w.conn, event); err != nil {
		return fmt.Errorf("send %s: %w", event.Name, err)
	}
	return nil
}

func (w *Websocket) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn != nil
}

func (w *Websocket) setConn(conn *websocket.Conn) {
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
}

var _ Sender = (*Websocket)(nil)

// readOnly wraps drivers that have no way to talk back to the director.
type readOnly struct{}

func (readOnly) Send(context.Context, *events.Event) error {
	return ErrReadOnlyTransport
}

// SenderFor returns the driver's Sender, or one that always fails with ErrReadOnlyTransport.
func SenderFor(driver Driver) Sender {
	if s, ok := driver.(Sender); ok {
		return s
	}
	return readOnly{}
}

package rabbit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hayago/tracking-service/internal/domain/types"
	"github.com/hayago/tracking-service/pkg/logger"
	wrap "github.com/hayago/tracking-service/pkg/logger/wrapper"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	heartbeatInterval = 10 * time.Second

	reconnectAttempts = 5
	reconnectBackoff  = 2 * time.Second
)

// RabbitMQ holds a single connection and channel pair. Publishers share the
// channel; the broker layer serializes access through retry helpers.
type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel

	mu       sync.Mutex
	notify   chan *amqp.Error
	isClosed bool
	dsn      string

	log logger.Logger
}

// New dials the broker and opens a channel. The returned client watches for
// connection loss in the background; callers recover via EnsureConnection.
func New(ctx context.Context, dsn string, log logger.Logger) (*RabbitMQ, error) {
	conn, channel, err := dial(dsn)
	if err != nil {
		return nil, err
	}

	log.Info(wrap.WithAction(ctx, types.ActionRabbitMQConnected), "connected to rabbitMQ")

	r := &RabbitMQ{
		Conn:    conn,
		Channel: channel,
		notify:  watchClose(conn, channel),
		dsn:     dsn,
		log:     log,
	}

	go r.monitor()

	return r, nil
}

func dial(dsn string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(dsn, amqp.Config{Heartbeat: heartbeatInterval})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	return conn, channel, nil
}

// watchClose merges connection and channel close notifications into a single
// channel so the monitor only has one thing to wait on.
func watchClose(conn *amqp.Connection, channel *amqp.Channel) chan *amqp.Error {
	connClosed := make(chan *amqp.Error, 1)
	chClosed := make(chan *amqp.Error, 1)

	conn.NotifyClose(connClosed)
	channel.NotifyClose(chClosed)

	merged := make(chan *amqp.Error, 2)
	go func() {
		select {
		case err := <-connClosed:
			merged <- err
		case err := <-chClosed:
			merged <- err
		}
	}()

	return merged
}

func (r *RabbitMQ) monitor() {
	closeErr := <-r.notify

	r.mu.Lock()
	r.isClosed = true
	r.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), types.ActionRabbitConnectionClosed)
	if closeErr != nil {
		r.log.Error(ctx, "RabbitMQ connection closed with error", closeErr)
	} else {
		r.log.Debug(ctx, "RabbitMQ connection closed gracefully")
	}
}

// IsConnectionClosed reports whether the connection or channel is gone.
func (r *RabbitMQ) IsConnectionClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Conn == nil || r.Channel == nil {
		return true
	}
	return r.isClosed || r.Conn.IsClosed() || r.Channel.IsClosed()
}

// Reconnect re-dials with backoff. No-op when the connection is still live.
func (r *RabbitMQ) Reconnect(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dsn == "" {
		return fmt.Errorf("dsn is empty: can't reconnect")
	}

	if !r.isClosed && r.Conn != nil && !r.Conn.IsClosed() && r.Channel != nil && !r.Channel.IsClosed() {
		return nil
	}

	var (
		conn    *amqp.Connection
		channel *amqp.Channel
		err     error
	)

	for i := range reconnectAttempts {
		conn, channel, err = dial(r.dsn)
		if err == nil {
			break
		}

		wait := time.Duration(i+1) * reconnectBackoff
		r.log.Debug(ctx, fmt.Sprintf("reconnect attempt %d failed, retrying in %v", i+1, wait))

		select {
		case <-ctx.Done():
			r.log.Debug(ctx, "shutting down, stopping reconnect attempts")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}

	r.Conn = conn
	r.Channel = channel
	r.notify = watchClose(conn, channel)
	r.isClosed = false

	go r.monitor()

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitReconnected), "RabbitMQ reconnected successfully")

	return nil
}

// EnsureConnection reconnects if the link was lost since the last use.
func (r *RabbitMQ) EnsureConnection(ctx context.Context) error {
	if !r.IsConnectionClosed() {
		return nil
	}

	r.log.Warn(ctx, "rabbit connection closed, reconnecting...")
	if err := r.Reconnect(ctx); err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}
	return nil
}

// Close tears down the channel and connection. Safe to call more than once;
// honours ctx so shutdown cannot hang on a wedged broker.
func (r *RabbitMQ) Close(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionRabbitConnectionClosing)

	r.mu.Lock()
	if r.isClosed && r.Conn == nil {
		r.mu.Unlock()
		return nil
	}
	r.isClosed = true
	channel := r.Channel
	conn := r.Conn
	r.Channel = nil
	r.Conn = nil
	r.mu.Unlock()

	r.log.Debug(ctx, "closing channel")

	if channel != nil {
		if err := closeWithCtx(ctx, channel.Close); err != nil {
			if ctx.Err() != nil {
				r.log.Debug(ctx, "context cancelled while closing channel")
			} else {
				r.log.Error(ctx, "error closing channel", err)
			}
		}
	}

	r.log.Debug(ctx, "closing RabbitMQ connection")

	if conn != nil {
		if err := closeWithCtx(ctx, conn.Close); err != nil {
			if ctx.Err() != nil {
				r.log.Debug(ctx, "context cancelled while closing connection")
				return ctx.Err()
			}
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}

	r.log.Info(wrap.WithAction(ctx, types.ActionRabbitConnectionClosed), "rabbitMQ closed")

	return nil
}

func closeWithCtx(ctx context.Context, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		// The goroutine can still write into the buffered channel and exit.
		return ctx.Err()
	}
}

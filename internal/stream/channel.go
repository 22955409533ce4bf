package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sysmonk/internal/system"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrChannelSend ends a channel whose snapshot could not be delivered.
	ErrChannelSend = errors.New("channel send failed")
	// ErrPeerClosed ends a channel whose peer went away.
	ErrPeerClosed = errors.New("peer closed the channel")
	// ErrLifetimeExceeded ends a channel that outlived the session duration.
	ErrLifetimeExceeded = errors.New("session expired")
)

// Frame is one inbound data frame.
type Frame struct {
	Binary bool
	Data   []byte
}

// Conn is the transport a channel runs on. Writes may be called from
// several goroutines and must be serialized by the implementation.
type Conn interface {
	// WriteSnapshot sends one serialized snapshot.
	WriteSnapshot(data []byte) error
	// ReadFrame blocks until the next text or binary frame arrives.
	ReadFrame() (Frame, error)
	// WriteFrame echoes a frame back to the peer.
	WriteFrame(f Frame) error
	// Close tears the connection down. It must be safe to call more than once.
	Close(reason string) error
}

// Channel pushes snapshots to a peer on a fixed interval, echoes inbound
// frames and closes the connection once lifetime has elapsed.
type Channel struct {
	provider system.Provider
	interval time.Duration
	lifetime time.Duration
	log      zerolog.Logger
}

// NewChannel creates a Channel
func NewChannel(provider system.Provider, interval, lifetime time.Duration, log zerolog.Logger) *Channel {
	return &Channel{
		provider: provider,
		interval: interval,
		lifetime: lifetime,
		log:      log,
	}
}

// Serve runs the push loop, receive loop and expiry timer until the first
// of them stops, then cancels the others and closes conn. The returned
// error tells why the channel ended.
func (c *Channel) Serve(parent context.Context, conn Conn) error {
	g, ctx := errgroup.WithContext(parent)

	g.Go(func() error { return c.push(ctx, conn) })
	g.Go(func() error { return c.receive(conn) })
	g.Go(func() error { return c.expire(ctx) })

	// closing the connection is what unblocks the receive loop
	g.Go(func() error {
		<-ctx.Done()
		reason := "closing"
		if errors.Is(context.Cause(ctx), ErrLifetimeExceeded) {
			reason = ErrLifetimeExceeded.Error()
		}
		_ = conn.Close(reason)
		return nil
	})

	err := g.Wait()
	if parent.Err() != nil {
		return parent.Err()
	}
	return err
}

func (c *Channel) push(ctx context.Context, conn Conn) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if err := c.pushOnce(ctx, conn); err != nil {
			return err
		}
		timer.Reset(c.interval)
	}
}

// pushOnce computes and sends a single snapshot. A provider failure is
// logged and skipped; a send failure is terminal.
func (c *Channel) pushOnce(ctx context.Context, conn Conn) error {
	snapshot, err := c.provider.Snapshot(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("skipping snapshot")
		return nil
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := conn.WriteSnapshot(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelSend, err)
	}
	return nil
}

func (c *Channel) receive(conn Conn) error {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPeerClosed, err)
		}
		if err := conn.WriteFrame(frame); err != nil {
			return fmt.Errorf("%w: %v", ErrChannelSend, err)
		}
	}
}

func (c *Channel) expire(ctx context.Context) error {
	timer := time.NewTimer(c.lifetime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrLifetimeExceeded
	}
}

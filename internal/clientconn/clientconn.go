// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package clientconn implements the client side of the reservation
// protocol: a UDP connection bound to the server, a monotonically
// increasing request id counter, and the at-most-once/at-least-once
// invocation loop that retransmits under a retry.Policy.
package clientconn

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"sync/atomic"
	"time"

	"github.com/jontk/reservation-protocol/internal/wire"
	"github.com/jontk/reservation-protocol/pkg/config"
	"github.com/jontk/reservation-protocol/pkg/logging"
	"github.com/jontk/reservation-protocol/pkg/retry"
)

// maxAttempts translates ClientConfig.MaxRetries' "0 means retry forever"
// convention into a BackoffStrategy.MaxAttempts ceiling, which has no such
// convention of its own.
func maxAttempts(maxRetries int) int {
	if maxRetries <= 0 {
		return math.MaxInt32
	}
	return maxRetries
}

// Notification is one unsolicited monitor-push datagram received outside
// the normal request/reply exchange.
type Notification struct {
	Facility         string
	AvailabilityText string
}

// Conn is a client-side UDP connection to a reservation server.
type Conn struct {
	cfg      *config.ClientConfig
	logger   logging.Logger
	retry    retry.Policy
	conn     *net.UDPConn
	nextID   int32
	notifyCh chan Notification
}

// Dial opens a UDP connection to the server named in cfg.
func Dial(cfg *config.ClientConfig, logger logging.Logger) (*Conn, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("resolve server address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial server: %w", err)
	}

	var policy retry.Policy
	switch {
	case cfg.Semantics == config.AtMostOnce:
		policy = retry.NewNoRetry()
	case cfg.RetryBackoff == config.RetryBackoffExponential:
		backoff := retry.NewExponentialBackoff()
		backoff.InitialDelay = cfg.AtLeastOnceTimeout
		backoff.MaxAttempts = maxAttempts(cfg.MaxRetries)
		policy = retry.NewBackoffPolicy(backoff)
	case cfg.RetryBackoff == config.RetryBackoffLinear:
		backoff := retry.NewLinearBackoff()
		backoff.InitialDelay = cfg.AtLeastOnceTimeout
		backoff.Increment = cfg.AtLeastOnceTimeout
		backoff.MaxAttempts = maxAttempts(cfg.MaxRetries)
		policy = retry.NewBackoffPolicy(backoff)
	default:
		policy = retry.NewFixedDelay(cfg.MaxRetries, 0)
	}

	return &Conn{
		cfg:      cfg,
		logger:   logger,
		retry:    policy,
		conn:     conn,
		notifyCh: make(chan Notification, 16),
	}, nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Notifications returns the channel monitor-push datagrams arrive on.
// The socket is read only while Invoke waits for a reply, so pushes that
// arrive between calls are forwarded during the next call's wait.
func (c *Conn) Notifications() <-chan Notification {
	return c.notifyCh
}

// nextRequestID returns the next request id in the client's monotonically
// increasing sequence.
func (c *Conn) nextRequestID() int32 {
	return atomic.AddInt32(&c.nextID, 1)
}

// timeout returns the per-attempt wait time for the configured semantics.
func (c *Conn) timeout() time.Duration {
	if c.cfg.Semantics == config.AtMostOnce {
		return c.cfg.AtMostOnceTimeout
	}
	return c.cfg.AtLeastOnceTimeout
}

// Invoke sends one request datagram and returns the decoded reply body,
// retransmitting according to the configured semantics until a reply
// arrives, the retry policy gives up, or ctx is cancelled. Monitor-push
// notifications received while waiting are forwarded to Notifications
// and do not satisfy the call.
func (c *Conn) Invoke(ctx context.Context, op wire.Operation, payload []byte) (string, error) {
	requestID := c.nextRequestID()
	datagram, err := wire.EncodeDatagram(wire.Header{RequestID: requestID, OperationType: op}, payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if c.cfg.LossProbability > 0 && rand.Float64() < c.cfg.LossProbability {
			c.logger.Debug("simulated outbound loss", "op", op.String(), "requestId", requestID)
		} else if _, err := c.conn.Write(datagram); err != nil {
			return "", fmt.Errorf("write datagram: %w", err)
		}

		reply, err := c.awaitReply(requestID)
		if err == nil {
			return reply, nil
		}
		lastErr = err

		if !c.retry.ShouldRetry(ctx, err, attempt) {
			return "", fmt.Errorf("request %d (%s) failed after %d attempt(s): %w", requestID, op, attempt+1, lastErr)
		}
		c.logger.Debug("retransmitting request", "op", op.String(), "requestId", requestID, "attempt", attempt+1)

		if wait := c.retry.WaitTime(attempt); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}
}

// awaitReply reads datagrams until one matching requestID arrives or the
// per-attempt timeout elapses. Monitor-push notifications encountered
// along the way are forwarded and skipped.
func (c *Conn) awaitReply(requestID int32) (string, error) {
	deadline := time.Now().Add(c.timeout())
	buf := make([]byte, 1024)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", errTimeout{}
		}
		c.conn.SetReadDeadline(deadline)
		n, err := c.conn.Read(buf)
		if err != nil {
			return "", errTimeout{cause: err}
		}

		dg, ok := wire.DecodeDatagram(buf[:n])
		if !ok {
			continue
		}

		if dg.Header.RequestID == wire.NotificationRequestID && dg.Header.OperationType == wire.MonitorAvailability {
			facility, text, err := wire.DecodeMonitorNotification(dg.Payload)
			if err == nil {
				c.deliverNotification(Notification{Facility: facility, AvailabilityText: text})
			}
			continue
		}

		if dg.Header.RequestID != requestID {
			continue
		}
		return wire.DecodeReplyText(dg.Payload), nil
	}
}

func (c *Conn) deliverNotification(n Notification) {
	select {
	case c.notifyCh <- n:
	default:
		c.logger.Warn("dropping monitor notification: channel full", "facility", n.Facility)
	}
}

// errTimeout reports that a reply did not arrive before the deadline.
type errTimeout struct {
	cause error
}

func (e errTimeout) Error() string {
	if e.cause != nil {
		return "timed out waiting for reply: " + e.cause.Error()
	}
	return "timed out waiting for reply"
}

func (e errTimeout) Unwrap() error {
	return e.cause
}

// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package clientconn

import (
	"context"

	"github.com/jontk/reservation-protocol/internal/wire"
)

// Query requests the availability of facility on the given days.
func (c *Conn) Query(ctx context.Context, facility string, days []int) (string, error) {
	payload, err := wire.EncodeQuery(wire.QueryRequest{Facility: facility, Days: days})
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, wire.Query, payload)
}

// Book requests a new reservation on facility for [start,end).
func (c *Conn) Book(ctx context.Context, facility string, start, end wire.DateTime) (string, error) {
	payload, err := wire.EncodeBook(wire.BookRequest{Facility: facility, Start: start, End: end})
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, wire.Book, payload)
}

// Change shifts an existing reservation by offsetMinutes.
func (c *Conn) Change(ctx context.Context, confirmationID string, offsetMinutes int32) (string, error) {
	payload, err := wire.EncodeChange(wire.ChangeRequest{ConfirmationID: confirmationID, OffsetMinutes: offsetMinutes})
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, wire.Change, payload)
}

// Extend lengthens or shortens an existing reservation's end time.
func (c *Conn) Extend(ctx context.Context, confirmationID string, extendMinutes int32) (string, error) {
	payload, err := wire.EncodeExtend(wire.ExtendRequest{ConfirmationID: confirmationID, ExtendMinutes: extendMinutes})
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, wire.Extend, payload)
}

// Monitor subscribes to availability-change notifications for facility for
// intervalMinutes.
func (c *Conn) Monitor(ctx context.Context, facility string, intervalMinutes int32) (string, error) {
	payload, err := wire.EncodeMonitor(wire.MonitorRequest{Facility: facility, IntervalMinutes: intervalMinutes})
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, wire.Monitor, payload)
}

// Status requests the server's current operational summary.
func (c *Conn) Status(ctx context.Context) (string, error) {
	payload, err := wire.EncodeStatus(wire.StatusRequest{})
	if err != nil {
		return "", err
	}
	return c.Invoke(ctx, wire.Status, payload)
}

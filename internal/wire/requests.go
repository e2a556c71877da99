// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// QueryRequest asks for the availability of a facility on a set of days.
type QueryRequest struct {
	Facility string
	Days     []int
}

// BookRequest asks for a new reservation on a facility.
type BookRequest struct {
	Facility string
	Start    DateTime
	End      DateTime
}

// ChangeRequest shifts an existing reservation by a signed offset in
// minutes, applied to both endpoints.
type ChangeRequest struct {
	ConfirmationID string
	OffsetMinutes  int32
}

// MonitorRequest subscribes the sending client to change notifications for
// a facility for the given number of minutes.
type MonitorRequest struct {
	Facility        string
	IntervalMinutes int32
}

// StatusRequest carries no fields; its payload is always empty.
type StatusRequest struct{}

// ExtendRequest lengthens or shortens an existing reservation's end time by
// a signed number of minutes.
type ExtendRequest struct {
	ConfirmationID string
	ExtendMinutes  int32
}

// EncodeQuery serializes a QUERY payload: the facility name followed by one
// 4-byte day code per requested day.
func EncodeQuery(r QueryRequest) ([]byte, error) {
	w := &writer{}
	if err := w.writeString(r.Facility); err != nil {
		return nil, err
	}
	for _, d := range r.Days {
		w.writeInt32(int32(d))
	}
	return w.buf, nil
}

// DecodeQuery parses a QUERY payload. At least one day code must follow the
// facility name.
func DecodeQuery(payload []byte) (QueryRequest, error) {
	r := newReader(payload)
	facility, err := r.readString()
	if err != nil {
		return QueryRequest{}, fmt.Errorf("query facility: %w", err)
	}
	if r.remaining() == 0 {
		return QueryRequest{}, fmt.Errorf("query requires at least one day code")
	}
	if r.remaining()%4 != 0 {
		return QueryRequest{}, fmt.Errorf("query day list misaligned: %d trailing bytes", r.remaining())
	}
	var days []int
	for r.remaining() > 0 {
		d, err := r.readInt32()
		if err != nil {
			return QueryRequest{}, fmt.Errorf("query day code: %w", err)
		}
		days = append(days, int(d))
	}
	return QueryRequest{Facility: facility, Days: days}, nil
}

// EncodeBook serializes a BOOK payload.
func EncodeBook(r BookRequest) ([]byte, error) {
	w := &writer{}
	if err := w.writeString(r.Facility); err != nil {
		return nil, err
	}
	w.writeDateTime(r.Start)
	w.writeDateTime(r.End)
	return w.buf, nil
}

// DecodeBook parses a BOOK payload.
func DecodeBook(payload []byte) (BookRequest, error) {
	r := newReader(payload)
	facility, err := r.readString()
	if err != nil {
		return BookRequest{}, fmt.Errorf("book facility: %w", err)
	}
	start, err := r.readDateTime()
	if err != nil {
		return BookRequest{}, fmt.Errorf("book start: %w", err)
	}
	end, err := r.readDateTime()
	if err != nil {
		return BookRequest{}, fmt.Errorf("book end: %w", err)
	}
	if r.remaining() != 0 {
		return BookRequest{}, fmt.Errorf("book payload has %d trailing bytes", r.remaining())
	}
	return BookRequest{Facility: facility, Start: start, End: end}, nil
}

// EncodeChange serializes a CHANGE payload.
func EncodeChange(r ChangeRequest) ([]byte, error) {
	w := &writer{}
	if err := w.writeString(r.ConfirmationID); err != nil {
		return nil, err
	}
	w.writeInt32(r.OffsetMinutes)
	return w.buf, nil
}

// DecodeChange parses a CHANGE payload.
func DecodeChange(payload []byte) (ChangeRequest, error) {
	r := newReader(payload)
	id, err := r.readString()
	if err != nil {
		return ChangeRequest{}, fmt.Errorf("change confirmation id: %w", err)
	}
	offset, err := r.readInt32()
	if err != nil {
		return ChangeRequest{}, fmt.Errorf("change offset: %w", err)
	}
	if r.remaining() != 0 {
		return ChangeRequest{}, fmt.Errorf("change payload has %d trailing bytes", r.remaining())
	}
	return ChangeRequest{ConfirmationID: id, OffsetMinutes: offset}, nil
}

// EncodeMonitor serializes a MONITOR payload.
func EncodeMonitor(r MonitorRequest) ([]byte, error) {
	w := &writer{}
	if err := w.writeString(r.Facility); err != nil {
		return nil, err
	}
	w.writeInt32(r.IntervalMinutes)
	return w.buf, nil
}

// DecodeMonitor parses a MONITOR payload. IntervalMinutes must be positive.
func DecodeMonitor(payload []byte) (MonitorRequest, error) {
	r := newReader(payload)
	facility, err := r.readString()
	if err != nil {
		return MonitorRequest{}, fmt.Errorf("monitor facility: %w", err)
	}
	interval, err := r.readInt32()
	if err != nil {
		return MonitorRequest{}, fmt.Errorf("monitor interval: %w", err)
	}
	if r.remaining() != 0 {
		return MonitorRequest{}, fmt.Errorf("monitor payload has %d trailing bytes", r.remaining())
	}
	if interval <= 0 {
		return MonitorRequest{}, fmt.Errorf("monitor interval %d must be positive", interval)
	}
	return MonitorRequest{Facility: facility, IntervalMinutes: interval}, nil
}

// EncodeStatus serializes a STATUS payload, always empty.
func EncodeStatus(StatusRequest) ([]byte, error) {
	return nil, nil
}

// DecodeStatus parses a STATUS payload, which must be empty.
func DecodeStatus(payload []byte) (StatusRequest, error) {
	if len(payload) != 0 {
		return StatusRequest{}, fmt.Errorf("status payload must be empty, got %d bytes", len(payload))
	}
	return StatusRequest{}, nil
}

// EncodeExtend serializes an EXTEND payload.
func EncodeExtend(r ExtendRequest) ([]byte, error) {
	w := &writer{}
	if err := w.writeString(r.ConfirmationID); err != nil {
		return nil, err
	}
	w.writeInt32(r.ExtendMinutes)
	return w.buf, nil
}

// DecodeExtend parses an EXTEND payload.
func DecodeExtend(payload []byte) (ExtendRequest, error) {
	r := newReader(payload)
	id, err := r.readString()
	if err != nil {
		return ExtendRequest{}, fmt.Errorf("extend confirmation id: %w", err)
	}
	extend, err := r.readInt32()
	if err != nil {
		return ExtendRequest{}, fmt.Errorf("extend minutes: %w", err)
	}
	if r.remaining() != 0 {
		return ExtendRequest{}, fmt.Errorf("extend payload has %d trailing bytes", r.remaining())
	}
	return ExtendRequest{ConfirmationID: id, ExtendMinutes: extend}, nil
}

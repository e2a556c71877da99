// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the fixed-schema binary codec exchanged between
// the reservation client and server over a datagram transport: a 7-byte
// header, length-prefixed strings, and the fixed-field DateTime and
// per-operation request bodies.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Operation identifies the kind of request or reply carried by a datagram.
type Operation byte

const (
	Query   Operation = 1
	Book    Operation = 2
	Change  Operation = 3
	Monitor Operation = 4
	Status  Operation = 5
	Extend  Operation = 6
)

// MonitorAvailability is the operationType stamped on an unsolicited
// server-push notification delivered to a monitor subscriber. It reuses
// the Monitor opcode; the notification is distinguished on the wire by
// requestId == NotificationRequestID, not by a distinct opcode value.
const MonitorAvailability = Monitor

// NotificationRequestID marks an unsolicited server-push datagram, as
// opposed to a reply correlated with a client-chosen request id.
const NotificationRequestID int32 = -1

func (o Operation) String() string {
	switch o {
	case Query:
		return "QUERY"
	case Book:
		return "BOOK"
	case Change:
		return "CHANGE"
	case Monitor:
		return "MONITOR"
	case Status:
		return "STATUS"
	case Extend:
		return "EXTEND"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(o))
	}
}

// Valid reports whether o is one of the six defined operations.
func (o Operation) Valid() bool {
	switch o {
	case Query, Book, Change, Monitor, Status, Extend:
		return true
	default:
		return false
	}
}

// HeaderSize is the fixed size in bytes of every datagram's header.
const HeaderSize = 7

// MaxPayloadLen is the largest payload length the 16-bit signed length
// field can represent.
const MaxPayloadLen = 1<<15 - 1

// Header is the fixed 7-byte prefix of every datagram: requestId (4 bytes),
// operationType (1 byte), payloadLength (2 bytes), all big-endian.
type Header struct {
	RequestID     int32
	OperationType Operation
	PayloadLength int16
}

// PutHeader encodes h into the first HeaderSize bytes of dst, which must be
// at least HeaderSize bytes long.
func PutHeader(dst []byte, h Header) {
	binary.BigEndian.PutUint32(dst[0:4], uint32(h.RequestID))
	dst[4] = byte(h.OperationType)
	binary.BigEndian.PutUint16(dst[5:7], uint16(h.PayloadLength))
}

// DecodeHeader parses the first HeaderSize bytes of b as a Header. It
// returns false if b is shorter than HeaderSize; the caller must drop the
// datagram silently in that case, per the wire error policy.
func DecodeHeader(b []byte) (Header, bool) {
	if len(b) < HeaderSize {
		return Header{}, false
	}
	return Header{
		RequestID:     int32(binary.BigEndian.Uint32(b[0:4])),
		OperationType: Operation(b[4]),
		PayloadLength: int16(binary.BigEndian.Uint16(b[5:7])),
	}, true
}

// reader walks a payload byte slice, tracking the remaining budget so
// string lengths and fixed-size fields can be bounds-checked as they are
// consumed.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *reader) readString() (string, error) {
	if r.remaining() < 2 {
		return "", fmt.Errorf("truncated string length")
	}
	n := int(int16(binary.BigEndian.Uint16(r.buf[r.pos : r.pos+2])))
	r.pos += 2
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	if r.remaining() < n {
		return "", fmt.Errorf("truncated string body: want %d have %d", n, r.remaining())
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *reader) readInt32() (int32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("truncated int32 field")
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4]))
	r.pos += 4
	return v, nil
}

func (r *reader) readDateTime() (DateTime, error) {
	day, err := r.readInt32()
	if err != nil {
		return DateTime{}, fmt.Errorf("datetime day: %w", err)
	}
	hour, err := r.readInt32()
	if err != nil {
		return DateTime{}, fmt.Errorf("datetime hour: %w", err)
	}
	minute, err := r.readInt32()
	if err != nil {
		return DateTime{}, fmt.Errorf("datetime minute: %w", err)
	}
	dt := DateTime{Day: int(day), Hour: int(hour), Minute: int(minute)}
	if err := dt.Validate(); err != nil {
		return DateTime{}, err
	}
	return dt, nil
}

// writer appends fixed-field and length-prefixed values to a growing byte
// slice, mirroring reader on the encode side.
type writer struct {
	buf []byte
}

func (w *writer) writeString(s string) error {
	if len(s) > MaxPayloadLen {
		return fmt.Errorf("string length %d exceeds wire maximum", len(s))
	}
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(int16(len(s))))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, s...)
	return nil
}

func (w *writer) writeInt32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) writeDateTime(dt DateTime) {
	w.writeInt32(int32(dt.Day))
	w.writeInt32(int32(dt.Hour))
	w.writeInt32(int32(dt.Minute))
}

// DateTime is the wire representation of a weekly calendar instant: a
// 1-indexed day of week, an hour in [0,23], and a minute in [0,59].
type DateTime struct {
	Day    int
	Hour   int
	Minute int
}

// Validate reports whether every field of dt is within its wire-defined
// range.
func (dt DateTime) Validate() error {
	if dt.Day < 1 || dt.Day > 7 {
		return fmt.Errorf("day %d out of range [1,7]", dt.Day)
	}
	if dt.Hour < 0 || dt.Hour > 23 {
		return fmt.Errorf("hour %d out of range [0,23]", dt.Hour)
	}
	if dt.Minute < 0 || dt.Minute > 59 {
		return fmt.Errorf("minute %d out of range [0,59]", dt.Minute)
	}
	return nil
}

// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// Datagram is a fully decoded request or reply: the header plus the raw
// payload bytes, before per-operation body parsing.
type Datagram struct {
	Header  Header
	Payload []byte
}

// EncodeDatagram lays h's header bytes followed by payload into a single
// buffer ready for transmission.
func EncodeDatagram(h Header, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("payload length %d exceeds wire maximum %d", len(payload), MaxPayloadLen)
	}
	h.PayloadLength = int16(len(payload))
	buf := make([]byte, HeaderSize+len(payload))
	PutHeader(buf, h)
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// DecodeDatagram splits a raw received buffer into a header and its
// payload. It returns false if the header cannot be parsed or the declared
// payload length does not match what remains in b; per the wire error
// policy, the caller must drop such a datagram silently rather than reply.
// A length mismatch is treated as framing-level unparseable rather than a
// well-formed BAD_REQUEST, since a header whose own length field disagrees
// with the bytes received cannot be trusted to carry a meaningful request id
// to reply to.
func DecodeDatagram(b []byte) (Datagram, bool) {
	h, ok := DecodeHeader(b)
	if !ok {
		return Datagram{}, false
	}
	if h.PayloadLength < 0 {
		return Datagram{}, false
	}
	body := b[HeaderSize:]
	if len(body) != int(h.PayloadLength) {
		return Datagram{}, false
	}
	return Datagram{Header: h, Payload: body}, true
}

// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{Query, "QUERY"},
		{Book, "BOOK"},
		{Change, "CHANGE"},
		{Monitor, "MONITOR"},
		{Status, "STATUS"},
		{Extend, "EXTEND"},
		{Operation(99), "UNKNOWN(99)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.String())
		})
	}
}

func TestOperation_Valid(t *testing.T) {
	assert.True(t, Query.Valid())
	assert.True(t, Extend.Valid())
	assert.False(t, Operation(0).Valid())
	assert.False(t, Operation(7).Valid())
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{RequestID: 42, OperationType: Book, PayloadLength: 17}
	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)

	got, ok := DecodeHeader(buf)
	assert.True(t, ok)
	assert.Equal(t, h, got)
}

func TestHeaderRoundTrip_NegativeRequestID(t *testing.T) {
	h := Header{RequestID: NotificationRequestID, OperationType: Monitor, PayloadLength: 0}
	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)

	got, ok := DecodeHeader(buf)
	assert.True(t, ok)
	assert.Equal(t, int32(-1), got.RequestID)
}

func TestDecodeHeader_Truncated(t *testing.T) {
	_, ok := DecodeHeader([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestDateTime_Validate(t *testing.T) {
	tests := []struct {
		name    string
		dt      DateTime
		wantErr bool
	}{
		{"valid", DateTime{Day: 1, Hour: 0, Minute: 0}, false},
		{"valid max", DateTime{Day: 7, Hour: 23, Minute: 59}, false},
		{"day too low", DateTime{Day: 0, Hour: 0, Minute: 0}, true},
		{"day too high", DateTime{Day: 8, Hour: 0, Minute: 0}, true},
		{"hour too high", DateTime{Day: 1, Hour: 24, Minute: 0}, true},
		{"minute too high", DateTime{Day: 1, Hour: 0, Minute: 60}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dt.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatagramRoundTrip(t *testing.T) {
	payload := []byte("hello")
	buf, err := EncodeDatagram(Header{RequestID: 7, OperationType: Status}, payload)
	assert.NoError(t, err)
	assert.Len(t, buf, HeaderSize+len(payload))

	dg, ok := DecodeDatagram(buf)
	assert.True(t, ok)
	assert.Equal(t, int32(7), dg.Header.RequestID)
	assert.Equal(t, Status, dg.Header.OperationType)
	assert.Equal(t, payload, dg.Payload)
}

func TestDecodeDatagram_LengthMismatch(t *testing.T) {
	buf, err := EncodeDatagram(Header{RequestID: 1, OperationType: Status}, []byte("abc"))
	assert.NoError(t, err)

	_, ok := DecodeDatagram(buf[:len(buf)-1])
	assert.False(t, ok)
}

func TestDecodeDatagram_TruncatedHeader(t *testing.T) {
	_, ok := DecodeDatagram([]byte{0, 0})
	assert.False(t, ok)
}

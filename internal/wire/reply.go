// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package wire

import "fmt"

// ErrorPrefix begins every error reply body.
const ErrorPrefix = "ERROR: "

// EncodeReply builds a reply datagram that echoes requestId and op and
// carries text as a raw, unprefixed payload body.
func EncodeReply(requestID int32, op Operation, text string) ([]byte, error) {
	return EncodeDatagram(Header{RequestID: requestID, OperationType: op}, []byte(text))
}

// EncodeErrorReply builds a reply whose body is "ERROR: <reason>".
func EncodeErrorReply(requestID int32, op Operation, reason string) ([]byte, error) {
	return EncodeReply(requestID, op, ErrorPrefix+reason)
}

// DecodeReplyText extracts the raw UTF-8 text body of a non-notification
// reply payload; the payload carries no length prefix of its own.
func DecodeReplyText(payload []byte) string {
	return string(payload)
}

// EncodeMonitorNotification builds the unsolicited server-push datagram
// sent to a monitor subscriber: requestId is always NotificationRequestID,
// operationType is MonitorAvailability, and the body is the facility name
// length-prefixed followed by the raw availability text.
func EncodeMonitorNotification(facility, availabilityText string) ([]byte, error) {
	w := &writer{}
	if err := w.writeString(facility); err != nil {
		return nil, err
	}
	w.buf = append(w.buf, availabilityText...)
	return EncodeDatagram(Header{RequestID: NotificationRequestID, OperationType: MonitorAvailability}, w.buf)
}

// DecodeMonitorNotification parses a server-push notification payload into
// its facility name and availability text.
func DecodeMonitorNotification(payload []byte) (facility, availabilityText string, err error) {
	r := newReader(payload)
	facility, err = r.readString()
	if err != nil {
		return "", "", fmt.Errorf("notification facility: %w", err)
	}
	availabilityText = string(r.buf[r.pos:])
	return facility, availabilityText, nil
}

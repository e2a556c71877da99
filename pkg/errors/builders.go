// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
)

// BadRequestf builds a BadRequest error with a formatted message.
func BadRequestf(format string, args ...any) *Error {
	return New(BadRequest, fmt.Sprintf(format, args...))
}

// UnknownFacilityf builds an UnknownFacility error naming the facility.
func UnknownFacilityf(facility string) *Error {
	return New(UnknownFacility, fmt.Sprintf("facility %q is not configured on this server", facility))
}

// NotFoundf builds a NotFound error naming the confirmation id.
func NotFoundf(confirmationID string) *Error {
	return New(NotFound, fmt.Sprintf("no reservation with confirmation id %q", confirmationID))
}

// Conflictf builds a Conflict error describing the overlapping interval.
func Conflictf(format string, args ...any) *Error {
	return New(Conflict, fmt.Sprintf(format, args...))
}

// InvalidTimef builds an InvalidTime error.
func InvalidTimef(format string, args ...any) *Error {
	return New(InvalidTime, fmt.Sprintf(format, args...))
}

// Internalf builds an Internal error, optionally wrapping a cause.
func Internalf(cause error, format string, args ...any) *Error {
	return Wrap(Internal, fmt.Sprintf(format, args...), cause)
}

// AsProtocolError reports whether err (or something it wraps) is an *Error,
// returning it directly; any other error is classified Internal.
func AsProtocolError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return Wrap(Internal, "unexpected error", err)
}

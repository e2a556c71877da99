// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package timeutil implements the weekly calendar arithmetic the schedule
// store is built on: a cyclic week of 10080 minutes, addressed by
// (day, hour, minute) triples or by a flat minute-of-week scalar.
package timeutil

import "fmt"

// MinutesPerWeek is the number of minutes in the cyclic week,
// 7 days * 24 hours * 60 minutes. Week-minute values are confined to
// [0, MinutesPerWeek); reservations never wrap across the boundary.
const MinutesPerWeek = 7 * 24 * 60

// DateTime is a point on the weekly calendar: a 1-indexed day of week, an
// hour in [0,23], and a minute in [0,59].
type DateTime struct {
	Day    int
	Hour   int
	Minute int
}

// Validate reports whether every field of dt is within its defined range.
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

// ToMinutes converts dt to its minute-of-week scalar, in [0, MinutesPerWeek).
func (dt DateTime) ToMinutes() int {
	return ((dt.Day-1)*24+dt.Hour)*60 + dt.Minute
}

// FromMinutes converts a minute-of-week scalar back to a DateTime. m must
// be in [0, MinutesPerWeek]; MinutesPerWeek itself maps to day 8, 00:00,
// which is outside the valid DateTime range, so callers comparing
// reservation ends should prefer the scalar form.
func FromMinutes(m int) DateTime {
	day := m/1440 + 1
	rem := m % 1440
	return DateTime{Day: day, Hour: rem / 60, Minute: rem % 60}
}

// Compare returns -1, 0, or 1 as a's scalar is less than, equal to, or
// greater than b's.
func Compare(a, b DateTime) int {
	am, bm := a.ToMinutes(), b.ToMinutes()
	switch {
	case am < bm:
		return -1
	case am > bm:
		return 1
	default:
		return 0
	}
}

// Interval is a half-open span [StartMin, EndMin) on the minute-of-week
// axis.
type Interval struct {
	StartMin int
	EndMin   int
}

// Valid reports whether the interval is well-formed: both endpoints within
// [0, MinutesPerWeek] and StartMin < EndMin.
func (iv Interval) Valid() bool {
	return iv.StartMin >= 0 && iv.EndMin <= MinutesPerWeek && iv.StartMin < iv.EndMin
}

// Overlaps reports whether iv and other intersect under half-open
// semantics: [a,b) and [b,c) are adjacent, not overlapping.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.StartMin < other.EndMin && other.StartMin < iv.EndMin
}

// Shift returns a copy of iv with both endpoints offset by minutes, which
// may be negative.
func (iv Interval) Shift(minutes int) Interval {
	return Interval{StartMin: iv.StartMin + minutes, EndMin: iv.EndMin + minutes}
}

// DayWindow returns the half-open minute-of-week interval covering the
// given 1-indexed day of week.
func DayWindow(day int) Interval {
	start := (day - 1) * 1440
	return Interval{StartMin: start, EndMin: start + 1440}
}

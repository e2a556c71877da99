// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package schedule implements the per-facility reservation store: an
// ordered, conflict-free sequence of half-open intervals on the weekly
// minute axis, with query, book, change, and extend operations and a
// human-readable availability rendering.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jontk/reservation-protocol/internal/timeutil"
	protoerrors "github.com/jontk/reservation-protocol/pkg/errors"
)

// Reservation is a booked interval on a facility.
type Reservation struct {
	ID       string
	Facility string
	StartMin int
	EndMin   int
	Owner    string
}

// Store owns the reservations for a fixed set of facilities. It is safe
// for concurrent use; the dispatcher's single-threaded processing never
// requires the lock to be held across a suspension point, and the
// read-only diagnostics surface takes it only to copy state out.
type Store struct {
	mu         sync.Mutex
	facilities map[string]*facilityState
	byID       map[string]*Reservation
}

type facilityState struct {
	name         string
	reservations []*Reservation
}

// New creates a Store fixed to the given facility names. The facility set
// is immutable for the life of the server.
func New(facilities []string) *Store {
	s := &Store{
		facilities: make(map[string]*facilityState, len(facilities)),
		byID:       make(map[string]*Reservation),
	}
	for _, f := range facilities {
		s.facilities[f] = &facilityState{name: f}
	}
	return s
}

// HasFacility reports whether name is one of the server's configured
// facilities.
func (s *Store) HasFacility(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.facilities[name]
	return ok
}

// Facilities returns the configured facility names in no particular order.
func (s *Store) Facilities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.facilities))
	for name := range s.facilities {
		names = append(names, name)
	}
	return names
}

// ReservationCount returns the total number of reservations across all
// facilities.
func (s *Store) ReservationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Store) facility(name string) (*facilityState, error) {
	f, ok := s.facilities[name]
	if !ok {
		return nil, protoerrors.UnknownFacilityf(name)
	}
	return f, nil
}

// insertSorted inserts r into f's reservation list, keeping it ordered by
// StartMin.
func (f *facilityState) insertSorted(r *Reservation) {
	i := sort.Search(len(f.reservations), func(i int) bool {
		return f.reservations[i].StartMin > r.StartMin
	})
	f.reservations = append(f.reservations, nil)
	copy(f.reservations[i+1:], f.reservations[i:])
	f.reservations[i] = r
}

// overlapsAny reports whether iv overlaps any reservation in f other than
// excludeID.
func (f *facilityState) overlapsAny(iv timeutil.Interval, excludeID string) bool {
	for _, r := range f.reservations {
		if r.ID == excludeID {
			continue
		}
		if iv.Overlaps(timeutil.Interval{StartMin: r.StartMin, EndMin: r.EndMin}) {
			return true
		}
	}
	return false
}

// Book validates and inserts a new reservation on facility, generating and
// returning its confirmation id.
func (s *Store) Book(facility string, start, end timeutil.DateTime, owner string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.facility(facility)
	if err != nil {
		return "", err
	}

	iv := timeutil.Interval{StartMin: start.ToMinutes(), EndMin: end.ToMinutes()}
	if !iv.Valid() {
		return "", protoerrors.InvalidTimef("start %d must be before end %d within the week", iv.StartMin, iv.EndMin)
	}
	if f.overlapsAny(iv, "") {
		return "", protoerrors.Conflictf("facility %q already has a reservation overlapping [%d,%d)", facility, iv.StartMin, iv.EndMin)
	}

	id := facility + "-" + uuid.New().String()[:8]
	r := &Reservation{ID: id, Facility: facility, StartMin: iv.StartMin, EndMin: iv.EndMin, Owner: owner}
	f.insertSorted(r)
	s.byID[id] = r
	return id, nil
}

// Change shifts an existing reservation's start and end by offsetMinutes,
// preserving its duration and id, and returns the facility it belongs to.
func (s *Store) Change(id string, offsetMinutes int32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shift(id, offsetMinutes, offsetMinutes)
}

// Extend lengthens (or shortens, if extendMinutes is negative) an existing
// reservation's end time, and returns the facility it belongs to.
func (s *Store) Extend(id string, extendMinutes int32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shift(id, 0, extendMinutes)
}

// shift applies independent offsets to a reservation's start and end,
// validating the result before committing it.
func (s *Store) shift(id string, startOffset, endOffset int32) (string, error) {
	r, ok := s.byID[id]
	if !ok {
		return "", protoerrors.NotFoundf(id)
	}
	f := s.facilities[r.Facility]

	newStart := r.StartMin + int(startOffset)
	newEnd := r.EndMin + int(endOffset)
	iv := timeutil.Interval{StartMin: newStart, EndMin: newEnd}
	if !iv.Valid() {
		return "", protoerrors.InvalidTimef("shifted interval [%d,%d) falls outside the week", newStart, newEnd)
	}
	if f.overlapsAny(iv, id) {
		return "", protoerrors.Conflictf("shifted interval [%d,%d) conflicts with another reservation on %q", newStart, newEnd, r.Facility)
	}

	r.StartMin = newStart
	r.EndMin = newEnd

	f.reservations = f.reservations[:0]
	for _, existing := range s.byID {
		if existing.Facility == r.Facility {
			f.reservations = append(f.reservations, existing)
		}
	}
	sort.Slice(f.reservations, func(i, j int) bool { return f.reservations[i].StartMin < f.reservations[j].StartMin })

	return r.Facility, nil
}

// Snapshot returns a copy of facility's reservations, ordered by start
// time, for rendering or broadcast.
func (s *Store) Snapshot(facility string) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.facility(facility)
	if err != nil {
		return nil, err
	}
	out := make([]Reservation, len(f.reservations))
	for i, r := range f.reservations {
		out[i] = *r
	}
	return out, nil
}

var dayCaser = cases.Title(language.English)

var dayNames = map[int]string{
	1: "monday", 2: "tuesday", 3: "wednesday", 4: "thursday",
	5: "friday", 6: "saturday", 7: "sunday",
}

// Query renders a human-readable availability report for facility on the
// given days, deduplicated in first-occurrence order.
func (s *Store) Query(facility string, days []int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.facility(facility)
	if err != nil {
		return "", err
	}

	seen := make(map[int]bool, len(days))
	var ordered []int
	for _, d := range days {
		if d < 1 || d > 7 {
			return "", protoerrors.BadRequestf("day code %d out of range [1,7]", d)
		}
		if !seen[d] {
			seen[d] = true
			ordered = append(ordered, d)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s availability:", facility)
	for _, d := range ordered {
		sb.WriteString("\n")
		sb.WriteString(renderDay(f, d))
	}
	return sb.String(), nil
}

// renderDay formats one day's free/booked breakdown.
func renderDay(f *facilityState, day int) string {
	window := timeutil.DayWindow(day)
	clock := func(minuteOfWeek int) string { return formatClock(minuteOfWeek - window.StartMin) }
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: ", dayCaser.String(dayNames[day]))

	cursor := window.StartMin
	parts := make([]string, 0, 4)
	for _, r := range f.reservations {
		iv := timeutil.Interval{StartMin: r.StartMin, EndMin: r.EndMin}
		if !iv.Overlaps(window) {
			continue
		}
		start := max(iv.StartMin, window.StartMin)
		end := min(iv.EndMin, window.EndMin)
		if start > cursor {
			parts = append(parts, fmt.Sprintf("%s-%s free", clock(cursor), clock(start)))
		}
		parts = append(parts, fmt.Sprintf("%s-%s booked", clock(start), clock(end)))
		cursor = end
	}
	if cursor < window.EndMin {
		parts = append(parts, fmt.Sprintf("%s-%s free", clock(cursor), clock(window.EndMin)))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%s-%s free", clock(window.StartMin), clock(window.EndMin)))
	}
	sb.WriteString(strings.Join(parts, ", "))
	return sb.String()
}

// formatClock renders a minute offset within a single day (0..1440) as
// HH:MM, so the day's closing boundary 1440 renders as "24:00".
func formatClock(minuteOfDay int) string {
	return fmt.Sprintf("%02d:%02d", minuteOfDay/60, minuteOfDay%60)
}

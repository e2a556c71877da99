// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package dispatch implements the request dispatcher: it decodes an
// incoming datagram, consults the duplicate cache, routes to the schedule
// store or monitor registry, encodes the reply, and computes any monitor
// broadcasts the mutation triggers.
package dispatch

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jontk/reservation-protocol/internal/dedupe"
	"github.com/jontk/reservation-protocol/internal/monitor"
	"github.com/jontk/reservation-protocol/internal/schedule"
	"github.com/jontk/reservation-protocol/internal/timeutil"
	"github.com/jontk/reservation-protocol/internal/wire"
	protoerrors "github.com/jontk/reservation-protocol/pkg/errors"
	"github.com/jontk/reservation-protocol/pkg/logging"
	"github.com/jontk/reservation-protocol/pkg/metrics"
)

// Notification is one server-push datagram to deliver to a monitor
// subscriber.
type Notification struct {
	ClientAddr string
	Bytes      []byte
}

// Result is everything produced by handling one inbound datagram: the
// reply to send back to its source, plus any monitor broadcasts to fan
// out.
type Result struct {
	Reply         []byte
	Notifications []Notification
}

// BroadcastSink receives a copy of every monitor availability broadcast,
// independent of the UDP subscriber fan-out. internal/wsbridge.Hub
// implements this so operator dashboards can mirror the same events.
type BroadcastSink interface {
	Broadcast(facility, text string)
}

// Dispatcher wires the schedule store, duplicate cache, and monitor
// registry together behind the single entry point the transport loop
// calls for every received datagram.
type Dispatcher struct {
	store        *schedule.Store
	cache        *dedupe.Cache
	registry     *monitor.Registry
	metrics      metrics.Collector
	logger       logging.Logger
	consultCache bool
	startTime    time.Time
	sink         BroadcastSink
}

// SetBroadcastSink attaches an additional destination for availability
// broadcasts. Passing nil detaches it.
func (d *Dispatcher) SetBroadcastSink(sink BroadcastSink) {
	d.sink = sink
}

// New creates a Dispatcher. consultCache selects the server's semantics:
// true (at-most-once) consults the duplicate cache on mutating operations
// so a retransmitted request is never re-executed; false (at-least-once)
// skips it, so every physical duplicate is executed again.
func New(store *schedule.Store, cache *dedupe.Cache, registry *monitor.Registry, collector metrics.Collector, logger logging.Logger, consultCache bool) *Dispatcher {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Dispatcher{
		store:        store,
		cache:        cache,
		registry:     registry,
		metrics:      collector,
		logger:       logger,
		consultCache: consultCache,
		startTime:    time.Now(),
	}
}

// isCacheable reports whether op is subject to the duplicate cache: the
// three mutating schedule operations, plus MONITOR with respect to the
// subscription registry.
func isCacheable(op wire.Operation) bool {
	switch op {
	case wire.Book, wire.Change, wire.Extend, wire.Monitor:
		return true
	default:
		return false
	}
}

// Handle processes one received datagram from clientAddr. It returns
// ok == false when the datagram's header could not be parsed or its
// payload length disagrees with the bytes received, in which case the
// transport must drop it silently.
func (d *Dispatcher) Handle(datagram []byte, clientAddr string) (Result, bool) {
	dg, ok := wire.DecodeDatagram(datagram)
	if !ok {
		d.logger.Warn("dropping datagram with unparsable header", "addr", clientAddr)
		return Result{}, false
	}

	requestID := dg.Header.RequestID
	op := dg.Header.OperationType
	start := time.Now()

	d.metrics.RecordRequest(op.String(), clientAddr)
	d.logger.Debug("received datagram", "op", op.String(), "addr", clientAddr, "requestId", requestID)

	key := dedupe.Key{ClientAddr: clientAddr, RequestID: requestID}
	cacheable := isCacheable(op) && d.consultCache

	if cacheable {
		if cached, hit := d.cache.Lookup(key); hit {
			d.metrics.RecordCacheHit(key.ClientAddr)
			d.metrics.RecordResponse(op.String(), clientAddr, "CACHED", time.Since(start))
			return Result{Reply: cached}, true
		}
		d.metrics.RecordCacheMiss(key.ClientAddr)
	}

	reply, notifications, err := d.execute(op, requestID, dg.Payload, clientAddr)
	if reply == nil {
		reply, _ = wire.EncodeReply(requestID, op, protoerrors.AsProtocolError(err).Reply())
	}

	code := "OK"
	if err != nil {
		pe := protoerrors.AsProtocolError(err)
		code = string(pe.Code)
		d.metrics.RecordError(op.String(), clientAddr, err)
		d.logger.Warn("request failed", "op", op.String(), "addr", clientAddr, "code", code)
	}
	d.metrics.RecordResponse(op.String(), clientAddr, code, time.Since(start))

	if cacheable {
		d.cache.Store(key, op.String(), reply)
	}

	return Result{Reply: reply, Notifications: notifications}, true
}

// execute runs the handler for op and builds the success reply bytes. A
// nil reply with a non-nil err tells the caller to build the generic error
// reply; handlers that need a more specific error body build it directly
// and return it in reply.
func (d *Dispatcher) execute(op wire.Operation, requestID int32, payload []byte, clientAddr string) ([]byte, []Notification, error) {
	switch op {
	case wire.Query:
		return d.handleQuery(requestID, payload)
	case wire.Book:
		return d.handleBook(requestID, payload, clientAddr)
	case wire.Change:
		return d.handleChange(requestID, payload)
	case wire.Extend:
		return d.handleExtend(requestID, payload)
	case wire.Monitor:
		return d.handleMonitor(requestID, payload, clientAddr)
	case wire.Status:
		return d.handleStatus(requestID, payload)
	default:
		return nil, nil, protoerrors.BadRequestf("unknown operation code %d", byte(op))
	}
}

func (d *Dispatcher) handleQuery(requestID int32, payload []byte) ([]byte, []Notification, error) {
	req, err := wire.DecodeQuery(payload)
	if err != nil {
		return nil, nil, protoerrors.BadRequestf("%v", err)
	}
	text, err := d.store.Query(req.Facility, req.Days)
	if err != nil {
		return nil, nil, err
	}
	reply, err := wire.EncodeReply(requestID, wire.Query, text)
	return reply, nil, err
}

func (d *Dispatcher) handleBook(requestID int32, payload []byte, clientAddr string) ([]byte, []Notification, error) {
	req, err := wire.DecodeBook(payload)
	if err != nil {
		return nil, nil, protoerrors.BadRequestf("%v", err)
	}
	id, err := d.store.Book(req.Facility, timeutil.DateTime(req.Start), timeutil.DateTime(req.End), clientAddr)
	if err != nil {
		return nil, nil, err
	}
	reply, err := wire.EncodeReply(requestID, wire.Book, "Booking Confirmation ID: "+id)
	if err != nil {
		return nil, nil, err
	}
	notifications := d.broadcast(req.Facility)
	return reply, notifications, nil
}

func (d *Dispatcher) handleChange(requestID int32, payload []byte) ([]byte, []Notification, error) {
	req, err := wire.DecodeChange(payload)
	if err != nil {
		return nil, nil, protoerrors.BadRequestf("%v", err)
	}
	facility, err := d.store.Change(req.ConfirmationID, req.OffsetMinutes)
	if err != nil {
		return nil, nil, err
	}
	reply, err := wire.EncodeReply(requestID, wire.Change, "Reservation "+req.ConfirmationID+" updated")
	if err != nil {
		return nil, nil, err
	}
	notifications := d.broadcast(facility)
	return reply, notifications, nil
}

func (d *Dispatcher) handleExtend(requestID int32, payload []byte) ([]byte, []Notification, error) {
	req, err := wire.DecodeExtend(payload)
	if err != nil {
		return nil, nil, protoerrors.BadRequestf("%v", err)
	}
	facility, err := d.store.Extend(req.ConfirmationID, req.ExtendMinutes)
	if err != nil {
		return nil, nil, err
	}
	reply, err := wire.EncodeReply(requestID, wire.Extend, "Reservation "+req.ConfirmationID+" extended")
	if err != nil {
		return nil, nil, err
	}
	notifications := d.broadcast(facility)
	return reply, notifications, nil
}

func (d *Dispatcher) handleMonitor(requestID int32, payload []byte, clientAddr string) ([]byte, []Notification, error) {
	req, err := wire.DecodeMonitor(payload)
	if err != nil {
		return nil, nil, protoerrors.BadRequestf("%v", err)
	}
	if !d.store.HasFacility(req.Facility) {
		return nil, nil, protoerrors.UnknownFacilityf(req.Facility)
	}
	d.registry.Register(req.Facility, clientAddr, req.IntervalMinutes, time.Now())
	reply, err := wire.EncodeReply(requestID, wire.Monitor,
		"Monitoring "+req.Facility+" for "+formatMinutes(req.IntervalMinutes)+" minutes")
	return reply, nil, err
}

func (d *Dispatcher) handleStatus(requestID int32, payload []byte) ([]byte, []Notification, error) {
	if _, err := wire.DecodeStatus(payload); err != nil {
		return nil, nil, protoerrors.BadRequestf("%v", err)
	}
	text := d.statusText()
	reply, err := wire.EncodeReply(requestID, wire.Status, text)
	return reply, nil, err
}

func (d *Dispatcher) statusText() string {
	now := time.Now()
	uptime := now.Sub(d.startTime).Round(time.Second)
	facilities := d.store.Facilities()
	return "uptime=" + uptime.String() +
		" facilities=" + strconv.Itoa(len(facilities)) +
		" reservations=" + strconv.Itoa(d.store.ReservationCount()) +
		" subscriptions=" + strconv.Itoa(d.registry.Count(now)) +
		" ops=" + d.opCountsText()
}

// opCountsText renders per-operation request counts as "op:count"
// pairs, sorted by operation name for deterministic output.
func (d *Dispatcher) opCountsText() string {
	counts := d.metrics.GetStats().RequestsByOp
	if len(counts) == 0 {
		return "none"
	}

	ops := make([]string, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		parts = append(parts, op+":"+strconv.FormatInt(counts[op], 10))
	}
	return strings.Join(parts, ",")
}

// broadcast computes a fresh availability rendering for facility and
// builds one notification per non-expired subscriber.
func (d *Dispatcher) broadcast(facility string) []Notification {
	subscribers := d.registry.ActiveSubscribers(facility, time.Now())
	if len(subscribers) == 0 && d.sink == nil {
		return nil
	}

	text, err := d.store.Query(facility, []int{1, 2, 3, 4, 5, 6, 7})
	if err != nil {
		d.logger.Error("failed to render broadcast availability", "facility", facility, "error", err.Error())
		return nil
	}

	d.metrics.RecordBroadcast(facility)

	if d.sink != nil {
		d.sink.Broadcast(facility, text)
	}

	if len(subscribers) == 0 {
		return nil
	}

	notifications := make([]Notification, 0, len(subscribers))
	for _, addr := range subscribers {
		bytes, err := wire.EncodeMonitorNotification(facility, text)
		if err != nil {
			continue
		}
		notifications = append(notifications, Notification{ClientAddr: addr, Bytes: bytes})
	}
	return notifications
}

func formatMinutes(m int32) string {
	return strconv.Itoa(int(m))
}

// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package server owns the UDP datagram endpoint: it reads whole datagrams,
// hands each one to the dispatcher, and transmits the reply and any
// monitor broadcast notifications the dispatcher produces. It is the only
// component that performs network I/O.
package server

import (
	"errors"
	"math/rand"
	"net"

	"github.com/jontk/reservation-protocol/internal/dispatch"
	"github.com/jontk/reservation-protocol/pkg/config"
	"github.com/jontk/reservation-protocol/pkg/logging"
)

// Server binds a single UDP socket and feeds received datagrams to a
// Dispatcher.
type Server struct {
	cfg        *config.ServerConfig
	dispatcher *dispatch.Dispatcher
	logger     logging.Logger
	conn       *net.UDPConn
}

// New creates a Server bound to the port in cfg. The socket is not opened
// until Run is called.
func New(cfg *config.ServerConfig, dispatcher *dispatch.Dispatcher, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Server{cfg: cfg, dispatcher: dispatcher, logger: logger}
}

// Run opens the UDP socket and processes datagrams until the socket is
// closed; any other read error is logged and the loop keeps reading.
func (s *Server) Run() error {
	addr := &net.UDPAddr{Port: s.cfg.Port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return err
	}
	s.conn = conn
	defer conn.Close()

	s.logger.Info("server listening", "port", s.cfg.Port, "semantics", string(s.cfg.Semantics))

	buf := make([]byte, s.cfg.MaxDatagramSize)
	for {
		n, clientAddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("read failed", "error", err.Error())
			continue
		}

		if s.dropInbound() {
			s.logger.Debug("simulated inbound loss", "addr", clientAddr.String())
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])

		result, ok := s.dispatcher.Handle(datagram, clientAddr.String())
		if !ok {
			continue
		}

		s.send(result.Reply, clientAddr)
		for _, notification := range result.Notifications {
			dst, err := net.ResolveUDPAddr("udp", notification.ClientAddr)
			if err != nil {
				s.logger.Error("failed to resolve subscriber address", "addr", notification.ClientAddr, "error", err.Error())
				continue
			}
			s.send(notification.Bytes, dst)
		}
	}
}

// Close closes the listening socket, causing Run to return.
func (s *Server) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// send transmits b to dst, applying the configured outbound loss
// probability.
func (s *Server) send(b []byte, dst *net.UDPAddr) {
	if s.dropOutbound() {
		s.logger.Debug("simulated outbound loss", "addr", dst.String())
		return
	}
	if _, err := s.conn.WriteToUDP(b, dst); err != nil {
		s.logger.Error("write failed", "addr", dst.String(), "error", err.Error())
	}
}

func (s *Server) dropOutbound() bool {
	return s.cfg.LossProbability > 0 && rand.Float64() < s.cfg.LossProbability
}

func (s *Server) dropInbound() bool {
	return s.cfg.InboundLossProbability > 0 && rand.Float64() < s.cfg.InboundLossProbability
}

// Package targetsim is a minimal iSCSI login responder.
//
// It accepts TCP connections, answers Login Requests with a Login Response
// carrying the status a conforming target would return, and never leaves
// the login phase. It backs the probe's tests and the selftest command.
package targetsim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/iscsiprobe/internal/logger"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/header"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/login"
	"github.com/marmos91/iscsiprobe/internal/protocol/iscsi/types"
	"github.com/marmos91/iscsiprobe/internal/telemetry"
	"github.com/marmos91/iscsiprobe/pkg/metrics"
)

// Defaults for Config fields left zero.
const (
	DefaultAddr                     = "127.0.0.1:0"
	DefaultTargetName               = "iqn.2025-12.local:storage.memory-disk"
	DefaultMaxRecvDataSegmentLength = 8192
	DefaultIdleTimeout              = 5 * time.Second

	// maxDataSegment bounds the text segment accepted from an initiator.
	maxDataSegment = 64 * 1024
)

// Config configures the simulated target.
type Config struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr string

	// TargetName is the only target served.
	TargetName string

	// TargetAlias is returned to normal sessions when set.
	TargetAlias string

	// RequireCHAP rejects logins that do not offer CHAP.
	RequireCHAP bool

	// AllowedInitiators, when non-empty, is the initiator ACL.
	AllowedInitiators []string

	// MaxConnections caps concurrent connections; 0 is unlimited.
	MaxConnections int

	// MaxRecvDataSegmentLength is declared in successful responses.
	MaxRecvDataSegmentLength int

	// IdleTimeout bounds how long a connection may sit without a PDU.
	IdleTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.TargetName == "" {
		c.TargetName = DefaultTargetName
	}
	if c.MaxRecvDataSegmentLength <= 0 {
		c.MaxRecvDataSegmentLength = DefaultMaxRecvDataSegmentLength
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
}

// Server is a running simulated target.
type Server struct {
	config  Config
	metrics metrics.TargetMetrics

	listener     net.Listener
	listenOnce   sync.Once
	listenErr    error
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	active   atomic.Int32
	nextTSIH atomic.Uint32
	statSN   atomic.Uint32
}

// NewServer creates a target. m may be nil.
func NewServer(cfg Config, m metrics.TargetMetrics) *Server {
	cfg.applyDefaults()
	return &Server{
		config:   cfg,
		metrics:  m,
		shutdown: make(chan struct{}),
	}
}

// Listen binds the listener so Addr is known before Serve is called.
// Calling it more than once is harmless.
func (s *Server) Listen() error {
	s.listenOnce.Do(func() {
		ln, err := net.Listen("tcp", s.config.Addr)
		if err != nil {
			s.listenErr = fmt.Errorf("listen %s: %w", s.config.Addr, err)
			return
		}
		s.listener = ln
	})
	return s.listenErr
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is cancelled or Stop is called,
// then waits for open connections to finish.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	logger.Info("Simulated target listening",
		logger.Listen(s.listener.Addr().String()),
		logger.Target(s.config.TargetName),
	)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.shutdown:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.wg.Wait()
			if s.stopping() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(ctx, c)
		}(conn)
	}
}

// Stop closes the listener. Safe to call more than once.
func (s *Server) Stop() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		if s.listener != nil {
			_ = s.listener.Close()
		}
	})
}

func (s *Server) stopping() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// handleConn answers Login Requests on one connection. A reject ends the
// connection, as does any PDU that is not a Login Request.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	n := s.active.Add(1)
	defer s.active.Add(-1)
	if s.metrics != nil {
		s.metrics.RecordConnectionAccepted()
		defer s.metrics.RecordConnectionClosed()
	}

	clientAddr := conn.RemoteAddr().String()
	limited := s.config.MaxConnections > 0 && int(n) > s.config.MaxConnections

	for {
		if err := conn.SetDeadline(time.Now().Add(s.config.IdleTimeout)); err != nil {
			logger.Debug("Simulated target: set deadline failed", logger.ClientAddr(clientAddr), logger.Err(err))
			return
		}

		pdu, err := readPDU(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("Simulated target: read PDU failed", logger.ClientAddr(clientAddr), logger.Err(err))
			}
			return
		}

		resp := s.respond(ctx, clientAddr, pdu, limited)
		if _, err := conn.Write(resp.Encode()); err != nil {
			logger.Debug("Simulated target: write response failed", logger.ClientAddr(clientAddr), logger.Err(err))
			return
		}

		if !resp.Succeeded() {
			return
		}
	}
}

// readPDU reads one BHS and its padded data segment.
func readPDU(r io.Reader) ([]byte, error) {
	buf := make([]byte, header.Size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h, err := header.Parse(buf)
	if err != nil {
		return nil, err
	}
	if h.DataSegmentLength > maxDataSegment {
		return nil, fmt.Errorf("data segment of %d bytes exceeds %d", h.DataSegmentLength, maxDataSegment)
	}

	ahs := int(h.TotalAHSLength) * 4
	data := make([]byte, ahs+header.PadLength(int(h.DataSegmentLength)))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read data segment: %w", err)
	}

	// Drop any AHS so the data segment directly follows the BHS.
	return append(buf, data[ahs:]...), nil
}

// respond builds the Login Response for one PDU.
func (s *Server) respond(ctx context.Context, clientAddr string, pdu []byte, limited bool) *login.Response {
	start := time.Now()
	h, _ := header.Parse(pdu)

	resp := &login.Response{
		CSG:      types.CSG(h.Flags),
		NSG:      types.NSG(h.Flags),
		ITT:      h.ITT,
		StatSN:   s.statSN.Add(1),
		ExpCmdSN: 1,
		MaxCmdSN: 1,
	}
	copy(resp.ISID[:], h.LUN[:login.ISIDSize])

	_, span := telemetry.StartTargetLoginSpan(ctx, clientAddr, telemetry.ISID(resp.ISID[:]))
	defer span.End()

	var d Decision
	var req *login.Request
	switch {
	case s.stopping():
		d = reject(types.StatusServiceUnavailable, "target shutting down")
	case limited:
		d = reject(types.StatusTooManyConnections, "connection limit reached")
	case h.Opcode != types.OpLoginRequest:
		d = reject(types.StatusInvalidDuringLogin, fmt.Sprintf("opcode 0x%02x during login", h.Opcode))
	default:
		var err error
		req, err = login.ParseRequest(pdu)
		if err != nil {
			d = reject(types.StatusInitiatorError, err.Error())
			break
		}
		d = s.config.Evaluate(req.Params)
	}

	resp.StatusClass = d.Status.Class()
	resp.StatusDetail = d.Status.Detail()
	resp.Status = d.Status
	resp.Params = d.Params

	if d.Status == types.StatusSuccess && !s.config.RequireCHAP {
		resp.Transit = h.Flags&types.LoginFlagTransit != 0
		if resp.Transit && resp.NSG == types.StageFullFeature && d.SessionType == types.SessionTypeNormal {
			resp.TSIH = s.newTSIH()
		}
	}
	if s.config.RequireCHAP && d.Status == types.StatusSuccess {
		resp.NSG = types.StageSecurityNegotiation
	}

	span.SetAttributes(
		telemetry.Status(d.Status.Hex()),
		telemetry.StatusName(d.Status.String()),
		telemetry.TSIH(resp.TSIH),
	)
	if req != nil {
		if v, ok := req.Params.Get(types.KeyInitiatorName); ok {
			span.SetAttributes(telemetry.InitiatorName(v))
		}
		if v, ok := req.Params.Get(types.KeyTargetName); ok {
			span.SetAttributes(telemetry.TargetName(v))
		}
		if d.SessionType != "" {
			span.SetAttributes(telemetry.SessionType(d.SessionType))
		}
	}

	if s.metrics != nil {
		s.metrics.RecordLogin(d.Status.Hex(), time.Since(start))
	}

	logger.Debug("Simulated target answered login",
		logger.ClientAddr(clientAddr),
		logger.ISID(resp.ISID[:]),
		logger.Status(d.Status),
		"reason", d.Reason,
	)

	return resp
}

// newTSIH returns a non-zero session handle.
func (s *Server) newTSIH() uint16 {
	for {
		if v := uint16(s.nextTSIH.Add(1)); v != 0 {
			return v
		}
	}
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

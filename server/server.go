package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelforge/ptouchd/adapter"
	"github.com/labelforge/ptouchd/protocol"
	"github.com/labelforge/ptouchd/session"
)

// Job payload framing, client to server. All multi-byte fields are
// big-endian.
//
//	[2]  magic "PT"
//	[1]  version (currently 1)
//	[1]  option flags
//	[1]  media hint kind (0 = no hint)
//	[1]  media hint width mm (0 = no hint)
//	[1]  media hint length mm (0 = continuous)
//	[2]  margin dots
//	[2]  line count
//	[n]  line count x 16-byte raster lines
//
// The server answers with a single result byte.
const (
	payloadVersion    = 1
	payloadHeaderSize = 11
)

var payloadMagic = [2]byte{'P', 'T'}

// Option flag bits.
const (
	flagAutoCut = 1 << iota
	flagMirror
	flagCompress
	flagHighRes
	flagHalfCut
	flagNoFeed
)

// Result codes.
const (
	ResultOK            = 0x00
	ResultBadRequest    = 0x01
	ResultMediaMismatch = 0x02
	ResultDeviceFault   = 0x03
	ResultTransportErr  = 0x04
	ResultTimeout       = 0x05
	ResultCancelled     = 0x06
)

// Server accepts framed print jobs over TCP and drives them through a
// device session. Jobs are serialised: the printer is a strictly
// sequential device, so one session runs at a time.
type Server struct {
	transport   adapter.Transport
	listener    net.Listener
	address     string
	sessionOpts []session.Option
	mu          sync.Mutex
	jobMu       sync.Mutex
	running     bool
	wg          sync.WaitGroup
	logger      zerolog.Logger
}

// New creates a new server instance.
func New(transport adapter.Transport, address string, logger zerolog.Logger, sessionOpts ...session.Option) *Server {
	return &Server{
		transport:   transport,
		address:     address,
		logger:      logger.With().Str("component", "server").Logger(),
		sessionOpts: sessionOpts,
	}
}

// Start starts the TCP server and blocks until Stop is called.
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}

	s.logger.Info().Msg("ready to accept connections")
	s.acceptConnections()

	return nil
}

// StartAsync starts the TCP server in a goroutine (non-blocking).
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptConnections()
	}()
	s.logger.Info().Msg("server started in background")

	return nil
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Error().Msg("server already running")
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to start server")
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.running = true
	s.logger.Info().Str("address", s.address).Msg("server listening")

	if !s.transport.IsOpen() {
		if err := s.transport.Open(); err != nil {
			s.listener.Close()
			s.running = false
			s.logger.Error().Err(err).Msg("failed to open printer transport")
			return fmt.Errorf("failed to open transport: %w", err)
		}
		s.logger.Info().Msg("printer transport opened")
	}

	return nil
}

// acceptConnections handles incoming client connections.
func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()

			if !running {
				s.logger.Info().Msg("server shutting down, stopping accept loop")
				return
			}
			s.logger.Error().Err(err).Msg("error accepting connection")
			continue
		}

		s.logger.Debug().Stringer("client", conn.RemoteAddr()).Msg("client connected")
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection reads one framed job from the client, prints it and
// answers with a result byte.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	log := s.logger.With().Stringer("client", conn.RemoteAddr()).Logger()

	job, err := readJob(conn)
	if err != nil {
		log.Warn().Err(err).Msg("rejecting malformed job payload")
		jobsTotal.WithLabelValues("bad_request").Inc()
		conn.Write([]byte{ResultBadRequest})
		return
	}

	log = log.With().Str("job", job.ID.String()).Int("lines", len(job.Lines)).Logger()
	log.Info().Msg("job accepted")

	result := s.print(job)
	jobsTotal.WithLabelValues(outcomeLabel(result)).Inc()
	if result == ResultOK {
		rasterLinesSent.Add(float64(len(job.Lines)))
	}

	if _, err := conn.Write([]byte{result}); err != nil {
		log.Warn().Err(err).Msg("failed to send result to client")
	}
	log.Info().Uint8("result", result).Msg("job finished")
}

// print runs one job through a fresh session. Sessions are serialised per
// transport; the device cannot interleave two command streams.
func (s *Server) print(job *session.PrintJob) byte {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	start := time.Now()
	sess := session.New(s.transport, s.sessionOpts...)
	err := sess.Print(context.Background(), job)
	jobDuration.Observe(time.Since(start).Seconds())

	return resultFor(err)
}

func resultFor(err error) byte {
	var (
		mismatch  *session.MediaMismatchError
		fault     *session.DeviceFaultError
		transport *session.TransportError
		timeout   *session.TimeoutError
	)

	switch {
	case err == nil:
		return ResultOK
	case errors.As(err, &mismatch):
		return ResultMediaMismatch
	case errors.As(err, &fault):
		return ResultDeviceFault
	case errors.As(err, &transport):
		return ResultTransportErr
	case errors.As(err, &timeout):
		return ResultTimeout
	case errors.Is(err, context.Canceled):
		return ResultCancelled
	default:
		return ResultBadRequest
	}
}

func outcomeLabel(result byte) string {
	switch result {
	case ResultOK:
		return "ok"
	case ResultBadRequest:
		return "bad_request"
	case ResultMediaMismatch:
		return "media_mismatch"
	case ResultDeviceFault:
		return "device_fault"
	case ResultTransportErr:
		return "transport_error"
	case ResultTimeout:
		return "timeout"
	case ResultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// readJob parses one framed job payload from the wire.
func readJob(r io.Reader) (*session.PrintJob, error) {
	header := make([]byte, payloadHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if header[0] != payloadMagic[0] || header[1] != payloadMagic[1] {
		return nil, fmt.Errorf("bad magic 0x%02X%02X", header[0], header[1])
	}
	if header[2] != payloadVersion {
		return nil, fmt.Errorf("unsupported payload version %d", header[2])
	}

	flags := header[3]
	hint := protocol.Media{
		Kind:     protocol.MediaKind(header[4]),
		WidthMM:  uint16(header[5]),
		LengthMM: uint16(header[6]),
	}
	margin := binary.BigEndian.Uint16(header[7:9])
	lineCount := int(binary.BigEndian.Uint16(header[9:11]))
	if lineCount == 0 {
		return nil, fmt.Errorf("job has no raster lines")
	}

	lines := make([][]byte, lineCount)
	for i := range lines {
		line := make([]byte, protocol.BytesPerLine)
		if _, err := io.ReadFull(r, line); err != nil {
			return nil, fmt.Errorf("read raster line %d: %w", i, err)
		}
		lines[i] = line
		bytesReceived.Add(protocol.BytesPerLine)
	}

	opts := session.Options{
		AutoCut:        flags&flagAutoCut != 0,
		Mirror:         flags&flagMirror != 0,
		Compress:       flags&flagCompress != 0,
		HighResolution: flags&flagHighRes != 0,
		HalfCut:        flags&flagHalfCut != 0,
		NoFeed:         flags&flagNoFeed != 0,
		MarginDots:     margin,
	}

	return session.NewJob(lines, hint, opts)
}

// Stop stops the TCP server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.logger.Debug().Msg("stop called but server is not running")
		return nil
	}

	s.logger.Info().Msg("stopping server")
	s.running = false
	listener := s.listener
	s.mu.Unlock()

	if listener != nil {
		listener.Close()
	}

	// Wait for all connections to finish
	s.wg.Wait()

	if s.transport.IsOpen() {
		if err := s.transport.Close(); err != nil {
			s.logger.Error().Err(err).Msg("error closing printer transport")
			return err
		}
		s.logger.Info().Msg("printer transport closed")
	}

	s.logger.Info().Msg("server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the server address.
func (s *Server) Address() string {
	return s.address
}

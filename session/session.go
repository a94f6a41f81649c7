package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/labelforge/ptouchd/adapter"
	"github.com/labelforge/ptouchd/protocol"
)

// Session owns a transport and drives print jobs over it. All commands are
// issued from the calling goroutine in strict order; the protocol is
// request/response over one endpoint pair and tolerates no interleaving.
type Session struct {
	transport adapter.Transport
	cfg       Config
	state     State
	status    *protocol.StatusReply
}

// New creates a session over the given transport. The transport must
// already be open and stays exclusively owned by this session.
func New(t adapter.Transport, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		transport: t,
		cfg:       cfg,
		state:     StateDisconnected,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// LastStatus returns the most recently decoded status reply, or nil before
// the first successful status read. The reply is replaced wholesale on
// each read, never mutated.
func (s *Session) LastStatus() *protocol.StatusReply {
	return s.status
}

// Media returns the media reported by the last status read.
func (s *Session) Media() protocol.Media {
	if s.status == nil {
		return protocol.Media{}
	}
	return s.status.Media
}

// Print drives one job to completion or a terminal error. On error the
// session is left in StateFaulted and the job cannot be resumed: the
// printer's raster buffer is not safely resumable mid-stream, so a caller
// retries with a fresh job.
//
// The context cancels the job between raster lines. A line whose bytes are
// already being written always completes first, since the printer cannot
// represent a partial line.
func (s *Session) Print(ctx context.Context, job *PrintJob) error {
	if job == nil || len(job.Lines) == 0 {
		return fmt.Errorf("nothing to print")
	}

	log := s.cfg.Logger.With().
		Str("job", job.ID.String()).
		Int("lines", len(job.Lines)).
		Logger()

	s.state = StateDisconnected
	start := time.Now()

	// Flush any partial command from a prior aborted session, then reset
	// to defaults. No reply is expected for either.
	if err := s.writeCommand("invalidate", protocol.Invalidate{}); err != nil {
		return s.fault(log, err)
	}
	s.state = StateInvalidated

	if err := s.writeCommand("initialize", protocol.Initialize{}); err != nil {
		return s.fault(log, err)
	}
	s.state = StateInitialized

	// Mandatory initial status read. Decode failures here are fatal, not
	// noise: without a trusted status we must not print.
	reply, err := s.requestStatus(log)
	if err != nil {
		return s.fault(log, err)
	}
	if reply.Errors != 0 {
		return s.fault(log, &DeviceFaultError{Flags: reply.Errors})
	}
	s.status = reply

	if !reply.Media.IsCompatible(job.MediaHint) {
		return s.fault(log, &MediaMismatchError{Want: job.MediaHint, Got: reply.Media})
	}
	s.state = StateMediaConfigured
	log.Debug().Stringer("media", reply.Media).Msg("media configured")

	if err := s.configure(job, reply.Media); err != nil {
		return s.fault(log, err)
	}

	s.state = StateStreaming
	for i, line := range job.Lines {
		select {
		case <-ctx.Done():
			return s.fault(log, fmt.Errorf("job cancelled after %d lines: %w", i, ctx.Err()))
		default:
		}

		var cmd protocol.Command
		if isZeroLine(line) {
			cmd = protocol.RasterZero{}
		} else {
			cmd = protocol.RasterTransfer{Line: line, Compressed: job.Options.Compress}
		}
		if err := s.writeCommand("raster transfer", cmd); err != nil {
			return s.fault(log, err)
		}
	}

	s.state = StateFinalizing
	var final protocol.Command = protocol.PrintAndFeed{}
	if job.Options.NoFeed {
		final = protocol.PrintNoFeed{}
	}
	if err := s.writeCommand("print", final); err != nil {
		return s.fault(log, err)
	}

	s.state = StateAwaitingCompletion
	if err := s.awaitCompletion(ctx, log); err != nil {
		return s.fault(log, err)
	}

	s.state = StateCompleted
	log.Info().Dur("elapsed", time.Since(start)).Msg("print completed")
	return nil
}

// configure sends the job setup commands: command mode, print information,
// mode flags, margin and compression.
func (s *Session) configure(job *PrintJob, media protocol.Media) error {
	if err := s.writeCommand("switch mode", protocol.SwitchMode{Mode: protocol.ModeRaster}); err != nil {
		return err
	}

	info := protocol.PrintInfo{
		RasterCount: uint32(len(job.Lines)),
		FirstPage:   true,
	}
	if media.Kind != protocol.KindNone && media.Kind != protocol.KindUnknown {
		info.Kind = media.Kind
		info.KindValid = true
	}
	if media.WidthMM != 0 {
		info.Width = uint8(media.WidthMM)
		info.WidthValid = true
	}
	info.Length = uint8(media.LengthMM)
	info.LengthValid = true

	if err := s.writeCommand("set media", protocol.SetMediaAndQuality{Info: info}); err != nil {
		return err
	}

	var various protocol.VariousMode
	if job.Options.AutoCut {
		various |= protocol.VariousAutoCut
	}
	if job.Options.Mirror {
		various |= protocol.VariousMirror
	}
	if err := s.writeCommand("set various mode", protocol.SetVariousMode{Flags: various}); err != nil {
		return err
	}

	var advanced protocol.AdvancedMode
	if job.Options.HighResolution {
		advanced |= protocol.AdvancedHighRes
	}
	if job.Options.HalfCut {
		advanced |= protocol.AdvancedHalfCut
	}
	if err := s.writeCommand("set advanced mode", protocol.SetAdvancedMode{Flags: advanced}); err != nil {
		return err
	}

	if job.Options.MarginDots > 0 {
		if err := s.writeCommand("set margin", protocol.SetMargin{Dots: job.Options.MarginDots}); err != nil {
			return err
		}
	}

	return s.writeCommand("set compression", protocol.SetCompression{Enabled: job.Options.Compress})
}

// writeCommand writes one encoded command, retrying transport failures with
// the identical bytes up to the configured bound. Commands are idempotent
// byte writes, so a retry never corrupts the stream.
func (s *Session) writeCommand(op string, cmd protocol.Command) error {
	frame := cmd.Encode()

	var lastErr error
	attempts := s.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		n, err := s.transport.Write(frame)
		if err == nil && n == len(frame) {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(frame))
		}
		lastErr = err
	}

	return &TransportError{Op: op, Attempts: attempts, Err: lastErr}
}

// readStatusFrame reads one raw status frame, retrying transport failures.
// A read timeout is passed through untouched so callers can tell a silent
// printer from a broken link.
func (s *Session) readStatusFrame() ([]byte, error) {
	var lastErr error
	attempts := s.cfg.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := s.transport.ReadStatus(s.cfg.StatusTimeout)
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, adapter.ErrTimeout) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &TransportError{Op: "status read", Attempts: attempts, Err: lastErr}
}

// requestStatus issues a status request and decodes the reply. Used for
// the mandatory initial read, where every failure is fatal.
func (s *Session) requestStatus(log zerolog.Logger) (*protocol.StatusReply, error) {
	if err := s.writeCommand("status request", protocol.StatusRequest{}); err != nil {
		return nil, err
	}

	raw, err := s.readStatusFrame()
	if err != nil {
		if errors.Is(err, adapter.ErrTimeout) {
			return nil, &TimeoutError{Waited: s.cfg.StatusTimeout}
		}
		return nil, err
	}

	reply, err := protocol.DecodeStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("initial status read: %w", err)
	}

	log.Debug().
		Stringer("type", reply.Type).
		Stringer("media", reply.Media).
		Stringer("errors", reply.Errors).
		Msg("status reply")
	return reply, nil
}

// awaitCompletion polls the printer until it reports completion, an error
// condition, or the maximum wait elapses. Malformed frames during polling
// are transport noise and simply re-polled.
func (s *Session) awaitCompletion(ctx context.Context, log zerolog.Logger) error {
	deadline := time.Now().Add(s.cfg.CompletionWait)

	for {
		if err := s.writeCommand("status request", protocol.StatusRequest{}); err != nil {
			return err
		}

		raw, err := s.readStatusFrame()
		switch {
		case errors.Is(err, adapter.ErrTimeout):
			// Nothing to report yet.
		case err != nil:
			return err
		default:
			reply, derr := protocol.DecodeStatus(raw)
			if derr != nil {
				log.Debug().Err(derr).Msg("discarding malformed status frame")
				break
			}
			s.status = reply

			switch {
			case reply.Type == protocol.StatusErrorOccurred || reply.Errors != 0:
				return &DeviceFaultError{Flags: reply.Errors}
			case reply.Type == protocol.StatusCompleted:
				return nil
			default:
				log.Debug().
					Stringer("type", reply.Type).
					Stringer("phase", reply.Phase).
					Msg("job in progress")
			}
		}

		if time.Now().After(deadline) {
			return &TimeoutError{Waited: s.cfg.CompletionWait}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("job cancelled while awaiting completion: %w", ctx.Err())
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

func (s *Session) fault(log zerolog.Logger, err error) error {
	s.state = StateFaulted
	log.Error().Err(err).Msg("print job faulted")
	return err
}

func isZeroLine(line []byte) bool {
	for _, b := range line {
		if b != 0 {
			return false
		}
	}
	return true
}

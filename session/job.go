package session

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/labelforge/ptouchd/protocol"
)

// Options are the per-job print settings.
type Options struct {
	// AutoCut cuts the media after the final feed.
	AutoCut bool

	// Mirror flips the image for see-through media.
	Mirror bool

	// Compress enables TIFF run-length compression for raster transfer.
	Compress bool

	// HighResolution selects the high-resolution print mode.
	HighResolution bool

	// HalfCut scores laminated tape without cutting the backing.
	HalfCut bool

	// MarginDots is the feed margin in dots. Zero keeps the printer
	// default.
	MarginDots uint16

	// NoFeed finishes the job with a flush instead of a feed/cut, for
	// the non-terminal segments of a multi-segment print.
	NoFeed bool
}

// PrintJob is one complete print request: rendered raster lines in
// top-to-bottom order plus print options. Jobs are immutable once built;
// the session owns a job for the duration of Print and discards it on
// completion or terminal error.
type PrintJob struct {
	// ID identifies the job in logs and metrics.
	ID uuid.UUID

	// Lines are the raster lines, each exactly protocol.BytesPerLine
	// bytes. Line order is the job's visual contract.
	Lines [][]byte

	// MediaHint, when any field is set, is checked against the media the
	// printer reports before any raster data is streamed.
	MediaHint protocol.Media

	Options Options
}

// NewJob validates the raster data and builds a job. Every line must be
// exactly the head width; a job must carry at least one line.
func NewJob(lines [][]byte, hint protocol.Media, opts Options) (*PrintJob, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("job has no raster lines")
	}
	for i, line := range lines {
		if len(line) != protocol.BytesPerLine {
			return nil, fmt.Errorf("raster line %d is %d bytes, want %d",
				i, len(line), protocol.BytesPerLine)
		}
	}

	return &PrintJob{
		ID:        uuid.New(),
		Lines:     lines,
		MediaHint: hint,
		Options:   opts,
	}, nil
}

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Decode failures. The session treats both as a recoverable transport
// glitch while polling, and as fatal on the mandatory initial status read.
var (
	ErrBadLength    = errors.New("status frame is not 32 bytes")
	ErrBadSignature = errors.New("status frame signature mismatch")
)

// ErrorFlags is the combined error bitset of a status reply. The low byte
// holds error information 1, the high byte error information 2.
type ErrorFlags uint16

const (
	FlagNoMedia       ErrorFlags = 1 << 0
	FlagEndOfMedia    ErrorFlags = 1 << 1
	FlagCutterJam     ErrorFlags = 1 << 2
	FlagWeakBatteries ErrorFlags = 1 << 3
	FlagHighVoltage   ErrorFlags = 1 << 6

	FlagWrongMedia        ErrorFlags = 1 << 8
	FlagBufferFull        ErrorFlags = 1 << 9
	FlagTransmissionError ErrorFlags = 1 << 10
	FlagCoverOpen         ErrorFlags = 1 << 12
	FlagOverheating       ErrorFlags = 1 << 13
)

var flagNames = []struct {
	flag ErrorFlags
	name string
}{
	{FlagNoMedia, "no media"},
	{FlagEndOfMedia, "end of media"},
	{FlagCutterJam, "cutter jam"},
	{FlagWeakBatteries, "weak batteries"},
	{FlagHighVoltage, "high-voltage adapter"},
	{FlagWrongMedia, "wrong media"},
	{FlagBufferFull, "expansion buffer full"},
	{FlagTransmissionError, "transmission error"},
	{FlagCoverOpen, "cover open"},
	{FlagOverheating, "overheating"},
}

// Has reports whether all bits of f are set.
func (e ErrorFlags) Has(f ErrorFlags) bool {
	return e&f == f
}

func (e ErrorFlags) String() string {
	if e == 0 {
		return "none"
	}

	var names []string
	rest := e
	for _, fn := range flagNames {
		if e.Has(fn.flag) {
			names = append(names, fn.name)
			rest &^= fn.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("unknown(0x%04X)", uint16(rest)))
	}
	return strings.Join(names, ", ")
}

// StatusReply is the decoded form of the printer's 32-byte status frame.
// Replies are immutable values; the session replaces its copy wholesale on
// each status read.
type StatusReply struct {
	Errors     ErrorFlags
	Media      Media
	Mode       byte
	Type       StatusType
	Phase      Phase
	TapeColour byte
	TextColour byte

	// Raw is the frame as received.
	Raw [StatusReplySize]byte
}

// DecodeStatus parses a raw status frame. The buffer must be exactly 32
// bytes and carry the fixed print head mark, otherwise the frame is
// rejected wholesale and never partially interpreted.
func DecodeStatus(buf []byte) (*StatusReply, error) {
	if len(buf) != StatusReplySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadLength, len(buf))
	}
	if buf[offHeadMark] != statusHeadMark || buf[offSizeMark] != statusSizeMark {
		return nil, fmt.Errorf("%w: got 0x%02X 0x%02X, want 0x%02X 0x%02X",
			ErrBadSignature, buf[offHeadMark], buf[offSizeMark], statusHeadMark, statusSizeMark)
	}

	s := &StatusReply{
		Errors:     ErrorFlags(buf[offErrorInfo1]) | ErrorFlags(buf[offErrorInfo2])<<8,
		Media:      mediaFromStatus(buf[offMediaKind], buf[offMediaWidth], buf[offMediaLength]),
		Mode:       buf[offMode],
		Type:       StatusType(buf[offStatusType]),
		Phase:      Phase(buf[offPhaseType]),
		TapeColour: buf[offTapeColour],
		TextColour: buf[offTextColour],
	}
	copy(s.Raw[:], buf)

	return s, nil
}

package protocol

import "encoding/binary"

// Command is a printer directive that encodes to its wire byte sequence.
// The set of variants is closed: every implementation lives in this package,
// and each Encode is a pure function of the variant's fields.
type Command interface {
	Encode() []byte

	isCommand()
}

// Invalidate clears any partial command the printer may have buffered from
// a prior aborted session. Sent unconditionally at session start.
type Invalidate struct{}

func (Invalidate) Encode() []byte {
	return make([]byte, InvalidateLength)
}

// Initialize resets the printer's internal state to defaults. Always sent
// immediately after Invalidate.
type Initialize struct{}

func (Initialize) Encode() []byte {
	return []byte{escByte, '@'}
}

// StatusRequest asks the printer to send a 32-byte status reply. This is the
// only command that elicits a reply on the status endpoint.
type StatusRequest struct{}

func (StatusRequest) Encode() []byte {
	return []byte{escByte, 'i', 'S'}
}

// SwitchMode selects the printer command interpreter (raster, ESC/P or
// P-touch Template).
type SwitchMode struct {
	Mode Mode
}

func (c SwitchMode) Encode() []byte {
	return []byte{escByte, 'i', 'a', byte(c.Mode)}
}

// SetStatusNotify enables or disables unsolicited status notifications.
// Note the inverted wire flag: 0 enables, 1 disables.
type SetStatusNotify struct {
	Enabled bool
}

func (c SetStatusNotify) Encode() []byte {
	flag := byte(1)
	if c.Enabled {
		flag = 0
	}
	return []byte{escByte, 'i', '!', flag}
}

// PrintInfo is the parameter block of the SetMediaAndQuality command. The
// printer checks the declared kind, width and length against the loaded
// media and faults the job on mismatch before committing ink.
type PrintInfo struct {
	Kind        MediaKind
	KindValid   bool
	Width       uint8 // tape width in mm
	WidthValid  bool
	Length      uint8 // 0 for continuous tape
	LengthValid bool

	// RasterCount is the total number of raster lines in the job.
	RasterCount uint32

	// Recover enables printer-side print recovery.
	Recover bool

	// FirstPage is false for the second and later pages of a multi-page
	// job.
	FirstPage bool
}

// SetMediaAndQuality declares the expected media and print quality for the
// job about to be streamed.
type SetMediaAndQuality struct {
	Info PrintInfo
}

func (c SetMediaAndQuality) Encode() []byte {
	buf := make([]byte, 13)
	buf[0] = escByte
	buf[1] = 'i'
	buf[2] = 'z'

	if c.Info.KindValid {
		buf[3] |= 0x02
		buf[4] = byte(c.Info.Kind)
	}
	if c.Info.WidthValid {
		buf[3] |= 0x04
		buf[5] = c.Info.Width
	}
	if c.Info.LengthValid {
		buf[3] |= 0x08
		buf[6] = c.Info.Length
	}
	if c.Info.Recover {
		buf[3] |= 0x80
	}

	binary.LittleEndian.PutUint32(buf[7:11], c.Info.RasterCount)

	if !c.Info.FirstPage {
		buf[11] = 1
	}
	// buf[12] is always zero.

	return buf
}

// SetVariousMode sets auto-cut and mirror printing flags.
type SetVariousMode struct {
	Flags VariousMode
}

func (c SetVariousMode) Encode() []byte {
	return []byte{escByte, 'i', 'M', byte(c.Flags)}
}

// SetAdvancedMode sets half-cut, chain printing, special tape, high
// resolution and buffer clearing flags.
type SetAdvancedMode struct {
	Flags AdvancedMode
}

func (c SetAdvancedMode) Encode() []byte {
	return []byte{escByte, 'i', 'K', byte(c.Flags)}
}

// SetMargin sets the feed amount (margin) in dots.
type SetMargin struct {
	Dots uint16
}

func (c SetMargin) Encode() []byte {
	return []byte{escByte, 'i', 'd', byte(c.Dots), byte(c.Dots >> 8)}
}

// SetPageNumber sets the number of cut-separated pages in the job.
type SetPageNumber struct {
	Page uint8
}

func (c SetPageNumber) Encode() []byte {
	return []byte{escByte, 'i', 'A', c.Page}
}

// SetCompression toggles TIFF run-length compression for all subsequent
// raster transfers. Once enabled, every following line must be sent
// compressed until it is switched off or the job ends.
type SetCompression struct {
	Enabled bool
}

func (c SetCompression) Encode() []byte {
	mode := byte(0x00)
	if c.Enabled {
		mode = 0x02
	}
	return []byte{cmdSetCompression, mode}
}

// RasterTransfer carries one print-head scan line. When Compressed is set
// the payload is run-length encoded; the length field always describes the
// bytes that follow on the wire.
type RasterTransfer struct {
	Line       []byte
	Compressed bool
}

func (c RasterTransfer) Encode() []byte {
	payload := c.Line
	if c.Compressed {
		payload = Compress(c.Line)
	}

	buf := make([]byte, 3+len(payload))
	buf[0] = cmdRasterTransfer
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(payload)))
	copy(buf[3:], payload)
	return buf
}

// RasterZero is the short form of a fully empty raster line.
type RasterZero struct{}

func (RasterZero) Encode() []byte {
	return []byte{cmdRasterZero}
}

// PrintNoFeed flushes buffered raster data and prints without feeding,
// used between the segments of a multi-segment job.
type PrintNoFeed struct{}

func (PrintNoFeed) Encode() []byte {
	return []byte{cmdPrintNoFeed}
}

// PrintAndFeed prints the final segment of a job and feeds (and with
// auto-cut enabled, cuts) the media.
type PrintAndFeed struct{}

func (PrintAndFeed) Encode() []byte {
	return []byte{cmdPrintAndFeed}
}

func (Invalidate) isCommand()         {}
func (Initialize) isCommand()         {}
func (StatusRequest) isCommand()      {}
func (SwitchMode) isCommand()         {}
func (SetStatusNotify) isCommand()    {}
func (SetMediaAndQuality) isCommand() {}
func (SetVariousMode) isCommand()     {}
func (SetAdvancedMode) isCommand()    {}
func (SetMargin) isCommand()          {}
func (SetPageNumber) isCommand()      {}
func (SetCompression) isCommand()     {}
func (RasterTransfer) isCommand()     {}
func (RasterZero) isCommand()         {}
func (PrintNoFeed) isCommand()        {}
func (PrintAndFeed) isCommand()       {}

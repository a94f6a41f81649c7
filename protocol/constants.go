package protocol

// Byte values below follow the Brother raster command reference for the
// PT series (PT-E550W / PT-P750W / PT-P710BT class).

const (
	// InvalidateLength is the number of zero bytes sent to flush any
	// partial command left in the printer's receive buffer.
	InvalidateLength = 200

	// StatusReplySize is the fixed size of a status information frame.
	StatusReplySize = 32

	// BytesPerLine is the raster line width for the 128-dot print head.
	// This is the single constant to change for other head widths.
	BytesPerLine = 16

	// PixelsPerLine is the raster line width in dots.
	PixelsPerLine = BytesPerLine * 8
)

// Command lead-in bytes.
const (
	escByte = 0x1B

	cmdRasterTransfer  = 0x47 // 'G'
	cmdRasterZero      = 0x5A // 'Z'
	cmdSetCompression  = 0x4D // 'M'
	cmdPrintNoFeed     = 0x0C // FF
	cmdPrintAndFeed    = 0x1A // SUB
)

// Status frame signature ("print head mark" and frame size).
const (
	statusHeadMark = 0x80
	statusSizeMark = 0x20
)

// Status frame field offsets.
const (
	offHeadMark    = 0
	offSizeMark    = 1
	offErrorInfo1  = 8
	offErrorInfo2  = 9
	offMediaWidth  = 10
	offMediaKind   = 11
	offMode        = 15
	offMediaLength = 17
	offStatusType  = 18
	offPhaseType   = 19
	offTapeColour  = 24
	offTextColour  = 25
)

// Mode selects the printer command interpreter.
type Mode byte

const (
	ModeEscP     Mode = 0x00
	ModeRaster   Mode = 0x01
	ModeTemplate Mode = 0x03
)

// VariousMode is the flag byte of the "various mode settings" command.
type VariousMode byte

const (
	VariousAutoCut VariousMode = 1 << 6
	VariousMirror  VariousMode = 1 << 7
)

// AdvancedMode is the flag byte of the "advanced mode settings" command.
type AdvancedMode byte

const (
	AdvancedHalfCut       AdvancedMode = 1 << 2
	AdvancedNoChain       AdvancedMode = 1 << 3
	AdvancedSpecialTape   AdvancedMode = 1 << 4
	AdvancedHighRes       AdvancedMode = 1 << 6
	AdvancedNoBufferClear AdvancedMode = 1 << 7
)

// StatusType identifies what a status reply reports.
type StatusType byte

const (
	StatusReplyToRequest StatusType = 0x00
	StatusCompleted      StatusType = 0x01
	StatusErrorOccurred  StatusType = 0x02
	StatusExitIF         StatusType = 0x03
	StatusTurnedOff      StatusType = 0x04
	StatusNotification   StatusType = 0x05
	StatusPhaseChange    StatusType = 0x06
)

func (s StatusType) String() string {
	switch s {
	case StatusReplyToRequest:
		return "reply"
	case StatusCompleted:
		return "completed"
	case StatusErrorOccurred:
		return "error"
	case StatusExitIF:
		return "exit-if"
	case StatusTurnedOff:
		return "turned-off"
	case StatusNotification:
		return "notification"
	case StatusPhaseChange:
		return "phase-change"
	default:
		return "unknown"
	}
}

// Phase reports which stage of a job the printer is in.
type Phase byte

const (
	PhaseReceiving Phase = 0x00
	PhasePrinting  Phase = 0x01
)

func (p Phase) String() string {
	switch p {
	case PhaseReceiving:
		return "receiving"
	case PhasePrinting:
		return "printing"
	default:
		return "unknown"
	}
}

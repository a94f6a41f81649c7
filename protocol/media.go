package protocol

import "fmt"

// MediaKind is the media identifier byte reported in a status reply.
type MediaKind byte

const (
	KindNone             MediaKind = 0x00
	KindLaminatedTape    MediaKind = 0x01
	KindNonLaminatedTape MediaKind = 0x03
	KindHeatShrinkTube   MediaKind = 0x11
	KindContinuousLabel  MediaKind = 0x4A
	KindDieCutLabel      MediaKind = 0x4B
	KindIncompatible     MediaKind = 0xFF

	// KindUnknown is not a wire value. Identifier bytes the driver does
	// not recognise map here so that new media types never break a job.
	KindUnknown MediaKind = 0xFE
)

func (k MediaKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLaminatedTape:
		return "laminated tape"
	case KindNonLaminatedTape:
		return "non-laminated tape"
	case KindHeatShrinkTube:
		return "heat-shrink tube"
	case KindContinuousLabel:
		return "continuous label"
	case KindDieCutLabel:
		return "die-cut label"
	case KindIncompatible:
		return "incompatible"
	default:
		return "unknown"
	}
}

func kindFromByte(b byte) MediaKind {
	switch k := MediaKind(b); k {
	case KindNone, KindLaminatedTape, KindNonLaminatedTape,
		KindHeatShrinkTube, KindContinuousLabel, KindDieCutLabel,
		KindIncompatible:
		return k
	default:
		return KindUnknown
	}
}

// Media describes the tape or label currently loaded in the printer, as
// read from a status reply. Values are immutable; a new status read yields
// a new Media.
type Media struct {
	Kind     MediaKind
	WidthMM  uint16
	LengthMM uint16 // 0 for continuous media
}

func (m Media) String() string {
	if m.LengthMM == 0 {
		return fmt.Sprintf("%dmm %s", m.WidthMM, m.Kind)
	}
	return fmt.Sprintf("%dx%dmm %s", m.WidthMM, m.LengthMM, m.Kind)
}

func mediaFromStatus(kind, widthMM, lengthMM byte) Media {
	return Media{
		Kind:     kindFromByte(kind),
		WidthMM:  uint16(widthMM),
		LengthMM: uint16(lengthMM),
	}
}

// IsCompatible applies the media match policy: a width or kind mismatch is
// incompatible unless the hint leaves that field unset (zero value).
func (m Media) IsCompatible(hint Media) bool {
	if hint.WidthMM != 0 && hint.WidthMM != m.WidthMM {
		return false
	}
	if hint.Kind != KindNone && hint.Kind != m.Kind {
		return false
	}
	if hint.LengthMM != 0 && hint.LengthMM != m.LengthMM {
		return false
	}
	return true
}

// printArea gives the printable dot count and left margin on the 128-dot
// head for each supported tape width.
var printArea = map[uint16]struct {
	dots   int
	margin int
}{
	6:  {32, 48},
	9:  {50, 39},
	12: {70, 29},
	18: {112, 8},
	24: {128, 0},
}

// Area returns the printable width in dots and the left margin in dots for
// the media. The second return is false for widths without a known print
// area, in which case callers should fall back to the full head width.
func (m Media) Area() (dots, margin int, ok bool) {
	a, ok := printArea[m.WidthMM]
	if !ok {
		return PixelsPerLine, 0, false
	}
	return a.dots, a.margin, true
}

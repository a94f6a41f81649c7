package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidateEncoding(t *testing.T) {
	frame := Invalidate{}.Encode()

	require.Len(t, frame, InvalidateLength)
	assert.Equal(t, make([]byte, InvalidateLength), frame)
}

func TestFixedCommandEncodings(t *testing.T) {
	testCases := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{"Initialize", Initialize{}, []byte{0x1B, 0x40}},
		{"StatusRequest", StatusRequest{}, []byte{0x1B, 0x69, 0x53}},
		{"SwitchModeRaster", SwitchMode{Mode: ModeRaster}, []byte{0x1B, 0x69, 0x61, 0x01}},
		{"SwitchModeEscP", SwitchMode{Mode: ModeEscP}, []byte{0x1B, 0x69, 0x61, 0x00}},
		{"NotifyOn", SetStatusNotify{Enabled: true}, []byte{0x1B, 0x69, 0x21, 0x00}},
		{"NotifyOff", SetStatusNotify{Enabled: false}, []byte{0x1B, 0x69, 0x21, 0x01}},
		{"VariousAutoCut", SetVariousMode{Flags: VariousAutoCut}, []byte{0x1B, 0x69, 0x4D, 0x40}},
		{"AdvancedHighRes", SetAdvancedMode{Flags: AdvancedHighRes}, []byte{0x1B, 0x69, 0x4B, 0x40}},
		{"Margin", SetMargin{Dots: 0x0214}, []byte{0x1B, 0x69, 0x64, 0x14, 0x02}},
		{"PageNumber", SetPageNumber{Page: 2}, []byte{0x1B, 0x69, 0x41, 0x02}},
		{"CompressionOn", SetCompression{Enabled: true}, []byte{0x4D, 0x02}},
		{"CompressionOff", SetCompression{Enabled: false}, []byte{0x4D, 0x00}},
		{"RasterZero", RasterZero{}, []byte{0x5A}},
		{"PrintNoFeed", PrintNoFeed{}, []byte{0x0C}},
		{"PrintAndFeed", PrintAndFeed{}, []byte{0x1A}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cmd.Encode())
		})
	}
}

func TestSetMediaAndQualityEncoding(t *testing.T) {
	cmd := SetMediaAndQuality{Info: PrintInfo{
		Kind:        KindLaminatedTape,
		KindValid:   true,
		Width:       12,
		WidthValid:  true,
		Length:      0,
		LengthValid: true,
		RasterCount: 0x0102,
		FirstPage:   true,
	}}

	frame := cmd.Encode()
	require.Len(t, frame, 13)

	assert.Equal(t, []byte{0x1B, 0x69, 0x7A}, frame[:3])
	assert.Equal(t, byte(0x02|0x04|0x08), frame[3], "validity flags")
	assert.Equal(t, byte(KindLaminatedTape), frame[4])
	assert.Equal(t, byte(12), frame[5])
	assert.Equal(t, byte(0), frame[6])
	assert.Equal(t, []byte{0x02, 0x01, 0x00, 0x00}, frame[7:11], "raster count, little-endian")
	assert.Equal(t, byte(0), frame[11], "first page flag")
	assert.Equal(t, byte(0), frame[12])
}

func TestSetMediaAndQualityRecoverAndLaterPage(t *testing.T) {
	frame := SetMediaAndQuality{Info: PrintInfo{Recover: true}}.Encode()

	assert.Equal(t, byte(0x80), frame[3])
	assert.Equal(t, byte(1), frame[11], "non-first page sets the page flag")
}

func TestRasterTransferRawEncoding(t *testing.T) {
	line := bytes.Repeat([]byte{0xAA}, BytesPerLine)
	frame := RasterTransfer{Line: line}.Encode()

	require.Len(t, frame, 3+BytesPerLine)
	assert.Equal(t, byte(0x47), frame[0])
	assert.Equal(t, byte(BytesPerLine), frame[1])
	assert.Equal(t, byte(0), frame[2])
	assert.Equal(t, line, frame[3:])
}

func TestRasterTransferCompressedEncoding(t *testing.T) {
	line := bytes.Repeat([]byte{0xAA}, BytesPerLine)
	frame := RasterTransfer{Line: line, Compressed: true}.Encode()

	payload := frame[3:]
	assert.Equal(t, byte(0x47), frame[0])
	assert.Equal(t, byte(len(payload)), frame[1])
	assert.Equal(t, byte(0), frame[2])

	// A uniform line compresses to a single repeat run.
	assert.Equal(t, []byte{0xF1, 0xAA}, payload) // -(16-1) as a signed count

	restored, err := Decompress(payload)
	require.NoError(t, err)
	assert.Equal(t, line, restored)
}

func TestEncodeIsPure(t *testing.T) {
	cmd := RasterTransfer{Line: []byte{0x01, 0x02, 0x03}}

	first := cmd.Encode()
	second := cmd.Encode()

	assert.Equal(t, first, second)

	// Mutating one result must not leak into the next encoding.
	first[0] = 0x00
	assert.Equal(t, second, cmd.Encode())
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaCompatibility(t *testing.T) {
	reported := Media{Kind: KindLaminatedTape, WidthMM: 12}

	testCases := []struct {
		name string
		hint Media
		want bool
	}{
		{"no hint", Media{}, true},
		{"matching width", Media{WidthMM: 12}, true},
		{"matching width and kind", Media{Kind: KindLaminatedTape, WidthMM: 12}, true},
		{"width mismatch", Media{WidthMM: 24}, false},
		{"kind mismatch", Media{Kind: KindHeatShrinkTube, WidthMM: 12}, false},
		{"kind only mismatch", Media{Kind: KindHeatShrinkTube}, false},
		{"length hint against continuous", Media{LengthMM: 90}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, reported.IsCompatible(tc.hint))
		})
	}
}

func TestMediaArea(t *testing.T) {
	dots, margin, ok := Media{WidthMM: 24}.Area()
	assert.True(t, ok)
	assert.Equal(t, PixelsPerLine, dots)
	assert.Equal(t, 0, margin)

	dots, margin, ok = Media{WidthMM: 12}.Area()
	assert.True(t, ok)
	assert.Equal(t, 70, dots)
	assert.Equal(t, 29, margin)

	// Unknown widths fall back to the full head.
	dots, margin, ok = Media{WidthMM: 7}.Area()
	assert.False(t, ok)
	assert.Equal(t, PixelsPerLine, dots)
	assert.Equal(t, 0, margin)
}

func TestMediaKindFromByte(t *testing.T) {
	assert.Equal(t, KindLaminatedTape, kindFromByte(0x01))
	assert.Equal(t, KindIncompatible, kindFromByte(0xFF))
	assert.Equal(t, KindUnknown, kindFromByte(0x5C))
}

func TestMediaString(t *testing.T) {
	assert.Equal(t, "12mm laminated tape", Media{Kind: KindLaminatedTape, WidthMM: 12}.String())
	assert.Equal(t, "29x90mm die-cut label", Media{Kind: KindDieCutLabel, WidthMM: 29, LengthMM: 90}.String())
}

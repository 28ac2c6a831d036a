package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ImageSide is the edge length of every image the device accepts.
const ImageSide = 128

// Mode selects the device-side operation for one transfer.
// The first header byte carries the mode; the second is reserved and always 0.
type Mode uint8

const (
	// ModeGrayOtsu thresholds a single-channel image with Otsu's method.
	ModeGrayOtsu Mode = 1
	// ModeColorOtsu thresholds each plane of a channel-planar RGB image.
	ModeColorOtsu Mode = 2
	// ModeDilate applies 3x3 binary dilation.
	ModeDilate Mode = 3
	// ModeErode applies 3x3 binary erosion.
	ModeErode Mode = 4
)

// KnownModes lists the modes in wire order.
var KnownModes = []Mode{ModeGrayOtsu, ModeColorOtsu, ModeDilate, ModeErode}

// Channels returns the number of image planes the mode carries.
// Unknown modes are treated as single-channel.
func (m Mode) Channels() int {
	if m == ModeColorOtsu {
		return 3
	}
	return 1
}

// PayloadLen returns the fixed payload size for the mode.
// The response is always the same length as the payload.
func (m Mode) PayloadLen() int {
	return ImageSide * ImageSide * m.Channels()
}

// Known reports whether m is one of the defined modes.
func (m Mode) Known() bool {
	return m >= ModeGrayOtsu && m <= ModeErode
}

// String returns the short name used in flags and logs.
func (m Mode) String() string {
	switch m {
	case ModeGrayOtsu:
		return "otsu"
	case ModeColorOtsu:
		return "otsu-rgb"
	case ModeDilate:
		return "dilate"
	case ModeErode:
		return "erode"
	default:
		return "mode-" + strconv.Itoa(int(m))
	}
}

// ParseMode accepts either a mode name or its numeric value.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, m := range KnownModes {
		if s == m.String() {
			return m, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("invalid mode %q: must be otsu, otsu-rgb, dilate, erode or 0-255", s)
	}
	return Mode(n), nil
}

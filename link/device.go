package link

import (
	"sync"

	"github.com/pithecene-io/benchlink/types"
)

// Faults injects failures into an emulated Device.
type Faults struct {
	// OpenErr is returned from Open.
	OpenErr error
	// WriteErr is returned from every Write.
	WriteErr error
	// ResponseLimit truncates every response to this many bytes when > 0.
	ResponseLimit int
	// Silent drops every response.
	Silent bool
}

// DeviceStats counts channel lifecycle events seen by a Device.
type DeviceStats struct {
	Opens   int
	Closes  int
	Handled []types.Mode
}

// Device emulates the accelerator firmware's image operations.
// Unknown modes get no response, like the firmware.
type Device struct {
	mu     sync.Mutex
	faults Faults
	stats  DeviceStats
}

// NewDevice creates a fault-free device.
func NewDevice() *Device {
	return &Device{}
}

// SetFaults replaces the active faults.
func (d *Device) SetFaults(f Faults) {
	d.mu.Lock()
	d.faults = f
	d.mu.Unlock()
}

// Stats returns a copy of the lifecycle counters.
func (d *Device) Stats() DeviceStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Handled = append([]types.Mode(nil), d.stats.Handled...)
	return s
}

func (d *Device) currentFaults() Faults {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faults
}

func (d *Device) countOpen() {
	d.mu.Lock()
	d.stats.Opens++
	d.mu.Unlock()
}

func (d *Device) countClose() {
	d.mu.Lock()
	d.stats.Closes++
	d.mu.Unlock()
}

// respond computes the device output for one complete request.
func (d *Device) respond(mode types.Mode, payload []byte) []byte {
	d.mu.Lock()
	d.stats.Handled = append(d.stats.Handled, mode)
	faults := d.faults
	d.mu.Unlock()

	if faults.Silent {
		return nil
	}
	out := Process(mode, payload)
	if faults.ResponseLimit > 0 && faults.ResponseLimit < len(out) {
		out = out[:faults.ResponseLimit]
	}
	return out
}

// Process applies the operation for mode to payload and returns the output
// buffer. Unknown modes and undersized payloads return nil.
func Process(mode types.Mode, payload []byte) []byte {
	side := types.ImageSide
	plane := side * side
	if len(payload) < mode.PayloadLen() {
		return nil
	}
	switch mode {
	case types.ModeGrayOtsu:
		return Threshold(payload[:plane])
	case types.ModeColorOtsu:
		out := make([]byte, 0, 3*plane)
		for c := range 3 {
			out = append(out, Threshold(payload[c*plane:(c+1)*plane])...)
		}
		return out
	case types.ModeDilate:
		return Dilate(payload[:plane], side)
	case types.ModeErode:
		return Erode(payload[:plane], side)
	default:
		return nil
	}
}

// OtsuThreshold returns the level maximizing between-class variance.
// Ties keep the lowest level.
func OtsuThreshold(plane []byte) uint8 {
	var hist [256]int
	for _, v := range plane {
		hist[v]++
	}
	total := len(plane)
	var sum float64
	for i, h := range hist {
		sum += float64(i * h)
	}

	var sumB, varMax float64
	var wB int
	var threshold uint8
	for i, h := range hist {
		wB += h
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * h)
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > varMax {
			varMax = between
			threshold = uint8(i)
		}
	}
	return threshold
}

// Threshold binarizes plane at its Otsu level: 255 above, 0 at or below.
func Threshold(plane []byte) []byte {
	thr := OtsuThreshold(plane)
	out := make([]byte, len(plane))
	for i, v := range plane {
		if v > thr {
			out[i] = 255
		}
	}
	return out
}

// Dilate applies a 3x3 dilation to the interior of a side x side binary image.
// Border pixels are left at 0.
func Dilate(src []byte, side int) []byte {
	return morph(src, side, 255, 0, 255)
}

// Erode applies a 3x3 erosion to the interior of a side x side binary image.
// Border pixels are left at 0.
func Erode(src []byte, side int) []byte {
	return morph(src, side, 0, 255, 0)
}

// morph writes hit to each interior pixel whose 3x3 neighborhood contains
// trigger, and miss otherwise.
func morph(src []byte, side int, trigger, miss, hit byte) []byte {
	dst := make([]byte, side*side)
	for y := 1; y < side-1; y++ {
		for x := 1; x < side-1; x++ {
			res := miss
		scan:
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					if src[(y+ky)*side+x+kx] == trigger {
						res = hit
						break scan
					}
				}
			}
			dst[y*side+x] = res
		}
	}
	return dst
}

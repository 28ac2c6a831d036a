// Package dataset loads labeled evaluation samples from disk.
//
// MNIST images and labels come from IDX files; spoken digits come from a
// directory of WAV recordings named <label>_<speaker>_<index>.wav.
package dataset

import (
	"encoding/binary"
	"fmt"
	"os"
)

// IDX header sizes. Image files carry magic, count, rows and cols; label
// files carry magic and count. All fields are big-endian uint32.
const (
	imageHeaderSize = 16
	labelHeaderSize = 8
)

// ImageSet is a stack of equally sized grayscale images.
type ImageSet struct {
	Count int
	Rows  int
	Cols  int
	// Pixels holds Count images of Rows*Cols bytes back to back.
	Pixels []byte
}

// Image returns the pixels of image i. The slice aliases the set.
func (s *ImageSet) Image(i int) []byte {
	size := s.Rows * s.Cols
	return s.Pixels[i*size : (i+1)*size]
}

// LoadImages reads an IDX3 image file.
func LoadImages(path string) (*ImageSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read images: %w", err)
	}
	return ParseImages(data)
}

// ParseImages decodes an IDX3 image buffer.
func ParseImages(data []byte) (*ImageSet, error) {
	if len(data) < imageHeaderSize {
		return nil, fmt.Errorf("image file too short: %d bytes", len(data))
	}
	count := uint64(binary.BigEndian.Uint32(data[4:8]))
	rows := uint64(binary.BigEndian.Uint32(data[8:12]))
	cols := uint64(binary.BigEndian.Uint32(data[12:16]))
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("image header declares %dx%d images", rows, cols)
	}
	// rows*cols fits in uint64; count*size may not, so compare by division.
	body := data[imageHeaderSize:]
	size, n := rows*cols, uint64(len(body))
	if n%size != 0 || n/size != count {
		return nil, fmt.Errorf("image file body is %d bytes, header declares %d images of %dx%d",
			len(body), count, rows, cols)
	}
	return &ImageSet{Count: int(count), Rows: int(rows), Cols: int(cols), Pixels: body}, nil
}

// LoadLabels reads an IDX1 label file.
func LoadLabels(path string) ([]uint8, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes an IDX1 label buffer.
func ParseLabels(data []byte) ([]uint8, error) {
	if len(data) < labelHeaderSize {
		return nil, fmt.Errorf("label file too short: %d bytes", len(data))
	}
	count := int(binary.BigEndian.Uint32(data[4:8]))
	body := data[labelHeaderSize:]
	if len(body) != count {
		return nil, fmt.Errorf("label file body is %d bytes, header declares %d", len(body), count)
	}
	return body, nil
}

package dataset

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idxImages(count, rows, cols int) []byte {
	buf := make([]byte, imageHeaderSize+count*rows*cols)
	binary.BigEndian.PutUint32(buf[0:4], 0x00000803)
	binary.BigEndian.PutUint32(buf[4:8], uint32(count))
	binary.BigEndian.PutUint32(buf[8:12], uint32(rows))
	binary.BigEndian.PutUint32(buf[12:16], uint32(cols))
	for i := range count * rows * cols {
		buf[imageHeaderSize+i] = byte(i / (rows * cols))
	}
	return buf
}

func idxLabels(labels ...uint8) []byte {
	buf := make([]byte, labelHeaderSize, labelHeaderSize+len(labels))
	binary.BigEndian.PutUint32(buf[0:4], 0x00000801)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(labels)))
	return append(buf, labels...)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeWAV(t *testing.T, path string, rate, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
}

func TestParseImages(t *testing.T) {
	set, err := ParseImages(idxImages(3, 28, 28))
	require.NoError(t, err)
	assert.Equal(t, 3, set.Count)
	assert.Equal(t, 28, set.Rows)
	assert.Equal(t, 28, set.Cols)
	assert.Len(t, set.Image(2), 784)
	assert.Equal(t, byte(2), set.Image(2)[0])
}

func TestParseImages_Truncated(t *testing.T) {
	data := idxImages(3, 28, 28)
	_, err := ParseImages(data[:len(data)-1])
	assert.Error(t, err)
	_, err = ParseImages(data[:10])
	assert.Error(t, err)
}

func TestParseImages_BadHeader(t *testing.T) {
	header := func(count, rows, cols uint32, body int) []byte {
		data := make([]byte, 16+body)
		binary.BigEndian.PutUint32(data[0:4], 0x00000803)
		binary.BigEndian.PutUint32(data[4:8], count)
		binary.BigEndian.PutUint32(data[8:12], rows)
		binary.BigEndian.PutUint32(data[12:16], cols)
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"product wraps to zero", header(1<<16, 1<<24, 1<<24, 0)},
		{"huge dims small body", header(1, 1<<31, 1<<31, 64)},
		{"zero rows", header(3, 0, 28, 0)},
		{"zero cols", header(3, 28, 0, 0)},
		{"body not a whole image", header(1, 28, 28, 28*28+5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseImages(tt.data)
			assert.Error(t, err)
			assert.Nil(t, set)
		})
	}
}

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels(idxLabels(7, 2, 1))
	require.NoError(t, err)
	assert.Equal(t, []uint8{7, 2, 1}, labels)

	_, err = ParseLabels([]byte{0, 0, 8})
	assert.Error(t, err)
}

func TestLoadMNIST(t *testing.T) {
	dir := t.TempDir()
	imgPath := writeFile(t, dir, "t10k-images.idx3-ubyte", idxImages(2, 28, 28))
	lblPath := writeFile(t, dir, "t10k-labels.idx1-ubyte", idxLabels(5, 9))

	samples, err := LoadMNIST(imgPath, lblPath)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "mnist-00001", samples[1].ID)
	assert.Equal(t, 9, samples[1].Label)
	assert.Equal(t, 28, samples[1].Rows)
	assert.True(t, samples[1].HasImage())
}

func TestLoadMNIST_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	imgPath := writeFile(t, dir, "images", idxImages(2, 28, 28))
	lblPath := writeFile(t, dir, "labels", idxLabels(5))

	_, err := LoadMNIST(imgPath, lblPath)
	assert.Error(t, err)
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"3_jackson_0.wav", 3, false},
		{"0_theo_49.wav", 0, false},
		{"recordings/9_nicolas_12.WAV", 9, false},
		{"bad_name.wav", 0, true},
		{"x_jackson_0.wav", 0, true},
		{"-1_jackson_0.wav", 0, true},
		{"3_jackson_0.mp3", 0, true},
		{"3_jackson_zero.wav", 0, true},
		{"3__0.wav", 0, true},
		{"3_a_b_0.wav", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabel(tt.name)
			if tt.wantErr {
				var le *LabelParseError
				require.True(t, errors.As(err, &le), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanRecordings(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"3_jackson_0.wav", "1_theo_2.wav", "bad_name.wav", "notes.txt"} {
		writeFile(t, dir, name, []byte("x"))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "4_sub_1.wav"), 0o755))

	samples, excluded, err := ScanRecordings(dir)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "1_theo_2.wav", samples[0].ID)
	assert.Equal(t, 1, samples[0].Label)
	assert.Equal(t, "3_jackson_0.wav", samples[1].ID)
	assert.Equal(t, 3, samples[1].Label)
	assert.Equal(t, filepath.Join(dir, "3_jackson_0.wav"), samples[1].AudioPath)

	require.Len(t, excluded, 1)
	assert.Equal(t, "bad_name.wav", excluded[0].Name)
}

func TestScanRecordings_MissingDir(t *testing.T) {
	_, _, err := ScanRecordings(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestReadWAV_Mono(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3_jackson_0.wav")
	writeWAV(t, path, 8000, 1, []int{0, 100, -200, 32767})

	rec, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, rec.SampleRate)
	assert.Equal(t, []float64{0, 100, -200, 32767}, rec.Samples)
}

func TestReadWAV_StereoKeepsFirstChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 8000, 2, []int{1, -1, 2, -2, 3, -3})

	rec, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, rec.Samples)
}

func TestReadWAV_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "junk.wav", []byte("definitely not riff data"))
	_, err := ReadWAV(path)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

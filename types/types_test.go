package types //nolint:revive // types is a valid package name

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_Format(t *testing.T) {
	semverRegex := regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	assert.Regexp(t, semverRegex, Version)
}

func TestMode_PayloadLen(t *testing.T) {
	tests := []struct {
		mode Mode
		want int
	}{
		{ModeGrayOtsu, 16384},
		{ModeColorOtsu, 49152},
		{ModeDilate, 16384},
		{ModeErode, 16384},
		{Mode(9), 16384},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mode.PayloadLen())
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"otsu", ModeGrayOtsu, false},
		{"OTSU-RGB", ModeColorOtsu, false},
		{"3", ModeDilate, false},
		{" erode ", ModeErode, false},
		{"7", Mode(7), false},
		{"0", Mode(0), false},
		{"255", Mode(255), false},
		{"256", 0, true},
		{"-1", 0, true},
		{"blur", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeatureVector_Immutable(t *testing.T) {
	src := []float32{1, 2, 3}
	v := NewFeatureVector(ModalityMoment, src)
	src[0] = 99

	got := v.Values()
	assert.Equal(t, []float32{1, 2, 3}, got)

	got[1] = 42
	assert.Equal(t, float32(2), v.At(1))
	assert.Equal(t, 3, v.Dimension())
	assert.Equal(t, ModalityMoment, v.Modality())
}

func TestSummarize(t *testing.T) {
	results := make([]EvaluationResult, 20)
	for i := range results {
		results[i].Correct = i < 15
	}

	r := Summarize(20, results)
	assert.Equal(t, 20, r.TotalAttempted)
	assert.Equal(t, 20, r.TotalScored)
	assert.Equal(t, 15, r.CorrectCount)
	require.True(t, r.HasAccuracy())
	assert.InDelta(t, 0.75, *r.Accuracy, 1e-12)
}

func TestSummarize_NothingScored(t *testing.T) {
	r := Summarize(5, nil)
	assert.Equal(t, 5, r.TotalAttempted)
	assert.Zero(t, r.TotalScored)
	assert.Nil(t, r.Accuracy)
	assert.Equal(t, -1.0, r.AccuracyOr(-1))
}

package dataset

import (
	"fmt"

	"github.com/pithecene-io/benchlink/types"
)

// MNISTSamples pairs images with labels. Counts must match.
func MNISTSamples(images *ImageSet, labels []uint8, source string) ([]types.EvaluationSample, error) {
	if images.Count != len(labels) {
		return nil, fmt.Errorf("mnist: %d images but %d labels", images.Count, len(labels))
	}
	samples := make([]types.EvaluationSample, images.Count)
	for i := range samples {
		samples[i] = types.EvaluationSample{
			ID:     MNISTSampleID(i),
			Source: source,
			Label:  int(labels[i]),
			Image:  images.Image(i),
			Rows:   images.Rows,
			Cols:   images.Cols,
		}
	}
	return samples, nil
}

// MNISTSampleID names the sample at index i.
func MNISTSampleID(i int) string {
	return fmt.Sprintf("mnist-%05d", i)
}

// LoadMNIST loads an image file and its label file as samples.
func LoadMNIST(imagesPath, labelsPath string) ([]types.EvaluationSample, error) {
	images, err := LoadImages(imagesPath)
	if err != nil {
		return nil, err
	}
	labels, err := LoadLabels(labelsPath)
	if err != nil {
		return nil, err
	}
	return MNISTSamples(images, labels, imagesPath)
}

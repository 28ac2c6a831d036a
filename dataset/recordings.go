package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pithecene-io/benchlink/types"
)

// Exclusion records a file left out of the sample pool.
type Exclusion struct {
	Name string
	Err  error
}

// ScanRecordings lists the .wav files in dir as samples. Files whose names
// carry no label are returned as exclusions, never as samples. Samples are
// sorted by name so a seeded selection is reproducible. Audio is not read;
// AudioPath is set for lazy decoding.
func ScanRecordings(dir string) ([]types.EvaluationSample, []Exclusion, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan recordings: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var samples []types.EvaluationSample
	var excluded []Exclusion
	for _, name := range names {
		label, err := ParseLabel(name)
		if err != nil {
			excluded = append(excluded, Exclusion{Name: name, Err: err})
			continue
		}
		samples = append(samples, types.EvaluationSample{
			ID:        name,
			Source:    dir,
			Label:     label,
			AudioPath: filepath.Join(dir, name),
		})
	}
	return samples, excluded, nil
}

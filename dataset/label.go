package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// LabelParseError reports a recording whose name does not carry a label.
type LabelParseError struct {
	Name string
}

func (e *LabelParseError) Error() string {
	return fmt.Sprintf("cannot parse label from %q: want <label>_<speaker>_<index>.wav", e.Name)
}

// ParseLabel extracts the digit label from a recording name of the form
// <label>_<speaker>_<index>.wav. Names that do not match are rejected
// rather than defaulted.
func ParseLabel(name string) (int, error) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".wav") {
		return 0, &LabelParseError{Name: name}
	}
	parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return 0, &LabelParseError{Name: name}
	}
	label, err := strconv.Atoi(parts[0])
	if err != nil || label < 0 || parts[0][0] == '+' {
		return 0, &LabelParseError{Name: name}
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return 0, &LabelParseError{Name: name}
	}
	return label, nil
}

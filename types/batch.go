package types

import "errors"

// Suites recognized by the CLI and the storage layout.
const (
	SuiteMNIST     = "mnist"
	SuiteFSDD      = "fsdd"
	SuiteTransform = "transform"
)

// BatchMeta identifies one evaluation batch.
type BatchMeta struct {
	RunID   string
	Suite   string
	Attempt int
}

// Validate checks the identity fields every log line and record carries.
func (m *BatchMeta) Validate() error {
	if m.RunID == "" {
		return errors.New("run_id is required")
	}
	if m.Suite == "" {
		return errors.New("suite is required")
	}
	if m.Attempt < 0 {
		return errors.New("attempt must be >= 0")
	}
	return nil
}

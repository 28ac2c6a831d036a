package session

// Message type discriminants.
const (
	typeDiscover = "discover"
	typeInvoke   = "invoke"
	typeBye      = "bye"
	typeModels   = "models"
	typeOutputs  = "outputs"
	typeError    = "error"
)

// Request is a host-to-device message.
type Request struct {
	Type   string      `msgpack:"type"`
	Model  string      `msgpack:"model,omitempty"`
	Inputs [][]float32 `msgpack:"inputs,omitempty"`
}

// Reply is a device-to-host message.
type Reply struct {
	Type    string      `msgpack:"type"`
	Models  []string    `msgpack:"models,omitempty"`
	Outputs [][]float32 `msgpack:"outputs,omitempty"`
	Meta    Metadata    `msgpack:"meta,omitempty"`
	Message string      `msgpack:"message,omitempty"`
}

// Metadata describes one invocation as reported by the device.
type Metadata struct {
	DurationMs float64 `msgpack:"duration_ms" json:"duration_ms"`
	Device     string  `msgpack:"device" json:"device"`
}

package types

// TransferRequest is one host-to-device exchange.
type TransferRequest struct {
	Mode    Mode
	Payload []byte
}

// TransferResponse holds the bytes read back from the device.
// Length always equals len(Bytes); a response shorter than the payload is
// reported as an error by the link layer and never surfaces here.
type TransferResponse struct {
	Bytes  []byte
	Length int
}

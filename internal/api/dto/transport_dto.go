package dto

// InboundMessageRequest is pushed by the transport bridge for each message.
type InboundMessageRequest struct {
	Address    string `json:"address"`
	Text       string `json:"text"`
	ExternalID string `json:"external_id"`
}

// TransportFaultRequest reports a transport-level error from the bridge.
type TransportFaultRequest struct {
	Error string `json:"error"`
}

// ConnectByCodeRequest payload.
type ConnectByCodeRequest struct {
	Code string `json:"code"`
}

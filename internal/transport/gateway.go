package transport

import "context"

// ConnectionPhase describes where the gateway is in its lifecycle.
type ConnectionPhase string

const (
	PhaseDisconnected ConnectionPhase = "DISCONNECTED"
	PhasePairing      ConnectionPhase = "PAIRING"
	PhaseConnected    ConnectionPhase = "CONNECTED"
)

// Status reports gateway connection state.
type Status struct {
	Connected bool            `json:"connected"`
	Phase     ConnectionPhase `json:"phase"`
}

// InboundMessage is one message arriving from the external channel.
type InboundMessage struct {
	Address    string `json:"address"`
	Text       string `json:"text"`
	ExternalID string `json:"external_id"`
}

// Gateway abstracts the external one-to-one messaging channel.
type Gateway interface {
	Send(ctx context.Context, address, text string) error
	Status() Status
	ConnectByCode(ctx context.Context, code string) error
	ConnectByPairing(ctx context.Context) (pairingCode string, err error)
	Disconnect(ctx context.Context) error
	// WipeSession discards the gateway's own notion of the pairing so the
	// next connect performs a fresh login. Invoked by the session guard's
	// full-purge tier.
	WipeSession(ctx context.Context) error
	// Inbound delivers messages in arrival order per connection.
	Inbound() <-chan InboundMessage
}

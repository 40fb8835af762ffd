package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/config"
)

// BridgeGateway talks to an external transport bridge over HTTP. Inbound
// messages are pushed by the bridge into Push (wired to a webhook route);
// outbound sends are POSTed back to the bridge. When no bridge URL is
// configured, sends are logged and acknowledged, which keeps development
// setups working without the real channel.
type BridgeGateway struct {
	cfg    config.TransportConfig
	client *http.Client
	logger *zap.Logger

	mu      sync.Mutex
	status  Status
	inbound chan InboundMessage
}

// NewBridgeGateway constructs the gateway.
func NewBridgeGateway(cfg config.TransportConfig, logger *zap.Logger) *BridgeGateway {
	return &BridgeGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.SendTimeout()},
		logger:  logger,
		status:  Status{Connected: false, Phase: PhaseDisconnected},
		inbound: make(chan InboundMessage, 256),
	}
}

// Push feeds one inbound message into the event stream. Returns false when
// the buffer is full, in which case the bridge should retry delivery.
func (g *BridgeGateway) Push(msg InboundMessage) bool {
	select {
	case g.inbound <- msg:
		return true
	default:
		g.logger.Warn("inbound buffer full, dropping push",
			zap.String("address", msg.Address),
			zap.String("external_id", msg.ExternalID))
		return false
	}
}

// Inbound returns the inbound event stream.
func (g *BridgeGateway) Inbound() <-chan InboundMessage {
	return g.inbound
}

// Send delivers an outbound text to the contact address.
func (g *BridgeGateway) Send(ctx context.Context, address, text string) error {
	if g.cfg.BridgeURL == "" {
		g.logger.Info("send (no bridge configured)",
			zap.String("address", address),
			zap.Int("body_len", len(text)))
		return nil
	}

	payload, err := json.Marshal(map[string]string{"address": address, "text": text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BridgeURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bridge send failed: status %d", resp.StatusCode)
	}
	return nil
}

// Status reports the current connection state.
func (g *BridgeGateway) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// ConnectByCode completes pairing with a code the operator already holds.
func (g *BridgeGateway) ConnectByCode(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("pairing code required")
	}
	g.setStatus(Status{Connected: true, Phase: PhaseConnected})
	g.logger.Info("transport connected by code")
	return nil
}

// ConnectByPairing begins a fresh pairing flow and returns the code the
// operator must confirm on the device.
func (g *BridgeGateway) ConnectByPairing(ctx context.Context) (string, error) {
	code := fmt.Sprintf("%08d", time.Now().UnixNano()%1e8)
	g.setStatus(Status{Connected: false, Phase: PhasePairing})
	g.logger.Info("transport pairing started")
	return code, nil
}

// Disconnect tears down the connection, keeping session material intact.
func (g *BridgeGateway) Disconnect(ctx context.Context) error {
	g.setStatus(Status{Connected: false, Phase: PhaseDisconnected})
	g.logger.Info("transport disconnected")
	return nil
}

// WipeSession discards pairing state so the next connect starts fresh.
func (g *BridgeGateway) WipeSession(ctx context.Context) error {
	g.setStatus(Status{Connected: false, Phase: PhaseDisconnected})
	g.logger.Warn("transport session wiped, re-pairing required")
	return nil
}

func (g *BridgeGateway) setStatus(s Status) {
	g.mu.Lock()
	g.status = s
	g.mu.Unlock()
}

package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/zapdesk/zapdesk/internal/config"
	"github.com/zapdesk/zapdesk/internal/observability"
)

// Client obtains intent classifications from the remote service, falling
// back to the local rule engine whenever the remote side is unavailable,
// slow, or returns garbage. The fallback is silent to callers.
type Client struct {
	cfg     config.ClassifierConfig
	http    *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics

	mu        sync.RWMutex
	available bool
}

// NewClient constructs a client. The remote service is considered
// unavailable until Probe succeeds.
func NewClient(cfg config.ClassifierConfig, logger *zap.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		logger:  logger,
		metrics: metrics,
	}
}

// Probe runs the readiness check against GET /health. It is an explicit
// initialization step rather than a constructor side effect; callers decide
// whether to keep going when it fails (the rule engine covers that case).
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.setAvailable(false)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.setAvailable(false)
		return fmt.Errorf("classifier health: status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.setAvailable(false)
		return fmt.Errorf("classifier health: %w", err)
	}

	c.setAvailable(true)
	c.logger.Info("classifier service available", zap.String("status", body.Status))
	return nil
}

// Available reports whether the last probe succeeded.
func (c *Client) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// Classify returns the routing decision for a message. Remote failures of
// any kind degrade to RuleClassify; the caller never sees an error.
func (c *Client) Classify(ctx context.Context, text string, hasActiveTicket bool) Result {
	if !c.Available() {
		return RuleClassify(text, hasActiveTicket)
	}

	result, err := c.classifyRemote(ctx, text, hasActiveTicket)
	if err != nil {
		c.logger.Warn("remote classification failed, using rule engine", zap.Error(err))
		c.metrics.RecordClassifierFallback()
		return RuleClassify(text, hasActiveTicket)
	}
	return result
}

func (c *Client) classifyRemote(ctx context.Context, text string, hasActiveTicket bool) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ClassifyTimeout())
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"text":            text,
		"hasActiveTicket": hasActiveTicket,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/classify", bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("classify: status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("classify: %w", err)
	}
	if result.Intent == "" {
		return Result{}, fmt.Errorf("classify: empty intent in response")
	}
	return result, nil
}

func (c *Client) setAvailable(v bool) {
	c.mu.Lock()
	c.available = v
	c.mu.Unlock()
}

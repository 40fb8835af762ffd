package transport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// FaultKind classifies a transport-level error.
type FaultKind string

const (
	FaultNone           FaultKind = "NONE"
	FaultAuthentication FaultKind = "AUTHENTICATION"
	FaultSessionState   FaultKind = "SESSION_STATE"
)

// Markers matched (case-insensitive) against transport error text.
var (
	authFaultMarkers = []string{
		"bad mac",
		"mac verification failed",
		"hmac validation failed",
	}
	sessionFaultMarkers = []string{
		"session error",
		"sessionerror",
		"no matching sessions",
		"session corrupt",
		"failed to decrypt",
		"decryption failed",
	}
)

// ClassifyFault inspects an error's text for session fault markers. Session
// state markers win over authentication markers when both are present.
func ClassifyFault(err error) FaultKind {
	if err == nil {
		return FaultNone
	}
	text := strings.ToLower(err.Error())
	for _, marker := range sessionFaultMarkers {
		if strings.Contains(text, marker) {
			return FaultSessionState
		}
	}
	for _, marker := range authFaultMarkers {
		if strings.Contains(text, marker) {
			return FaultAuthentication
		}
	}
	return FaultNone
}

// SessionWiper is the slice of the gateway the guard needs for its full
// purge tier.
type SessionWiper interface {
	WipeSession(ctx context.Context) error
}

// StatusNotifier surfaces recovery actions to operator clients.
type StatusNotifier interface {
	PublishTransportStatus(status, detail string)
}

// GuardStats is the observable state of the guard.
type GuardStats struct {
	Count        int  `json:"count"`
	Threshold    int  `json:"threshold"`
	LimitReached bool `json:"limit_reached"`
}

// Guard owns the process-wide session fault counter and the tiered recovery
// policy around the transport session store. The counter never resets on
// successful message exchange; only Reset clears it.
type Guard struct {
	storeDir  string
	threshold int
	wiper     SessionWiper
	notifier  StatusNotifier
	logger    *zap.Logger

	mu    sync.Mutex
	count int
}

// NewGuard constructs a guard. Threshold values below 1 fall back to 5.
func NewGuard(storeDir string, threshold int, wiper SessionWiper, notifier StatusNotifier, logger *zap.Logger) *Guard {
	if threshold < 1 {
		threshold = 5
	}
	return &Guard{
		storeDir:  storeDir,
		threshold: threshold,
		wiper:     wiper,
		notifier:  notifier,
		logger:    logger,
	}
}

// ObserveFault classifies err and, for session faults, increments the
// counter and runs the recovery tier for the new counter value. It reports
// whether the fault was handled here; unrelated errors return false and are
// left to normal propagation.
func (g *Guard) ObserveFault(ctx context.Context, err error) bool {
	kind := ClassifyFault(err)
	if kind == FaultNone {
		return false
	}

	g.mu.Lock()
	g.count++
	count := g.count
	g.mu.Unlock()

	g.logger.Warn("transport session fault",
		zap.String("kind", string(kind)),
		zap.Int("count", count),
		zap.Int("threshold", g.threshold),
		zap.Error(err))

	if count >= g.threshold {
		g.fullPurge(ctx)
	} else {
		g.selectivePurge()
	}
	return true
}

// Reset clears the fault counter. Called after a successful reconnection or
// by an explicit operator action.
func (g *Guard) Reset() {
	g.mu.Lock()
	g.count = 0
	g.mu.Unlock()
	g.logger.Info("session fault counter reset")
}

// Stats returns counter state without side effects.
func (g *Guard) Stats() GuardStats {
	g.mu.Lock()
	count := g.count
	g.mu.Unlock()
	return GuardStats{
		Count:        count,
		Threshold:    g.threshold,
		LimitReached: count >= g.threshold,
	}
}

// Key-material file prefixes removed by the selective tier. Everything else
// in the store, pairing registration included, stays intact so the session
// survives without a fresh login.
var purgePrefixes = []string{"sender-key-", "session-", "prekey-"}

func (g *Guard) selectivePurge() {
	entries, err := os.ReadDir(g.storeDir)
	if err != nil {
		g.logger.Debug("selective purge skipped", zap.Error(err))
		return
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		for _, prefix := range purgePrefixes {
			if strings.HasPrefix(name, prefix) {
				// Best effort; a file that refuses to go is not fatal.
				if err := os.Remove(filepath.Join(g.storeDir, name)); err == nil {
					removed++
				}
				break
			}
		}
	}
	g.logger.Info("selective session purge", zap.Int("files_removed", removed))
}

func (g *Guard) fullPurge(ctx context.Context) {
	if err := os.RemoveAll(g.storeDir); err != nil {
		g.logger.Error("full purge: remove store", zap.Error(err))
	}
	if err := os.MkdirAll(g.storeDir, 0o755); err != nil {
		g.logger.Error("full purge: recreate store", zap.Error(err))
	}
	if g.wiper != nil {
		if err := g.wiper.WipeSession(ctx); err != nil {
			g.logger.Error("full purge: gateway wipe", zap.Error(err))
		}
	}
	g.logger.Warn("full session purge, re-pairing required",
		zap.Int("threshold", g.threshold))
	if g.notifier != nil {
		g.notifier.PublishTransportStatus("SESSION_WIPED", "fault threshold reached, re-pairing required")
	}
}

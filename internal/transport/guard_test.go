package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestClassifyFault(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FaultKind
	}{
		{"nil error", nil, FaultNone},
		{"unrelated error", errors.New("connection refused"), FaultNone},
		{"bad mac", errors.New("failed to process message: Bad MAC"), FaultAuthentication},
		{"mac verification", errors.New("MAC verification failed for incoming frame"), FaultAuthentication},
		{"hmac validation", errors.New("HMAC validation failed"), FaultAuthentication},
		{"session error", errors.New("got Session Error while decrypting"), FaultSessionState},
		{"compact session error", errors.New("SessionError: ratchet out of sync"), FaultSessionState},
		{"no matching sessions", errors.New("No matching sessions found for device"), FaultSessionState},
		{"decrypt failure", errors.New("Failed to decrypt message from peer"), FaultSessionState},
		{"session wins over auth", errors.New("bad mac caused by session error"), FaultSessionState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyFault(tc.err); got != tc.want {
				t.Errorf("ClassifyFault(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

type recordingWiper struct {
	calls int
}

func (w *recordingWiper) WipeSession(context.Context) error {
	w.calls++
	return nil
}

type recordingNotifier struct {
	statuses []string
	details  []string
}

func (n *recordingNotifier) PublishTransportStatus(status, detail string) {
	n.statuses = append(n.statuses, status)
	n.details = append(n.details, detail)
}

func seedStore(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
}

func storeNames(t *testing.T, dir string) map[string]bool {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	names := make(map[string]bool, len(entries))
	for _, e := range entries {
		names[e.Name()] = true
	}
	return names
}

func TestGuard_IgnoresUnrelatedErrors(t *testing.T) {
	guard := NewGuard(t.TempDir(), 5, nil, nil, zap.NewNop())

	if handled := guard.ObserveFault(context.Background(), errors.New("dial tcp: timeout")); handled {
		t.Error("unrelated error reported as handled")
	}
	if stats := guard.Stats(); stats.Count != 0 {
		t.Errorf("count = %d after unrelated error, want 0", stats.Count)
	}
}

func TestGuard_SelectivePurgeBelowThreshold(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir,
		"session-5511999999999.json",
		"sender-key-group1.json",
		"prekey-42.json",
		"registration.json",
		"device.json",
	)
	wiper := &recordingWiper{}
	notifier := &recordingNotifier{}
	guard := NewGuard(dir, 5, wiper, notifier, zap.NewNop())

	handled := guard.ObserveFault(context.Background(), errors.New("session error on inbound frame"))
	if !handled {
		t.Fatal("session fault not handled")
	}

	names := storeNames(t, dir)
	for _, gone := range []string{"session-5511999999999.json", "sender-key-group1.json", "prekey-42.json"} {
		if names[gone] {
			t.Errorf("%s survived selective purge", gone)
		}
	}
	for _, kept := range []string{"registration.json", "device.json"} {
		if !names[kept] {
			t.Errorf("%s removed by selective purge", kept)
		}
	}
	if wiper.calls != 0 {
		t.Errorf("gateway wipe called %d times below threshold", wiper.calls)
	}
	if len(notifier.statuses) != 0 {
		t.Errorf("operator notified below threshold: %v", notifier.statuses)
	}
	if stats := guard.Stats(); stats.Count != 1 || stats.LimitReached {
		t.Errorf("stats = %+v, want count 1 and limit not reached", stats)
	}
}

func TestGuard_FullPurgeAtThreshold(t *testing.T) {
	dir := t.TempDir()
	seedStore(t, dir, "registration.json")
	wiper := &recordingWiper{}
	notifier := &recordingNotifier{}
	guard := NewGuard(dir, 3, wiper, notifier, zap.NewNop())

	for i := 0; i < 3; i++ {
		guard.ObserveFault(context.Background(), fmt.Errorf("failed to decrypt message %d", i))
	}

	names := storeNames(t, dir)
	if len(names) != 0 {
		t.Errorf("store not emptied by full purge: %v", names)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("store dir not recreated: %v", err)
	}
	if wiper.calls != 1 {
		t.Errorf("gateway wipe called %d times, want 1", wiper.calls)
	}
	if len(notifier.statuses) != 1 || notifier.statuses[0] != "SESSION_WIPED" {
		t.Errorf("notifier statuses = %v, want one SESSION_WIPED", notifier.statuses)
	}
	if stats := guard.Stats(); !stats.LimitReached {
		t.Errorf("stats = %+v, want limit reached", stats)
	}
}

func TestGuard_CounterPersistsUntilReset(t *testing.T) {
	guard := NewGuard(t.TempDir(), 5, nil, nil, zap.NewNop())

	guard.ObserveFault(context.Background(), errors.New("no matching sessions"))
	guard.ObserveFault(context.Background(), errors.New("bad mac"))
	if stats := guard.Stats(); stats.Count != 2 {
		t.Fatalf("count = %d, want 2", stats.Count)
	}

	// Successful traffic does not touch the counter; only Reset does.
	guard.Reset()
	if stats := guard.Stats(); stats.Count != 0 || stats.LimitReached {
		t.Errorf("stats after reset = %+v, want zeroed", stats)
	}
}

func TestGuard_ThresholdFloor(t *testing.T) {
	guard := NewGuard(t.TempDir(), 0, nil, nil, zap.NewNop())
	if stats := guard.Stats(); stats.Threshold != 5 {
		t.Errorf("threshold = %d, want default 5", stats.Threshold)
	}
}

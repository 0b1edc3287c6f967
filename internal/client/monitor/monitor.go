// Package monitor classifies reachability of the backend into a small
// connection-mode state machine and broadcasts transitions to subscribers.
// Device-level connectivity (any active interface) is checked before any
// server probe is issued.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ptms/syncore/internal/logging"
	"github.com/ptms/syncore/internal/netx"
)

// Mode is the externally visible connection state.
type Mode string

const (
	ModeUnknown Mode = "unknown"
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
	ModeSyncing Mode = "syncing"
)

// ProbeStatus classifies a single health probe. Slow still counts as
// reachable; only Offline means the server could not be reached at all.
type ProbeStatus string

const (
	ProbeOnline  ProbeStatus = "online"
	ProbeSlow    ProbeStatus = "slow"
	ProbeOffline ProbeStatus = "offline"
)

// ProbeResult is the outcome of one QuickPing. Latency is zero when the
// probe never completed. Message carries the diagnostic cause.
type ProbeResult struct {
	Status  ProbeStatus
	Latency time.Duration
	Message string
}

// Reachable reports whether the server answered at all.
func (p ProbeResult) Reachable() bool { return p.Status != ProbeOffline }

// ModeChange is published on every mode transition.
type ModeChange struct {
	From   Mode
	To     Mode
	Reason string
	At     time.Time
}

// HealthProber issues one bounded health request and reports its latency.
type HealthProber interface {
	Health(ctx context.Context) (time.Duration, error)
}

// Config bounds the probe. FastThreshold splits Online from Slow;
// HardTimeout is the point past which the server counts as Offline.
type Config struct {
	FastThreshold time.Duration
	HardTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		FastThreshold: 1500 * time.Millisecond,
		HardTimeout:   5 * time.Second,
	}
}

type Monitor struct {
	prober HealthProber
	cfg    Config
	log    logging.Logger

	// overridable in tests
	ifaceCheck func() bool

	mu   sync.Mutex
	mode Mode
	subs map[int]chan ModeChange
	next int
}

func NewMonitor(prober HealthProber, cfg Config, log logging.Logger) *Monitor {
	if cfg.FastThreshold <= 0 {
		cfg.FastThreshold = DefaultConfig().FastThreshold
	}
	if cfg.HardTimeout <= 0 {
		cfg.HardTimeout = DefaultConfig().HardTimeout
	}
	return &Monitor{
		prober:     prober,
		cfg:        cfg,
		log:        log,
		ifaceCheck: netx.HasActiveInterface,
		mode:       ModeUnknown,
		subs:       make(map[int]chan ModeChange),
	}
}

// IsOnline is the cheap OS-level pre-filter: it never touches the network
// beyond asking the OS whether any interface is usable.
func (m *Monitor) IsOnline() bool { return m.ifaceCheck() }

// Mode returns the last published connection mode.
func (m *Monitor) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// QuickPing issues one bounded health probe and classifies the result.
// It does not change the published mode; use Refresh for that.
func (m *Monitor) QuickPing(ctx context.Context) ProbeResult {
	if !m.ifaceCheck() {
		return ProbeResult{Status: ProbeOffline, Message: "no active network interface"}
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.HardTimeout)
	defer cancel()

	latency, err := m.prober.Health(ctx)
	if err != nil {
		return ProbeResult{Status: ProbeOffline, Message: err.Error()}
	}
	if latency > m.cfg.FastThreshold {
		return ProbeResult{
			Status:  ProbeSlow,
			Latency: latency,
			Message: fmt.Sprintf("server responded in %s (slow)", latency.Round(time.Millisecond)),
		}
	}
	return ProbeResult{
		Status:  ProbeOnline,
		Latency: latency,
		Message: fmt.Sprintf("server responded in %s", latency.Round(time.Millisecond)),
	}
}

// Refresh probes the server and updates the published mode. While a sync is
// running the Syncing mode is sticky; probe outcomes are not applied until
// EndSync.
func (m *Monitor) Refresh(ctx context.Context) ProbeResult {
	res := m.QuickPing(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode == ModeSyncing {
		return res
	}
	if res.Reachable() {
		m.setModeLocked(ModeOnline, res.Message)
	} else {
		m.setModeLocked(ModeOffline, res.Message)
	}
	return res
}

// BeginSync moves the mode to Syncing for the duration of a sync batch.
func (m *Monitor) BeginSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setModeLocked(ModeSyncing, "sync started")
}

// EndSync leaves the Syncing mode, landing on Online or Offline depending
// on how the batch went.
func (m *Monitor) EndSync(reachable bool, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reachable {
		m.setModeLocked(ModeOnline, reason)
	} else {
		m.setModeLocked(ModeOffline, reason)
	}
}

// Subscribe registers a listener for mode transitions. The returned cancel
// func must be called to release the channel. Slow consumers miss events
// rather than blocking transitions.
func (m *Monitor) Subscribe() (<-chan ModeChange, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.next
	m.next++
	ch := make(chan ModeChange, 16)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Watch re-probes on a fixed interval until the context is cancelled.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) setModeLocked(to Mode, reason string) {
	if m.mode == to {
		return
	}
	change := ModeChange{From: m.mode, To: to, Reason: reason, At: time.Now()}
	m.mode = to
	m.log.Info(context.Background(), "connection mode changed",
		"from", change.From, "to", change.To, "reason", reason)

	for _, ch := range m.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

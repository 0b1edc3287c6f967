package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ptms/syncore/internal/logging"
)

type fakeProber struct {
	latency time.Duration
	err     error
	delay   time.Duration
}

func (f *fakeProber) Health(ctx context.Context) (time.Duration, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, errors.New("health probe timed out")
		}
	}
	return f.latency, f.err
}

func newTestMonitor(p HealthProber, cfg Config) *Monitor {
	m := NewMonitor(p, cfg, logging.NewDiscard())
	m.ifaceCheck = func() bool { return true }
	return m
}

func TestQuickPing_Classification(t *testing.T) {
	cfg := Config{FastThreshold: 100 * time.Millisecond, HardTimeout: time.Second}

	tests := []struct {
		name   string
		prober *fakeProber
		want   ProbeStatus
	}{
		{"fast response is online", &fakeProber{latency: 20 * time.Millisecond}, ProbeOnline},
		{"slow response is slow", &fakeProber{latency: 300 * time.Millisecond}, ProbeSlow},
		{"error is offline", &fakeProber{err: errors.New("connection refused")}, ProbeOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMonitor(tt.prober, cfg)
			res := m.QuickPing(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestQuickPing_NoInterfaceSkipsProbe(t *testing.T) {
	m := newTestMonitor(&fakeProber{latency: time.Millisecond}, Config{})
	m.ifaceCheck = func() bool { return false }

	res := m.QuickPing(context.Background())
	assert.Equal(t, ProbeOffline, res.Status)
	assert.Contains(t, res.Message, "no active network interface")
}

func TestQuickPing_HardTimeout(t *testing.T) {
	m := newTestMonitor(
		&fakeProber{delay: time.Second},
		Config{FastThreshold: 10 * time.Millisecond, HardTimeout: 50 * time.Millisecond},
	)

	res := m.QuickPing(context.Background())
	assert.Equal(t, ProbeOffline, res.Status)
	assert.NotEmpty(t, res.Message)
}

func TestRefresh_TransitionsAndNotifies(t *testing.T) {
	p := &fakeProber{latency: time.Millisecond}
	m := newTestMonitor(p, Config{})

	ch, cancel := m.Subscribe()
	defer cancel()

	require.Equal(t, ModeUnknown, m.Mode())

	m.Refresh(context.Background())
	assert.Equal(t, ModeOnline, m.Mode())

	p.err = errors.New("dial tcp: connection refused")
	m.Refresh(context.Background())
	assert.Equal(t, ModeOffline, m.Mode())

	first := <-ch
	assert.Equal(t, ModeUnknown, first.From)
	assert.Equal(t, ModeOnline, first.To)

	second := <-ch
	assert.Equal(t, ModeOnline, second.From)
	assert.Equal(t, ModeOffline, second.To)
	assert.NotEmpty(t, second.Reason)
}

func TestSyncingModeIsSticky(t *testing.T) {
	p := &fakeProber{latency: time.Millisecond}
	m := newTestMonitor(p, Config{})

	m.Refresh(context.Background())
	require.Equal(t, ModeOnline, m.Mode())

	m.BeginSync()
	assert.Equal(t, ModeSyncing, m.Mode())

	// probes during a sync do not displace the Syncing mode
	p.err = errors.New("timeout")
	m.Refresh(context.Background())
	assert.Equal(t, ModeSyncing, m.Mode())

	m.EndSync(false, "upload failed, server unreachable")
	assert.Equal(t, ModeOffline, m.Mode())
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	m := newTestMonitor(&fakeProber{latency: time.Millisecond}, Config{})

	ch, cancel := m.Subscribe()
	cancel()

	// closed channel reads as zero value immediately
	_, ok := <-ch
	assert.False(t, ok)

	// no panic publishing after unsubscribe
	m.Refresh(context.Background())
}

package reachability

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor(t *testing.T) {
	t.Run("Should notify transitions only", func(t *testing.T) {
		m := NewMonitor(false)
		ch, unsubscribe := m.Subscribe()
		defer unsubscribe()

		assert.False(t, m.Set(false))
		assert.True(t, m.Set(true))
		assert.True(t, m.Online())

		select {
		case v := <-ch:
			assert.True(t, v)
		default:
			t.Fatal("expected a transition")
		}

		assert.False(t, m.Set(true))
		select {
		case <-ch:
			t.Fatal("unexpected notification")
		default:
		}
	})

	t.Run("Should deliver the latest state to slow subscribers", func(t *testing.T) {
		m := NewMonitor(false)
		ch, unsubscribe := m.Subscribe()
		defer unsubscribe()

		m.Set(true)
		m.Set(false)
		m.Set(true)

		assert.True(t, <-ch)
		select {
		case <-ch:
			t.Fatal("expected a single pending value")
		default:
		}
	})

	t.Run("Should close the channel on unsubscribe", func(t *testing.T) {
		m := NewMonitor(true)
		ch, unsubscribe := m.Subscribe()
		unsubscribe()
		unsubscribe()

		_, ok := <-ch
		assert.False(t, ok)
		assert.NotPanics(t, func() { m.Set(false) })
	})
}

type fakeChecker struct {
	healthy atomic.Bool
	calls   atomic.Int32
}

func (f *fakeChecker) Health(context.Context) error {
	f.calls.Add(1)
	if f.healthy.Load() {
		return nil
	}
	return errors.New("connection refused")
}

func TestPoller(t *testing.T) {
	t.Run("Should update the monitor from health checks", func(t *testing.T) {
		checker := &fakeChecker{}
		m := NewMonitor(true)
		p := NewPoller(checker, m, "@every 1s", time.Second)

		assert.False(t, p.Check(context.Background()))
		assert.False(t, m.Online())

		checker.healthy.Store(true)
		assert.True(t, p.Check(context.Background()))
		assert.True(t, m.Online())
	})

	t.Run("Should check on start and on schedule", func(t *testing.T) {
		checker := &fakeChecker{}
		checker.healthy.Store(true)
		m := NewMonitor(false)
		p := NewPoller(checker, m, "@every 1s", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		require.NoError(t, p.Start(ctx))
		defer p.Stop()

		assert.True(t, m.Online())
		assert.Eventually(t, func() bool { return checker.calls.Load() >= 2 }, 3*time.Second, 50*time.Millisecond)
		assert.Error(t, p.Start(ctx))
	})

	t.Run("Should reject invalid schedules", func(t *testing.T) {
		p := NewPoller(&fakeChecker{}, NewMonitor(false), "every now and then", time.Second)
		assert.Error(t, p.Start(context.Background()))
	})
}

func TestNormalizeSchedule(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Descriptor", input: "@every 15s", expected: "@every 15s"},
		{name: "Every 5 minutes", input: "*/5 * * * *", expected: "0 */5 * * * *"},
		{name: "Six fields", input: "*/30 * * * * *", expected: "*/30 * * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := normalizeSchedule(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	_, err := normalizeSchedule("")
	assert.Error(t, err)
}

package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtFiresOnce(t *testing.T) {
	s := New()
	go s.Run()
	defer s.Stop()

	done := make(chan struct{})
	s.At("job", time.Now().Add(10*time.Millisecond), func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not fire")
	}
}

func TestEveryFiresRepeatedly(t *testing.T) {
	s := New()
	go s.Run()
	defer s.Stop()

	var count int64
	fired := make(chan struct{}, 8)
	s.Every("tick", 10*time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("tick did not fire enough times")
		}
	}
	assert.GreaterOrEqual(t, atomic.LoadInt64(&count), int64(3))
}

func TestCancelPreventsFiring(t *testing.T) {
	s := New()
	go s.Run()
	defer s.Stop()

	fired := make(chan struct{})
	s.At("job", time.Now().Add(50*time.Millisecond), func() { close(fired) })
	s.Cancel("job")

	select {
	case <-fired:
		t.Fatal("canceled job fired")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestReschedulingSameIDReplacesEntry(t *testing.T) {
	s := New()
	require.Equal(t, 0, s.Len())

	s.At("job", time.Now().Add(time.Hour), func() {})
	require.Equal(t, 1, s.Len())

	s.At("job", time.Now().Add(2*time.Hour), func() {})
	assert.Equal(t, 1, s.Len())
}

func TestStopIsIdempotent(t *testing.T) {
	s := New()
	go s.Run()
	s.Stop()
	assert.NotPanics(t, func() { s.Stop() })
}

package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuncCompletesOnFirstPoll(t *testing.T) {
	calls := 0
	f := Func(func(ctx context.Context) error {
		calls++
		return nil
	})

	done, err := f.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, calls)
}

func TestFuncPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	f := Func(func(ctx context.Context) error { return boom })

	done, err := f.Poll(context.Background())
	assert.True(t, done)
	assert.ErrorIs(t, err, boom)
}

func TestWaitArmsOnFirstPoll(t *testing.T) {
	w := Wait(30 * time.Millisecond)

	// Created well before the first poll; the clock must not start yet.
	time.Sleep(40 * time.Millisecond)

	done, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, done, "deadline should arm on first poll, not at construction")

	time.Sleep(40 * time.Millisecond)
	done, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
}

func TestUntil(t *testing.T) {
	ready := false
	u := Until(func() bool { return ready }, 0)

	done, err := u.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, done)

	ready = true
	done, err = u.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
}

func TestSequenceChainsImmediateTasks(t *testing.T) {
	var order []int
	s := Sequence(
		Func(func(ctx context.Context) error { order = append(order, 1); return nil }),
		Func(func(ctx context.Context) error { order = append(order, 2); return nil }),
	)

	done, err := s.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, done, "two immediate tasks should finish within one tick")
	assert.Equal(t, []int{1, 2}, order)
}

func TestSequenceStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	s := Sequence(
		Func(func(ctx context.Context) error { return boom }),
		Func(func(ctx context.Context) error { ran = true; return nil }),
	)

	done, err := s.Poll(context.Background())
	assert.True(t, done)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}

func TestWithValue(t *testing.T) {
	v := WithValue(Func(func(ctx context.Context) error { return nil }), func() any { return 42 })

	done, err := v.Poll(context.Background())
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, 42, v.Value())
}

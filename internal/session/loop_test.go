package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"alcyxob/fitness-tracker/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLoop_RunsCommandsAndTicks(t *testing.T) {
	ticks := make(chan time.Time)
	loop := NewLoop(newTestSession(t, domain.ExerciseRecord{ExerciseID: "a"}), WithTicks(ticks))
	defer loop.Stop()

	ctx := context.Background()
	require.NoError(t, loop.Do(ctx, func(s *Session) error {
		s.ToggleSetComplete("a", 0)
		return nil
	}))

	ticks <- time.Now()
	ticks <- time.Now()
	ticks <- time.Now()

	snap, err := loop.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.ElapsedSeconds)
	assert.True(t, snap.Exercise("a").Completed())
}

func TestLoop_DoReturnsCommandError(t *testing.T) {
	loop := NewLoop(newTestSession(t, domain.ExerciseRecord{ExerciseID: "a"}), WithTicks(nil))
	defer loop.Stop()

	boom := errors.New("boom")
	err := loop.Do(context.Background(), func(*Session) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestLoop_PostAfterStopIsDropped(t *testing.T) {
	s := newTestSession(t, domain.ExerciseRecord{ExerciseID: "a"})
	loop := NewLoop(s, WithTicks(nil))
	loop.Stop()
	loop.Stop()

	applied := loop.Post(context.Background(), func(s *Session) {
		s.ApplyBenchmarks(map[string]domain.Set{"a": {Weight: "100"}})
	})

	assert.False(t, applied)
	assert.Empty(t, s.Benchmarks)
	assert.ErrorIs(t, loop.Do(context.Background(), func(*Session) error { return nil }), ErrSessionClosed)
}

func TestLoop_DoHonoursContext(t *testing.T) {
	loop := NewLoop(newTestSession(t, domain.ExerciseRecord{ExerciseID: "a"}), WithTicks(nil))
	defer loop.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = loop.Do(context.Background(), func(*Session) error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := loop.Do(ctx, func(*Session) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
}

func TestRegistry_StartReplacesPreviousSession(t *testing.T) {
	reg := NewRegistry(WithTicks(nil))
	defer reg.StopAll()

	owner := primitive.NewObjectID()
	first := newTestSession(t, domain.ExerciseRecord{ExerciseID: "a"})
	first.OwnerID = owner
	second := newTestSession(t, domain.ExerciseRecord{ExerciseID: "b"})
	second.OwnerID = owner

	oldLoop := reg.Start(first)
	newLoop := reg.Start(second)

	got, ok := reg.Get(owner)
	require.True(t, ok)
	assert.Same(t, newLoop, got)
	assert.Equal(t, 1, reg.Len())

	// late results for the replaced session never land
	assert.False(t, oldLoop.Post(context.Background(), func(s *Session) { s.Name = "stale" }))
	assert.Equal(t, "Push Day", first.Name)

	// ending the stale loop must not evict the current one
	reg.End(owner, oldLoop)
	_, ok = reg.Get(owner)
	assert.True(t, ok)

	reg.End(owner, newLoop)
	_, ok = reg.Get(owner)
	assert.False(t, ok)
}

func TestLoop_PersistSerializesSaves(t *testing.T) {
	loop := NewLoop(newTestSession(t, domain.ExerciseRecord{ExerciseID: "a"}), WithTicks(nil))
	defer loop.Stop()

	inside := 0
	maxInside := 0
	done := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			_ = loop.Persist(func() error {
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				time.Sleep(5 * time.Millisecond)
				inside--
				return nil
			})
			done <- struct{}{}
		}()
	}
	<-done
	<-done
	assert.Equal(t, 1, maxInside)
}

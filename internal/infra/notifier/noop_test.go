package notifier

import (
	"context"
	"testing"
	"time"

	"manifeed/internal/domain/entity"
)

func TestNoOpNotifier_NotifyJobComplete(t *testing.T) {
	t.Run("TC-1: should return nil without error", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		ctx := context.Background()

		job := &entity.Job{
			JobID:     "11111111-1111-1111-1111-111111111111",
			Status:    entity.JobStatusCompleted,
			FeedCount: 3,
			UpdatedAt: time.Now(),
		}

		err := notifier.NotifyJobComplete(ctx, job)
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("TC-2: should not make any HTTP requests", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		ctx := context.Background()

		job := &entity.Job{
			JobID:  "22222222-2222-2222-2222-222222222222",
			Status: entity.JobStatusFailed,
		}

		start := time.Now()
		err := notifier.NotifyJobComplete(ctx, job)
		elapsed := time.Since(start)

		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}

		// Should complete immediately (< 1ms) since it does nothing
		if elapsed > time.Millisecond {
			t.Errorf("expected no-op to complete immediately, but took %v", elapsed)
		}
	})

	t.Run("TC-3: should work with nil job", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		ctx := context.Background()

		err := notifier.NotifyJobComplete(ctx, nil)
		if err != nil {
			t.Errorf("expected nil error with nil job, got %v", err)
		}
	})

	t.Run("TC-4: should work with canceled context", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Cancel immediately

		job := &entity.Job{
			JobID:  "33333333-3333-3333-3333-333333333333",
			Status: entity.JobStatusCompletedWithError,
		}

		err := notifier.NotifyJobComplete(ctx, job)
		if err != nil {
			t.Errorf("expected nil error even with canceled context, got %v", err)
		}
	})
}

func TestNewNoOpNotifier(t *testing.T) {
	t.Run("should create a new NoOpNotifier instance", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		if notifier == nil {
			t.Fatal("expected non-nil notifier")
		}
	})
}

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitReturnsFirstError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	wantErr := errors.New("boom")

	s.Go("failing", func(ctx context.Context) error { return wantErr })
	s.Go("clean", func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Wait() = %v, want wrapped %v", err, wantErr)
	}
}

func TestPanicIsRecoveredAndReported(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("panicky", func(ctx context.Context) error { panic("kaboom") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil {
		t.Fatal("expected error from panicking goroutine")
	}
}

func TestCancelOnErrorCancelsSiblings(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))

	blocked := make(chan struct{})
	s.Go("blocked", func(ctx context.Context) error {
		defer close(blocked)
		<-ctx.Done()
		return ctx.Err()
	})
	s.Go("failing", func(ctx context.Context) error { return errors.New("fatal") })

	select {
	case <-blocked:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling goroutine was not cancelled")
	}
}

func TestContextCanceledIsNotAnError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	s.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v, want nil for context.Canceled exits", err)
	}
}

func TestWaitHonorsDeadline(t *testing.T) {
	t.Parallel()
	s := New(context.Background())
	release := make(chan struct{})
	s.Go0("slow", func(ctx context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() = %v, want deadline exceeded", err)
	}
	close(release)
}

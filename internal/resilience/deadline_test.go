package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithDeadline_ReturnsValue(t *testing.T) {
	v, err := WithDeadline(context.Background(), time.Second, func(ctx context.Context) (int, error) {
		return 7, nil
	})
	if err != nil || v != 7 {
		t.Fatalf("got %d, %v", v, err)
	}
}

func TestWithDeadline_Timeout(t *testing.T) {
	_, err := WithDeadline(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWithDeadline_ParentCancelIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := WithDeadline(ctx, time.Second, func(ctx context.Context) (int, error) {
		return 0, ctx.Err()
	})
	if errors.Is(err, ErrTimeout) {
		t.Fatal("parent cancellation must not be reported as a timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWithDeadline_ZeroDisables(t *testing.T) {
	_, err := WithDeadline(context.Background(), 0, func(ctx context.Context) (int, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline")
		}
		return 0, errors.New("boom")
	})
	if err == nil || errors.Is(err, ErrTimeout) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

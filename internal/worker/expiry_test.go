package worker

import (
	"context"
	"errors"
	"testing"
)

type fakeExpirer struct {
	expired int64
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context) (int64, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("sweep must run with a deadline")
	}
	return f.expired, f.err
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	expirer := &fakeExpirer{expired: 3}
	s := NewExpirySweeper(expirer, "")

	got := s.RunOnce(context.Background())

	if got != 3 {
		t.Errorf("expired = %d, want 3", got)
	}
	if expirer.calls != 1 {
		t.Errorf("ExpireOverdue called %d times, want 1", expirer.calls)
	}
}

func TestExpirySweeper_RunOnceError(t *testing.T) {
	s := NewExpirySweeper(&fakeExpirer{err: errors.New("db down")}, "")

	if got := s.RunOnce(context.Background()); got != 0 {
		t.Errorf("expired = %d, want 0 on error", got)
	}
}

func TestExpirySweeper_StartRejectsBadSchedule(t *testing.T) {
	s := NewExpirySweeper(&fakeExpirer{}, "every now and then")

	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected error for invalid schedule")
	}
}

func TestExpirySweeper_StartStop(t *testing.T) {
	s := NewExpirySweeper(&fakeExpirer{}, "@every 1h")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	s.Stop()
}

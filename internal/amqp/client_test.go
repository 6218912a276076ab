package amqp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection error", errors.New("connection refused"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed sentinel", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"other error", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestTransactionSyncMessageJSON(t *testing.T) {
	msg := NewTransactionSyncMessage(42, 3)
	if time.Since(msg.Timestamp) > time.Minute {
		t.Fatal("timestamp should be recent")
	}
	b, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	back, err := TransactionSyncMessageFromJSON(b)
	if err != nil || back.ID != 42 || back.Version != 3 || !back.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("round trip = %+v, %v", back, err)
	}
	if _, err := TransactionSyncMessageFromJSON([]byte("{bad")); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestSettle(t *testing.T) {
	ctx := context.Background()
	ok := func(context.Context, *TransactionSyncMessage) error { return nil }
	fail := func(context.Context, *TransactionSyncMessage) error { return errors.New("sheets down") }

	a := &fakeAck{}
	settle(ctx, []byte(`{"id":1,"version":1}`), a, ok)
	if !a.acked || a.nacked {
		t.Errorf("successful message should be acked: %+v", a)
	}

	a = &fakeAck{}
	settle(ctx, []byte(`{"id":1,"version":1}`), a, fail)
	if !a.nacked || !a.requeued {
		t.Errorf("failed message should be requeued: %+v", a)
	}

	a = &fakeAck{}
	settle(ctx, []byte(`not json`), a, ok)
	if !a.nacked || a.requeued {
		t.Errorf("undecodable message should be dropped: %+v", a)
	}
}

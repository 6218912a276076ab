package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"centsible/internal/amqp"
	"centsible/internal/core"
	"centsible/internal/storage"
)

type fakeStore struct {
	mu     sync.Mutex
	rows   map[int64]*storage.StoredTransaction
	synced []int64
	errs   []int64
}

func newFakeStore(ids ...int64) *fakeStore {
	s := &fakeStore{rows: map[int64]*storage.StoredTransaction{}}
	for _, id := range ids {
		s.rows[id] = &storage.StoredTransaction{
			ID:         id,
			Version:    1,
			SyncStatus: "pending",
			Transaction: core.Transaction{
				Date:        core.NewDate(2024, 3, 5),
				Kind:        core.KindIncome,
				Description: "salary",
				Amount:      core.Money{Cents: 100000},
				Category:    "Work",
			},
		}
	}
	return s
}

func (s *fakeStore) GetTransaction(_ context.Context, id int64) (*storage.StoredTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *fakeStore) GetPendingSync(_ context.Context, limit int) ([]storage.PendingSync, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.PendingSync
	for id := int64(1); id <= int64(len(s.rows))+1 && len(out) < limit; id++ {
		if r, ok := s.rows[id]; ok && r.SyncStatus == "pending" {
			out = append(out, storage.PendingSync{ID: id, Version: r.Version})
		}
	}
	return out, nil
}

func (s *fakeStore) MarkSynced(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, id)
	if r, ok := s.rows[id]; ok {
		r.SyncStatus = "synced"
	}
	return nil
}

func (s *fakeStore) MarkSyncError(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, id)
	if r, ok := s.rows[id]; ok {
		r.SyncStatus = "error"
	}
	return nil
}

type fakeRemote struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRemote) Append(context.Context, core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "2024 Transactions!A2:E2", nil
}

func TestHandleSyncMessage(t *testing.T) {
	store := newFakeStore(1)
	remote := &fakeRemote{}
	w := NewSyncWorker(store, remote, 10)
	ctx := context.Background()

	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 1 || len(store.synced) != 1 {
		t.Fatalf("calls=%d synced=%v", remote.calls, store.synced)
	}

	// redelivered message is acknowledged without a second append
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if remote.calls != 1 {
		t.Fatalf("expected no duplicate append, got %d calls", remote.calls)
	}
}

func TestHandleSyncMessageErrors(t *testing.T) {
	ctx := context.Background()

	w := NewSyncWorker(newFakeStore(), &fakeRemote{}, 10)
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(9, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	store := newFakeStore(1)
	w = NewSyncWorker(store, &fakeRemote{err: errors.New("quota exceeded")}, 10)
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(1, 1)); err == nil {
		t.Fatal("expected remote error")
	}
	if len(store.errs) != 1 || store.rows[1].SyncStatus != "error" {
		t.Fatalf("expected sync error to be recorded, got %v", store.errs)
	}
}

func TestProcessPendingTransactions(t *testing.T) {
	store := newFakeStore(1, 2, 3)
	remote := &fakeRemote{}
	w := NewSyncWorker(store, remote, 2)

	if err := w.ProcessPendingTransactions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if remote.calls != 2 {
		t.Fatalf("batch of 2 should sync 2, got %d", remote.calls)
	}
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
	if remote.calls != 3 || len(store.synced) != 3 {
		t.Fatalf("calls=%d synced=%v", remote.calls, store.synced)
	}
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
	if remote.calls != 3 {
		t.Fatalf("nothing left to sync, got %d calls", remote.calls)
	}
}

func TestPoller(t *testing.T) {
	store := newFakeStore(1)
	remote := &fakeRemote{}
	p := NewPoller(NewSyncWorker(store, remote, 10), 10*time.Millisecond)
	ctx := context.Background()

	if p.IsRunning() {
		t.Fatal("poller should not run before Start")
	}
	if err := p.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.Start(ctx); !errors.Is(err, ErrPollerRunning) {
		t.Fatalf("expected ErrPollerRunning, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		n := len(store.synced)
		store.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("poller never synced the pending transaction")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if p.IsRunning() {
		t.Fatal("poller should be stopped")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop should be a no-op: %v", err)
	}
}

package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gapcheck/pkg/domain/model"
	"github.com/secmon-lab/gapcheck/pkg/service/worker"
)

type mockIngester struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockIngester) IngestAll(ctx context.Context) (*model.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &model.IngestReport{Documents: 1, Ingested: 1, Chunks: 3}, nil
}

func (m *mockIngester) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestIngestWorker(t *testing.T) {
	t.Run("runs immediately and on every tick", func(t *testing.T) {
		ing := &mockIngester{}
		w := worker.NewIngestWorker(ing, 20*time.Millisecond)
		w.Start(context.Background())

		waitFor(t, func() bool { return ing.callCount() >= 3 })
		w.Stop()

		calls := ing.callCount()
		time.Sleep(50 * time.Millisecond)
		gt.Number(t, ing.callCount()).Equal(calls)
	})

	t.Run("keeps running after failures", func(t *testing.T) {
		ing := &mockIngester{err: errors.New("provider down")}
		w := worker.NewIngestWorker(ing, 10*time.Millisecond)
		w.Start(context.Background())

		waitFor(t, func() bool { return ing.callCount() >= 2 })
		w.Stop()
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ing := &mockIngester{}
		w := worker.NewIngestWorker(ing, time.Hour)
		w.Start(ctx)

		waitFor(t, func() bool { return ing.callCount() == 1 })
		cancel()
		w.Stop()
		w.Stop()
	})
}

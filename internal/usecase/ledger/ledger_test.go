package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

type memorySink struct {
	mu      sync.Mutex
	name    string
	fail    bool
	reports []dto.WorkerReport
	closed  bool
}

func (s *memorySink) Name() string { return s.name }

func (s *memorySink) Send(ctx context.Context, r dto.WorkerReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink is down")
	}
	s.reports = append(s.reports, r)
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func TestLedgerFanOut(t *testing.T) {
	good := &memorySink{name: "good"}
	bad := &memorySink{name: "bad", fail: true}
	l := NewLedger(8, logger.Nop(), bad, good)

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)

	require.True(t, l.Report(dto.WorkerReport{Worker: "0xW.a"}))
	require.True(t, l.Report(dto.WorkerReport{Worker: "0xW.b"}))

	assert.Eventually(t, func() bool { return good.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	l.Close()
	assert.True(t, good.closed)
	assert.True(t, bad.closed)
}

func TestLedgerReportIsNonBlocking(t *testing.T) {
	l := NewLedger(1, logger.Nop())

	assert.True(t, l.Report(dto.WorkerReport{Worker: "a"}))
	assert.False(t, l.Report(dto.WorkerReport{Worker: "b"}))
}

func TestLedgerDrainsOnShutdown(t *testing.T) {
	sink := &memorySink{name: "mem"}
	l := NewLedger(4, logger.Nop(), sink)
	l.Report(dto.WorkerReport{Worker: "a"})
	l.Report(dto.WorkerReport{Worker: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Run(ctx)

	assert.Equal(t, 2, sink.count())
}

// blockingSink держит Send до сигнала release
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	closed  atomic.Bool
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Send(_ context.Context, _ dto.WorkerReport) error {
	s.entered <- struct{}{}
	<-s.release
	return nil
}

func (s *blockingSink) Close() error {
	s.closed.Store(true)
	return nil
}

func TestLedgerCloseWaitsForDispatch(t *testing.T) {
	sink := &blockingSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	l := NewLedger(4, logger.Nop(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	l.Start(ctx)
	require.True(t, l.Report(dto.WorkerReport{Worker: "a"}))
	<-sink.entered
	cancel()

	closed := make(chan struct{})
	go func() {
		l.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("sinks closed while a report is being sent")
	case <-time.After(100 * time.Millisecond):
	}
	assert.False(t, sink.closed.Load())

	close(sink.release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close did not return")
	}
	assert.True(t, sink.closed.Load())
}

package session

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

// recordConn запоминает записанные строки, чтение сразу возвращает EOF
type recordConn struct {
	written [][]byte
}

func (c *recordConn) ReadFrame() ([]byte, error) { return nil, io.EOF }
func (c *recordConn) RemoteAddr() string         { return "10.0.0.1:5000" }
func (c *recordConn) Close() error               { return nil }

func (c *recordConn) WriteFrame(frame []byte) error {
	c.written = append(c.written, append([]byte(nil), frame...))
	return nil
}

func (c *recordConn) last(t *testing.T) map[string]interface{} {
	t.Helper()
	require.NotEmpty(t, c.written)
	var m map[string]interface{}
	require.NoError(t, jsonx.Unmarshal(c.written[len(c.written)-1], &m))
	return m
}

type scriptedScheduler map[uint64]entity.Destination

func (s scriptedScheduler) Decide(idx uint64) entity.Destination {
	return s[idx]
}

type staticRates entity.FeeRates

func (r staticRates) Fee() entity.FeeRates {
	return entity.FeeRates(r)
}

type fakeFee struct {
	jobs      chan entity.Job
	submitted chan []byte
}

func newFakeFee() *fakeFee {
	return &fakeFee{jobs: make(chan entity.Job), submitted: make(chan []byte, 16)}
}

func (f *fakeFee) Submit(frame []byte) bool {
	select {
	case f.submitted <- frame:
		return true
	default:
		return false
	}
}

func (f *fakeFee) Subscribe() (<-chan entity.Job, func()) {
	return f.jobs, func() {}
}

type chanReporter chan dto.WorkerReport

func (r chanReporter) Report(report dto.WorkerReport) bool {
	select {
	case r <- report:
		return true
	default:
		return false
	}
}

// newTestSession сессия без цикла Run, обработчики вызываются напрямую
func newTestSession(t *testing.T, deps Deps) (*Session, *recordConn, *recordConn) {
	t.Helper()
	if deps.Scheduler == nil {
		deps.Scheduler = scriptedScheduler{}
	}
	miner, pool := &recordConn{}, &recordConn{}
	s, err := New(Config{ProxyName: "test"}, miner, pool, deps, logger.Nop())
	require.NoError(t, err)
	return s, miner, pool
}

// pipeEnv сессия, запущенная поверх net.Pipe
type pipeEnv struct {
	miner    *linecodec.Conn
	minerRaw net.Conn
	pool     *linecodec.Conn
	poolRaw  net.Conn
	done     chan error
	cancel   context.CancelFunc
}

func startSession(t *testing.T, deps Deps) *pipeEnv {
	t.Helper()
	return startSessionEvery(t, time.Hour, deps)
}

// startSessionEvery сессия с заданным периодом отправки снимков
func startSessionEvery(t *testing.T, interval time.Duration, deps Deps) *pipeEnv {
	t.Helper()
	if deps.Scheduler == nil {
		deps.Scheduler = scriptedScheduler{}
	}

	minerSrv, minerCli := net.Pipe()
	poolSrv, poolCli := net.Pipe()

	s, err := New(Config{ProxyName: "test", Transport: "tcp", ReportInterval: interval},
		linecodec.NewConn(minerSrv, linecodec.Config{}),
		linecodec.NewConn(poolCli, linecodec.Config{}),
		deps, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	env := &pipeEnv{
		miner:    linecodec.NewConn(minerCli, linecodec.Config{WriteTimeout: 2 * time.Second}),
		minerRaw: minerCli,
		pool:     linecodec.NewConn(poolSrv, linecodec.Config{WriteTimeout: 2 * time.Second}),
		poolRaw:  poolSrv,
		done:     make(chan error, 1),
		cancel:   cancel,
	}
	go func() {
		env.done <- s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = minerCli.Close()
		_ = poolSrv.Close()
	})

	return env
}

func (e *pipeEnv) sendMiner(t *testing.T, frame string) {
	t.Helper()
	require.NoError(t, e.miner.WriteFrame([]byte(frame)))
}

func (e *pipeEnv) sendPool(t *testing.T, frame string) {
	t.Helper()
	require.NoError(t, e.pool.WriteFrame([]byte(frame)))
}

func readWithDeadline(t *testing.T, raw net.Conn, c *linecodec.Conn) string {
	t.Helper()
	require.NoError(t, raw.SetReadDeadline(time.Now().Add(2*time.Second)))
	frame, err := c.ReadFrame()
	require.NoError(t, err)
	return string(frame)
}

func (e *pipeEnv) readMiner(t *testing.T) string {
	return readWithDeadline(t, e.minerRaw, e.miner)
}

func (e *pipeEnv) readPool(t *testing.T) string {
	return readWithDeadline(t, e.poolRaw, e.pool)
}

func (e *pipeEnv) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-e.done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop")
	}
	return nil
}

package app

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/config"
	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

type pipePool struct {
	servers chan *linecodec.Conn
	err     error
}

func (p *pipePool) Dial(ctx context.Context) (*linecodec.Conn, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	client, server := net.Pipe()
	p.servers <- linecodec.NewConn(server, linecodec.Config{})
	return linecodec.NewConn(client, linecodec.Config{}), "pipe", nil
}

type reports chan dto.WorkerReport

func (r reports) Report(report dto.WorkerReport) bool {
	select {
	case r <- report:
		return true
	default:
		return false
	}
}

func within(t *testing.T, f func() ([]byte, error)) string {
	t.Helper()
	out := make(chan string, 1)
	go func() {
		b, err := f()
		if err == nil {
			out <- string(b)
		}
	}()
	select {
	case s := <-out:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no frame")
	}
	return ""
}

func TestServeConnNoUpstream(t *testing.T) {
	minerSide, proxySide := net.Pipe()
	defer minerSide.Close()

	h := &sessionHandler{
		store:    config.NewStore(config.Config{}),
		resolver: &pipePool{err: errors.New("no upstream available")},
		ledger:   make(reports, 1),
		logger:   logger.Nop(),
	}

	done := make(chan struct{})
	go func() {
		h.ServeConn(context.Background(), linecodec.NewConn(proxySide, linecodec.Config{}), "tcp")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn did not return")
	}
}

func TestServeConnBridgesLogin(t *testing.T) {
	minerSide, proxySide := net.Pipe()
	miner := linecodec.NewConn(minerSide, linecodec.Config{})
	pool := &pipePool{servers: make(chan *linecodec.Conn, 1)}
	led := make(reports, 8)

	h := &sessionHandler{
		proxyName:      "proxy-1",
		reportInterval: time.Hour,
		store:          config.NewStore(config.Config{}),
		resolver:       pool,
		ledger:         led,
		logger:         logger.Nop(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.ServeConn(ctx, linecodec.NewConn(proxySide, linecodec.Config{}), "tcp")
		close(done)
	}()

	require.NoError(t, miner.WriteFrame([]byte(`{"id":7,"jsonrpc":"2.0","method":"eth_submitLogin","params":["0xW.rig","x"]}`)))

	var poolConn *linecodec.Conn
	select {
	case poolConn = <-pool.servers:
	case <-time.After(2 * time.Second):
		t.Fatal("pool not dialed")
	}
	login := within(t, poolConn.ReadFrame)
	assert.Contains(t, login, `"eth_submitLogin"`)
	assert.Contains(t, login, `"id":1001`)

	ack := within(t, miner.ReadFrame)
	assert.JSONEq(t, `{"id":7,"jsonrpc":"2.0","result":true}`, ack)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}

	select {
	case r := <-led:
		assert.Equal(t, "proxy-1", r.ProxyName)
		assert.Equal(t, "0xW.rig", r.Worker)
		assert.False(t, r.Online)
	case <-time.After(time.Second):
		t.Fatal("final report not sent")
	}
}

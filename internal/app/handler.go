package app

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/config"
	"github.com/dnsoftware/mpm-mining-proxy/internal/usecase/fee"
	"github.com/dnsoftware/mpm-mining-proxy/internal/usecase/session"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

// PoolDialer подключение к основному пулу (upstream.Resolver)
type PoolDialer interface {
	Dial(ctx context.Context) (*linecodec.Conn, string, error)
}

// sessionHandler для каждого соединения майнера: подключение к пулу и сессия до ее завершения
type sessionHandler struct {
	proxyName      string
	reportInterval time.Duration
	store          *config.Store
	resolver       PoolDialer
	ledger         session.Reporter
	proxyFee       *session.FeeRoute
	devFee         *session.FeeRoute
	logger         logger.MPMLogger
}

func (h *sessionHandler) ServeConn(ctx context.Context, miner *linecodec.Conn, transport string) {
	pool, addr, err := h.resolver.Dial(ctx)
	if err != nil {
		h.logger.Error("upstream unavailable, connection dropped",
			zap.String("remote", miner.RemoteAddr()), zap.String("transport", transport), zap.Error(err))
		return
	}

	s, err := session.New(session.Config{
		ProxyName:      h.proxyName,
		Transport:      transport,
		ReportInterval: h.reportInterval,
	}, miner, pool, session.Deps{
		Scheduler: fee.NewScheduler(h.store, uint64(time.Now().UnixNano()), rand.Uint64()),
		Rates:     h.store,
		Reporter:  h.ledger,
		ProxyFee:  h.proxyFee,
		DevFee:    h.devFee,
	}, h.logger)
	if err != nil {
		_ = pool.Close()
		h.logger.Error("session init failed", zap.Error(err))
		return
	}

	h.logger.Debug("session upstream", zap.String("session", s.ID()), zap.String("pool", addr))
	_ = s.Run(ctx)
}

// Package session сессия одного майнера: мост между соединением майнера и пулом
// с перенаправлением части заданий в пулы комиссий
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/internal/protocol"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

const tracerName = "mpm-mining-proxy/session"

// FrameConn построчное соединение (linecodec.Conn)
type FrameConn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	RemoteAddr() string
	Close() error
}

// FeeUpstream соединение с пулом комиссии, общее для всех сессий
type FeeUpstream interface {
	// Submit неблокирующая постановка шары в очередь отправки, false - очередь переполнена
	Submit(frame []byte) bool
	// Subscribe подписка на задания пула комиссии
	Subscribe() (<-chan entity.Job, func())
}

// Decider выбор направления для очередного задания (fee.Scheduler)
type Decider interface {
	Decide(idx uint64) entity.Destination
}

// RateSource текущие ставки комиссий (config.Store)
type RateSource interface {
	Fee() entity.FeeRates
}

// Reporter неблокирующая отправка снимка воркера в учет (ledger.Ledger)
type Reporter interface {
	Report(report dto.WorkerReport) bool
}

// FeeRoute пул комиссии и идентификатор, под которым в него отправляются шары
type FeeRoute struct {
	Upstream FeeUpstream
	Wallet   string
	Worker   string
}

type Config struct {
	ProxyName      string        // имя прокси в отчетах
	Transport      string        // tcp/tls/encrypt, для логов
	ReportInterval time.Duration // период отправки снимка воркера
}

type Deps struct {
	Scheduler Decider
	Rates     RateSource
	Reporter  Reporter
	ProxyFee  *FeeRoute // nil - комиссия прокси отключена
	DevFee    *FeeRoute // nil - комиссия разработчика отключена
}

type feeRoute struct {
	*FeeRoute
	dest    entity.Destination
	pending *PendingQueue
}

type readResult struct {
	frame []byte
	err   error
}

// Session состояние меняется только в горутине Run
type Session struct {
	id     string
	cfg    Config
	miner  FrameConn
	pool   FrameConn
	deps   Deps
	logger *zap.Logger

	routes map[entity.Destination]*feeRoute
	table  *RoutingTable

	dialect    protocol.Dialect
	worker     *entity.Worker
	difficulty float64
	jobIdx     uint64
	jobKind    entity.JobKind
	getWorkIDs []uint64 // id запросов eth_getWork майнера, ожидающих ответа пула
	relayIDs   map[uint64]uint64
	relaySeq   uint64
}

func New(cfg Config, miner FrameConn, pool FrameConn, deps Deps, log logger.MPMLogger) (*Session, error) {
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = constants.ReportInterval
	}

	table, err := NewRoutingTable(constants.RoutingTableSize)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s := &Session{
		id:       id,
		cfg:      cfg,
		miner:    miner,
		pool:     pool,
		deps:     deps,
		logger:   log.With(zap.String("session", id), zap.String("remote", miner.RemoteAddr()), zap.String("transport", cfg.Transport)),
		routes:   make(map[entity.Destination]*feeRoute, 2),
		relayIDs: make(map[uint64]uint64),
		table:    table,
		worker:   entity.NewWorker(miner.RemoteAddr()),
	}

	if deps.ProxyFee != nil {
		s.routes[entity.DestinationProxyFee] = &feeRoute{FeeRoute: deps.ProxyFee, dest: entity.DestinationProxyFee, pending: NewPendingQueue(constants.PendingFeeJobs)}
	}
	if deps.DevFee != nil {
		s.routes[entity.DestinationDevFee] = &feeRoute{FeeRoute: deps.DevFee, dest: entity.DestinationDevFee, pending: NewPendingQueue(constants.PendingFeeJobs)}
	}

	return s, nil
}

func (s *Session) ID() string {
	return s.id
}

// Run цикл сессии до отключения одной из сторон, нарушения протокола или отмены контекста.
// Оба соединения закрываются при выходе, последний снимок воркера уходит в учет с Online=false.
func (s *Session) Run(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "session",
		trace.WithAttributes(
			attribute.String("session.id", s.id),
			attribute.String("session.remote", s.miner.RemoteAddr()),
			attribute.String("session.transport", s.cfg.Transport),
		))
	defer span.End()

	done := make(chan struct{})
	minerFrames := make(chan readResult, constants.FrameChanSize)
	poolFrames := make(chan readResult, constants.FrameChanSize)
	go readLoop(s.miner, minerFrames, done)
	go readLoop(s.pool, poolFrames, done)

	var proxyJobs, devJobs <-chan entity.Job
	if r, ok := s.routes[entity.DestinationProxyFee]; ok {
		ch, cancel := r.Upstream.Subscribe()
		defer cancel()
		proxyJobs = ch
	}
	if r, ok := s.routes[entity.DestinationDevFee]; ok {
		ch, cancel := r.Upstream.Subscribe()
		defer cancel()
		devJobs = ch
	}

	ticker := time.NewTicker(s.cfg.ReportInterval)
	defer ticker.Stop()

	s.logger.Debug("session started")

	err := func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case r := <-minerFrames:
				if r.err != nil {
					return readError("miner", r.err)
				}
				if err := s.handleMiner(r.frame); err != nil {
					return err
				}
			case r := <-poolFrames:
				if r.err != nil {
					return readError("pool", r.err)
				}
				if err := s.handlePool(r.frame); err != nil {
					return err
				}
			case job, ok := <-proxyJobs:
				if !ok {
					proxyJobs = nil
					continue
				}
				s.queueFeeJob(entity.DestinationProxyFee, job)
			case job, ok := <-devJobs:
				if !ok {
					devJobs = nil
					continue
				}
				s.queueFeeJob(entity.DestinationDevFee, job)
			case <-ticker.C:
				if s.worker.IsLoggedIn() {
					s.report()
				}
			}
		}
	}()

	close(done)
	_ = s.miner.Close()
	_ = s.pool.Close()

	s.worker.Online = false
	s.report()

	span.SetAttributes(
		attribute.String("worker.id", s.worker.ID),
		attribute.String("worker.protocol", s.dialect.String()),
		attribute.Int64("worker.shares", int64(s.worker.ShareIndex)),
	)
	s.logResult(err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}

func (s *Session) logResult(err error) {
	fields := []zap.Field{zap.String("worker", s.worker.ID), zap.String("protocol", s.dialect.String())}
	switch {
	case err == nil:
		s.logger.Info("session closed on shutdown", fields...)
	case errors.Is(err, ErrProtocolViolation):
		s.logger.Warn("protocol violation, possible scan", append(fields, zap.Error(err))...)
	case errors.Is(err, ErrSerialization):
		s.logger.Error("session serialization failure", append(fields, zap.Error(err))...)
	default:
		s.logger.Info("session disconnected", append(fields, zap.Error(err))...)
	}
}

// readLoop только читает строки и передает их в цикл сессии
func readLoop(c FrameConn, out chan<- readResult, done <-chan struct{}) {
	for {
		frame, err := c.ReadFrame()
		select {
		case out <- readResult{frame: frame, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func readError(side string, err error) error {
	if errors.Is(err, linecodec.ErrFrameTooLong) || errors.Is(err, linecodec.ErrBadFrame) {
		return fmt.Errorf("%w: %s: %v", ErrProtocolViolation, side, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrDisconnected, side, err)
}

func (s *Session) writeMiner(frame []byte) error {
	if err := s.miner.WriteFrame(frame); err != nil {
		return fmt.Errorf("%w: write miner: %v", ErrDisconnected, err)
	}
	return nil
}

func (s *Session) writePool(frame []byte) error {
	if err := s.pool.WriteFrame(frame); err != nil {
		return fmt.Errorf("%w: write pool: %v", ErrDisconnected, err)
	}
	return nil
}

func (s *Session) writePoolRequest(req protocol.Request) error {
	b, err := protocol.Encode(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return s.writePool(b)
}

func (s *Session) ack(id uint64) error {
	b, err := protocol.NewAck(id, true)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	return s.writeMiner(b)
}

func (s *Session) report() {
	r := dto.NewWorkerReport(s.id, s.cfg.ProxyName, s.worker, time.Now().UnixMilli())
	if s.deps.Reporter == nil {
		return
	}
	if !s.deps.Reporter.Report(r) {
		s.logger.Warn("worker report dropped, ledger is full", zap.String("worker", s.worker.ID))
	}
}

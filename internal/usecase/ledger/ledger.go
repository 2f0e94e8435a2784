// Package ledger учет воркеров: снимки из сессий собираются в один канал
// и раздаются всем подключенным приемникам
package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

// Sink приемник снимков (процесс управления, Kafka, Postgres)
type Sink interface {
	Name() string
	Send(ctx context.Context, report dto.WorkerReport) error
	Close() error
}

type Ledger struct {
	reports chan dto.WorkerReport
	sinks   []Sink
	logger  logger.MPMLogger
	wg      sync.WaitGroup
}

func NewLedger(size int, logger logger.MPMLogger, sinks ...Sink) *Ledger {
	return &Ledger{
		reports: make(chan dto.WorkerReport, size),
		sinks:   sinks,
		logger:  logger,
	}
}

// Report неблокирующая постановка снимка в очередь, false - очередь заполнена
func (l *Ledger) Report(report dto.WorkerReport) bool {
	select {
	case l.reports <- report:
		return true
	default:
		return false
	}
}

// Start запуск Run в отдельной горутине, Close дождется ее завершения
func (l *Ledger) Start(ctx context.Context) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.Run(ctx)
	}()
}

// Run раздача снимков приемникам до отмены контекста, оставшиеся в очереди снимки досылаются
func (l *Ledger) Run(ctx context.Context) {
	for {
		select {
		case r := <-l.reports:
			l.dispatch(ctx, r)
		case <-ctx.Done():
			for {
				select {
				case r := <-l.reports:
					l.dispatch(context.Background(), r)
				default:
					return
				}
			}
		}
	}
}

func (l *Ledger) dispatch(ctx context.Context, r dto.WorkerReport) {
	for _, s := range l.sinks {
		if err := s.Send(ctx, r); err != nil {
			l.logger.Warn("ledger sink error", zap.String("sink", s.Name()), zap.String("worker", r.Worker), zap.Error(err))
		}
	}
}

// Close дождаться окончания запущенного через Start цикла и закрыть приемники
func (l *Ledger) Close() {
	l.wg.Wait()
	for _, s := range l.sinks {
		if err := s.Close(); err != nil {
			l.logger.Warn("ledger sink close", zap.String("sink", s.Name()), zap.Error(err))
		}
	}
}

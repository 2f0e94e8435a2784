package reporter

import (
	"context"
	"time"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
)

// WorkerReportStorage сохранение последнего снимка воркера (postgres.WorkerStorage)
type WorkerReportStorage interface {
	UpsertWorkerReport(ctx context.Context, report dto.WorkerReport) error
	Close()
}

// PostgresSink последний снимок каждого воркера в таблице worker_reports
type PostgresSink struct {
	storage WorkerReportStorage
}

func NewPostgresSink(storage WorkerReportStorage) *PostgresSink {
	return &PostgresSink{storage: storage}
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

// Send снимки сессий, не дошедших до авторизации, не сохраняются
func (s *PostgresSink) Send(ctx context.Context, report dto.WorkerReport) error {
	if report.Worker == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, constants.QueryDealine*time.Second)
	defer cancel()

	return s.storage.UpsertWorkerReport(ctx, report)
}

func (s *PostgresSink) Close() error {
	s.storage.Close()
	return nil
}

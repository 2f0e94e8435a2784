package reporter

import (
	"context"
	"fmt"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

// MessageWriter отправка сообщения в топик (kafka_writer.KafkaWriter)
type MessageWriter interface {
	SendMessage(ctx context.Context, key string, value []byte)
	Close()
}

// KafkaSink снимки в топик Kafka, ключ - идентификатор воркера
type KafkaSink struct {
	writer MessageWriter
}

func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Name() string {
	return "kafka"
}

func (s *KafkaSink) Send(ctx context.Context, report dto.WorkerReport) error {
	value, err := jsonx.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	key := report.Worker
	if key == "" {
		key = report.SessionID
	}
	s.writer.SendMessage(ctx, key, value)
	return nil
}

func (s *KafkaSink) Close() error {
	s.writer.Close()
	return nil
}

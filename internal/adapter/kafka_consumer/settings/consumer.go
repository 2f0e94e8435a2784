// Package settings реализует обработчик изменений настроек комиссии, полученных из топика кафки
package settings

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/kafka_reader"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/kafka_writer"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

// Applier применение изменений к текущим настройкам (config.Store)
type Applier interface {
	ApplyUpdate(u dto.SettingsUpdate) error
}

// SettingsConsumer реализует интерфейс sarama.ConsumerGroupHandler
type SettingsConsumer struct {
	kafkaReader *kafka_reader.KafkaReader
	applier     Applier
	logger      logger.MPMLogger
}

func NewSettingsConsumer(kafkaReader *kafka_reader.KafkaReader, applier Applier, logger logger.MPMLogger) *SettingsConsumer {
	return &SettingsConsumer{
		kafkaReader: kafkaReader,
		applier:     applier,
		logger:      logger,
	}
}

// StartConsume Стартует чтение из Кафки
func (consumer *SettingsConsumer) StartConsume() {
	consumer.kafkaReader.ConsumeMessages(consumer)
}

func (consumer *SettingsConsumer) Close() {
	consumer.kafkaReader.Close()
}

// Setup вызывается перед началом обработки (интерфейс ConsumerGroupHandler)
func (consumer *SettingsConsumer) Setup(session sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается после завершения обработки (интерфейс ConsumerGroupHandler)
func (consumer *SettingsConsumer) Cleanup(session sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения из партиций (интерфейс ConsumerGroupHandler)
// Некорректное сообщение логируется и пропускается, смещение все равно помечается
func (consumer *SettingsConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if msg == nil {
				continue
			}

			// Извлекаем контекст трассировки из заголовков
			ctx := otel.GetTextMapPropagator().Extract(context.Background(), kafka_writer.ConsumerHeadersCarrier(msg.Headers))
			if err := consumer.HandleMessage(ctx, msg.Value); err != nil {
				consumer.logger.Warn("settings update skipped",
					zap.String("topic", msg.Topic), zap.Int32("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			}
			session.MarkMessage(msg, "")

		case <-session.Context().Done():
			// Завершаем работу при остановке сессии
			return nil
		}
	}
}

// HandleMessage разбор и применение одного изменения настроек
func (consumer *SettingsConsumer) HandleMessage(ctx context.Context, value []byte) error {
	_, span := otel.Tracer("consume-settings").Start(ctx, "apply-settings")
	defer span.End()

	var update dto.SettingsUpdate
	if err := jsonx.Unmarshal(value, &update); err != nil {
		return fmt.Errorf("unmarshal settings update: %w", err)
	}
	if err := consumer.applier.ApplyUpdate(update); err != nil {
		return fmt.Errorf("apply settings update: %w", err)
	}

	consumer.logger.Info("settings updated", zap.ByteString("update", value))
	return nil
}

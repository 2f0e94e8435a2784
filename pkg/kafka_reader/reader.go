package kafka_reader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

type Config struct {
	Brokers            []string
	Group              string
	Topic              string
	AutoCommitEnable   bool
	AutoCommitInterval int
}

type KafkaReader struct {
	brokers       []string
	group         string
	topic         string
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        logger.MPMLogger
}

func NewKafkaReader(cfg Config, logger logger.MPMLogger) (*KafkaReader, error) {
	// Настройка конфигурации
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest                                             // Настройки до запуска прокси не интересны
	config.Consumer.Offsets.AutoCommit.Enable = cfg.AutoCommitEnable                                  // Включаем автоматическое сохранение оффсетов
	config.Consumer.Offsets.AutoCommit.Interval = time.Duration(cfg.AutoCommitInterval) * time.Second // Интервал для сохранения оффсетов
	config.Consumer.Return.Errors = true

	// Создаем клиента для consumer группы
	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.Group, config)
	if err != nil {
		return nil, err
	}

	// Создание контекста для управления остановкой
	ctx, cancel := context.WithCancel(context.Background())

	r := &KafkaReader{
		brokers:       cfg.Brokers,
		group:         cfg.Group,
		topic:         cfg.Topic,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger,
	}

	// Обработка ошибок в отдельной горутине
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range consumerGroup.Errors() {
			r.logger.Error("kafka consumer group error", zap.String("group", r.group), zap.Error(err))
		}
	}()

	return r, nil
}

// ConsumeMessages - запуск чтения сообщений из топика
func (r *KafkaReader) ConsumeMessages(handler sarama.ConsumerGroupHandler) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Бесконечный цикл чтения сообщений
		for {
			// Если контекст завершён, выходим из цикла
			if r.ctx.Err() != nil {
				return
			}

			if err := r.consumerGroup.Consume(r.ctx, []string{r.topic}, handler); err != nil {
				r.logger.Error(fmt.Sprintf("Ошибка при чтении сообщений, Group: %s, Topic: %s: %v", r.group, r.topic, err))
				select {
				case <-r.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}()
}

func (r *KafkaReader) Close() {
	// Отмена контекста
	r.cancel()
	// Закрытие Consumer Group, после него закрывается канал Errors()
	if err := r.consumerGroup.Close(); err != nil {
		r.logger.Error(fmt.Sprintf("Ошибка закрытия Consumer Group, Group: %s, Topic: %s: %v", r.group, r.topic, err))
	}
	// Ожидание завершения горутин
	r.wg.Wait()

	r.logger.Info(fmt.Sprintf("KafkaConsumer завершён, Group: %s, Topic: %s", r.group, r.topic))
}

// SetGroupOffset устанавливает для текущей группы смещение по всем партициям топика
func (r *KafkaReader) SetGroupOffset(offset int64) error {
	// Создание нового клиента
	client, err := sarama.NewClient(r.brokers, nil)
	if err != nil {
		r.logger.Error(fmt.Sprintf("Failed to create Kafka client: %s", err))
		return err
	}
	defer client.Close()

	// Создание OffsetManager
	offsetManager, err := sarama.NewOffsetManagerFromClient(r.group, client)
	if err != nil {
		r.logger.Error(fmt.Sprintf("Failed to create offset manager: %s", err))
		return err
	}
	defer offsetManager.Close()

	// Получение информации о партициях топика
	partitions, err := client.Partitions(r.topic)
	if err != nil {
		return fmt.Errorf("partitions of %s: %w", r.topic, err)
	}

	// Установка конкретных смещений по партициям
	for _, partition := range partitions {
		partitionManager, err := offsetManager.ManagePartition(r.topic, partition)
		if err != nil {
			r.logger.Error(fmt.Sprintf("Failed to manage partition %d: %v", partition, err))
			continue
		}

		partitionManager.ResetOffset(offset, "")
		_ = partitionManager.Close()

		r.logger.Info(fmt.Sprintf("Set offset for partition %d to %d", partition, offset))
	}

	return nil
}

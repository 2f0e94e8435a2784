package constants

import "time"

const (
	ProjectRootAnchorFile = ".env"
	AppLogFile            = "app.log"
	TestLogFile           = "test.log"
	ConfigFile            = "config.yaml"
)

const WorkerSeparator = "."         // символ разделитель имени воркера от имени кошелька
const DefaultWorkerName = "default" // имя воркера, если майнер его не прислал
const MigrationDir = "migration"    // папка с миграциями относительно корня проекта

// Служебные идентификаторы запросов, которые прокси отправляет в пул от имени майнера.
// По ним ответы пула сопоставляются с типом запроса.
const (
	LoginID     uint64 = 1001
	GetWorkID   uint64 = 1002
	HashrateID  uint64 = 1003
	SubmitID    uint64 = 1004
	FeeSubmitID uint64 = 1005

	RelayIDBase uint64 = 10000 // начало диапазона id для запросов майнера, пересылаемых в пул как есть
)

// Сессия
const (
	ReportInterval       = 30 * time.Second // период отправки снимка воркера в канал учета
	WriteTimeout         = 10 * time.Second // дедлайн записи в сокет
	MaxFrameSize         = 64 * 1024        // максимальная длина одной строки протокола
	RoutingTableSize     = 256              // емкость каждого множества в таблице маршрутизации заданий
	PendingFeeJobs       = 16               // очередь ожидающих fee-заданий на одно направление
	FrameChanSize        = 32               // буфер каналов чтения сокетов
	FeeJobSubscription   = 8                // буфер подписки на задания fee-пула
	ReportChanSize       = 1024             // буфер канала учета воркеров
	FeeSubmitQueueSize   = 256              // буфер очереди шар, отправляемых в fee-пул
	DefaultMinFeeRate    = 0.001            // минимальная ставка для вероятностного алгоритма
	DefaultMaxSessions   = 4096             // максимум одновременных сессий на один акцептор
	DefaultDialTimeout   = 3 * time.Second  // таймаут подключения к пулу
	DefaultFeeRetries    = 5                // бюджет переподключений к fee-пулу
	DeadUpstreamTTL      = 30 * time.Second // сколько считать адрес пула недоступным после ошибки
	DefaultReportAddr    = "127.0.0.1:32000"
	DefaultKafkaTopic    = "worker-reports"
	DefaultSettingsTopic = "proxy-settings"
	DefaultSettingsGroup = "proxy-settings-group"
)

// Postgresql
const (
	QueryDealine = 5 // время в секундах, после которого прерывать контекст выполнения Postgresql запроса
)

// Kafka
const (
	KafkaAutocommitInterval = 5
)

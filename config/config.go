package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v2"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/internal/protocol"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/obfs"
)

type App struct {
	Name    string `yaml:"app_name" toml:"app_name" envconfig:"APP_NAME"`          // имя экземпляра прокси, попадает в отчеты
	Version string `yaml:"app_version" toml:"app_version" envconfig:"APP_VERSION"` //
	Env     string `yaml:"env" toml:"env" envconfig:"APP_ENV"`                     // production | debug
}

type ProxyConfig struct {
	Host         string   `yaml:"host" toml:"host" envconfig:"PROXY_HOST"`                         // адрес прослушивания
	TCPPort      int      `yaml:"tcp_port" toml:"tcp_port" envconfig:"PROXY_TCP_PORT"`             // 0 - отключен
	TLSPort      int      `yaml:"tls_port" toml:"tls_port" envconfig:"PROXY_TLS_PORT"`             // 0 - отключен
	EncryptPort  int      `yaml:"encrypt_port" toml:"encrypt_port" envconfig:"PROXY_ENCRYPT_PORT"` // 0 - отключен
	Cert         string   `yaml:"cert" toml:"cert" envconfig:"PROXY_CERT"`                         // файл сертификата для TLS порта
	Key          string   `yaml:"key" toml:"key" envconfig:"PROXY_KEY"`                            // файл ключа для TLS порта
	EncryptKey   string   `yaml:"encrypt_key" toml:"encrypt_key" envconfig:"PROXY_ENCRYPT_KEY"`    // hex, 32 байта
	EncryptIV    string   `yaml:"encrypt_iv" toml:"encrypt_iv" envconfig:"PROXY_ENCRYPT_IV"`       // hex, 12 байт
	MaxSessions  int      `yaml:"max_sessions" toml:"max_sessions" envconfig:"PROXY_MAX_SESSIONS"` // на один порт
	WriteTimeout Duration `yaml:"write_timeout" toml:"write_timeout" ignored:"true"`               // секунды или "500ms"
	WorkerName   string   `yaml:"worker_name" toml:"worker_name" envconfig:"PROXY_WORKER_NAME"`    // имя прокси как воркера в пуле разработчика
}

type PoolConfig struct {
	Addresses          []string `yaml:"addresses" toml:"addresses" envconfig:"POOL_ADDRESSES"` // tcp://host:port или tls://host:port, по порядку приоритета
	DialTimeout        Duration `yaml:"dial_timeout" toml:"dial_timeout" ignored:"true"`       // секунды или "800ms"
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify" toml:"insecure_skip_verify" envconfig:"POOL_INSECURE_SKIP_VERIFY"`
	Socks5             string   `yaml:"socks5" toml:"socks5" envconfig:"POOL_SOCKS5"` // host:port прокси для подключения к пулам, пусто - напрямую
	Socks5User         string   `yaml:"socks5_user" toml:"socks5_user" envconfig:"POOL_SOCKS5_USER"`
	Socks5Pass         string   `yaml:"socks5_pass" toml:"socks5_pass" envconfig:"POOL_SOCKS5_PASS"`
}

// FeeConfig направление комиссии (прокси или разработчика)
type FeeConfig struct {
	Wallet     string   `yaml:"wallet" toml:"wallet"`
	WorkerName string   `yaml:"worker_name" toml:"worker_name"`
	Password   string   `yaml:"password" toml:"password"`
	Rate       float64  `yaml:"rate" toml:"rate"`               // доля заданий, 0.01 = 1%
	Algorithm  string   `yaml:"algorithm" toml:"algorithm"`     // deterministic | probabilistic
	MinRate    float64  `yaml:"min_rate" toml:"min_rate"`       // нижняя граница для probabilistic
	Protocol   string   `yaml:"protocol" toml:"protocol"`       // eth | stratum | nicehash
	Addresses  []string `yaml:"addresses" toml:"addresses"`     // пулы комиссии
	MaxRetries int      `yaml:"max_retries" toml:"max_retries"` // бюджет переподключений
}

// Enabled комиссия включена, если есть кошелек и пул
func (f FeeConfig) Enabled() bool {
	return f.Wallet != "" && len(f.Addresses) > 0
}

type KafkaWriterConfig struct {
	Brokers []string `yaml:"brokers" toml:"brokers" envconfig:"LEDGER_KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" toml:"topic" envconfig:"LEDGER_KAFKA_TOPIC"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn" toml:"dsn" envconfig:"LEDGER_POSTGRES_DSN"`
}

type LedgerConfig struct {
	ReportAddress string            `yaml:"report_address" toml:"report_address" envconfig:"LEDGER_REPORT_ADDRESS"` // loopback адрес процесса управления, пусто - не отправлять
	Interval      Duration          `yaml:"interval" toml:"interval" ignored:"true"`                                // в секундах
	Kafka         KafkaWriterConfig `yaml:"kafka" toml:"kafka"`
	Postgres      PostgresConfig    `yaml:"postgres" toml:"postgres"`
}

type KafkaReaderConfig struct {
	Brokers            []string `yaml:"brokers" toml:"brokers" envconfig:"SETTINGS_KAFKA_BROKERS"`
	Group              string   `yaml:"group" toml:"group" envconfig:"SETTINGS_KAFKA_GROUP"`
	Topic              string   `yaml:"topic" toml:"topic" envconfig:"SETTINGS_KAFKA_TOPIC"`
	AutoCommitInterval int      `yaml:"auto_commit_interval" toml:"auto_commit_interval" ignored:"true"` // в секундах
}

type OtelConfig struct {
	Endpoint           string   `yaml:"endpoint" toml:"endpoint" envconfig:"OTEL_ENDPOINT"`
	BatchTimeout       Duration `yaml:"batch_timeout" toml:"batch_timeout" ignored:"true"`  // таймоут отправки телеметрических пакетов в секундах
	MaxExportBatchSize int      `yaml:"max_export_batch_size" toml:"max_export_batch_size"` // максимальное кол-во сообщений в пакете
	MaxQueueSize       int      `yaml:"max_queue_size" toml:"max_queue_size"`               // максимум спанов в очереди
}

type LogConfig struct {
	File string `yaml:"file" toml:"file" envconfig:"LOG_FILE"` // пусто - app.log в корне проекта
}

type Config struct {
	App           App               `yaml:"application" toml:"application"`
	Proxy         ProxyConfig       `yaml:"proxy" toml:"proxy"`
	Pool          PoolConfig        `yaml:"pool" toml:"pool"`
	Fee           FeeConfig         `yaml:"fee" toml:"fee" envconfig:"FEE"`
	DevFee        FeeConfig         `yaml:"dev_fee" toml:"dev_fee" envconfig:"DEV_FEE"`
	Ledger        LedgerConfig      `yaml:"ledger" toml:"ledger"`
	SettingsTopic KafkaReaderConfig `yaml:"settings_topic" toml:"settings_topic"`
	Otel          OtelConfig        `yaml:"otel" toml:"otel"`
	Log           LogConfig         `yaml:"log" toml:"log"`
}

// New загрузка конфига и проверка значений
func New(filePath string, envFile string) (Config, error) {
	config, err := Load(filePath, envFile)
	if err != nil {
		return config, err
	}
	if err = config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Load загрузка без проверки, для случая когда часть значений придет из командной строки (ApplyOptions)
func Load(filePath string, envFile string) (Config, error) {
	var config Config
	var err error

	// 1. Читаем из config.yaml (или .toml). Самый низкий приоритет
	data, err := os.ReadFile(filePath)
	if err == nil {
		if decodeErr := decode(filePath, data, &config); decodeErr != nil {
			return config, fmt.Errorf("Ошибка при чтении %s: %v", filePath, decodeErr)
		}
	} else {
		log.Printf("%s не найден, используются значения по умолчанию: %v", filePath, err)
	}

	// 2.1 Загрузка переменных окружения из .env, если он есть
	if envFile != "" {
		if _, statErr := os.Stat(envFile); statErr == nil {
			if err = godotenv.Load(envFile); err != nil {
				return config, fmt.Errorf("godotenv.Load: %w", err)
			}
		}
	}

	// 2.2 Переопределяем переменные, полученные из конфиг файла
	err = envconfig.Process("", &config)
	if err != nil {
		return config, fmt.Errorf("envconfig.Process: %w", err)
	}

	// 3. Параметры командной строки применяются через ApplyOptions

	return config, nil
}

func decode(filePath string, data []byte, config *Config) error {
	if strings.EqualFold(filepath.Ext(filePath), ".toml") {
		return toml.Unmarshal(data, config)
	}
	return yaml.Unmarshal(data, config)
}

// Validate проверка и заполнение значений по умолчанию
func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		c.App.Name = "mpm-mining-proxy"
	}
	if c.Proxy.MaxSessions <= 0 {
		c.Proxy.MaxSessions = constants.DefaultMaxSessions
	}
	c.Proxy.WriteTimeout = durationOrDefault(c.Proxy.WriteTimeout, constants.WriteTimeout)
	c.Pool.DialTimeout = durationOrDefault(c.Pool.DialTimeout, constants.DefaultDialTimeout)
	c.Ledger.Interval = durationOrDefault(c.Ledger.Interval, constants.ReportInterval)
	c.Otel.BatchTimeout = durationOrDefault(c.Otel.BatchTimeout, 5*time.Second)
	if c.Ledger.Kafka.Topic == "" {
		c.Ledger.Kafka.Topic = constants.DefaultKafkaTopic
	}
	if c.SettingsTopic.Topic == "" {
		c.SettingsTopic.Topic = constants.DefaultSettingsTopic
	}
	if c.SettingsTopic.Group == "" {
		c.SettingsTopic.Group = constants.DefaultSettingsGroup
	}
	if c.SettingsTopic.AutoCommitInterval <= 0 {
		c.SettingsTopic.AutoCommitInterval = constants.KafkaAutocommitInterval
	}

	for name, port := range map[string]int{"tcp_port": c.Proxy.TCPPort, "tls_port": c.Proxy.TLSPort, "encrypt_port": c.Proxy.EncryptPort} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("proxy: %s %d out of range", name, port))
		}
	}
	if c.Proxy.TCPPort == 0 && c.Proxy.TLSPort == 0 && c.Proxy.EncryptPort == 0 {
		errs = append(errs, errors.New("proxy: no listening port configured"))
	}
	if c.Proxy.TLSPort != 0 && (c.Proxy.Cert == "" || c.Proxy.Key == "") {
		errs = append(errs, errors.New("proxy: tls_port requires cert and key"))
	}
	if c.Proxy.EncryptPort != 0 {
		if _, err := obfs.NewFromHex(c.Proxy.EncryptKey, c.Proxy.EncryptIV); err != nil {
			errs = append(errs, fmt.Errorf("proxy: encrypt_key/encrypt_iv: %w", err))
		}
	}

	if len(c.Pool.Addresses) == 0 {
		errs = append(errs, errors.New("pool: addresses are empty"))
	}
	errs = append(errs, validateAddresses("pool", c.Pool.Addresses)...)

	if c.DevFee.WorkerName == "" {
		c.DevFee.WorkerName = c.Proxy.WorkerName
	}
	if c.DevFee.WorkerName == "" {
		c.DevFee.WorkerName = hostname()
	}
	errs = append(errs, validateFee("fee", &c.Fee)...)
	errs = append(errs, validateFee("dev_fee", &c.DevFee)...)
	if c.Fee.Enabled() && c.DevFee.Enabled() && c.Fee.Rate+c.DevFee.Rate > 1 {
		errs = append(errs, errors.New("fee.rate + dev_fee.rate > 1"))
	}

	if c.Otel.MaxExportBatchSize <= 0 {
		c.Otel.MaxExportBatchSize = 100
	}
	if c.Otel.MaxQueueSize <= 0 {
		c.Otel.MaxQueueSize = 1000
	}

	return errors.Join(errs...)
}

func durationOrDefault(d Duration, def time.Duration) Duration {
	if d <= 0 {
		return Duration(def)
	}
	return d
}

func validateFee(name string, f *FeeConfig) []error {
	var errs []error

	if f.Algorithm == "" {
		f.Algorithm = string(entity.FeeAlgorithmDeterministic)
	}
	if f.MinRate <= 0 {
		f.MinRate = constants.DefaultMinFeeRate
	}
	if f.MaxRetries <= 0 {
		f.MaxRetries = constants.DefaultFeeRetries
	}
	if f.Password == "" {
		f.Password = "x"
	}
	if f.WorkerName == "" {
		f.WorkerName = constants.DefaultWorkerName
	}
	if f.Protocol == "" {
		f.Protocol = protocol.DialectEth.String()
	}

	if err := ValidateRate(f.Rate); err != nil {
		errs = append(errs, fmt.Errorf("%s.rate: %w", name, err))
	}
	if err := ValidateAlgorithm(f.Algorithm); err != nil {
		errs = append(errs, fmt.Errorf("%s.algorithm: %w", name, err))
	}
	if _, err := protocol.ParseDialect(f.Protocol); err != nil {
		errs = append(errs, fmt.Errorf("%s.protocol: %w", name, err))
	}
	errs = append(errs, validateAddresses(name, f.Addresses)...)

	return errs
}

func ValidateRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("rate %v out of [0,1]", rate)
	}
	return nil
}

func ValidateAlgorithm(alg string) error {
	switch entity.FeeAlgorithm(alg) {
	case entity.FeeAlgorithmDeterministic, entity.FeeAlgorithmProbabilistic:
		return nil
	}
	return fmt.Errorf("unknown algorithm %q", alg)
}

func validateAddresses(name string, addrs []string) []error {
	var errs []error
	for _, a := range addrs {
		if !strings.HasPrefix(a, "tcp://") && !strings.HasPrefix(a, "tls://") {
			errs = append(errs, fmt.Errorf("%s: address %q must start with tcp:// or tls://", name, a))
		}
	}
	return errs
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return constants.DefaultWorkerName
	}
	return strings.ReplaceAll(h, constants.WorkerSeparator, "-")
}

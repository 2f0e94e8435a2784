package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/config"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/acceptor"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/feepool"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/kafka_consumer/settings"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/postgres"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/reporter"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/ristretto"
	"github.com/dnsoftware/mpm-mining-proxy/internal/adapter/upstream"
	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/protocol"
	"github.com/dnsoftware/mpm-mining-proxy/internal/usecase/ledger"
	"github.com/dnsoftware/mpm-mining-proxy/internal/usecase/session"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/kafka_reader"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/kafka_writer"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/obfs"
	otelpkg "github.com/dnsoftware/mpm-mining-proxy/pkg/otel"
)

// Run запуск прокси до сигнала завершения или отмены контекста.
// Логгер должен быть инициализирован до вызова.
func Run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Log()

	// Инициализация трассировщика
	shutdownTracer, err := initTracer(ctx, cfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			log.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	store := config.NewStore(cfg)

	// Ristretto кэш недоступных пулов, общий для основного пула и пулов комиссий
	dead, err := ristretto.NewRistrettoUpstreamCache(constants.DeadUpstreamTTL)
	if err != nil {
		return fmt.Errorf("upstream cache: %w", err)
	}
	defer dead.Close()

	poolResolver, err := upstream.NewResolver(resolverConfig(cfg, cfg.Pool.Addresses), dead, log)
	if err != nil {
		return fmt.Errorf("pool resolver: %w", err)
	}

	// Учет воркеров
	sinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	workerLedger := ledger.NewLedger(constants.ReportChanSize, log, sinks...)

	workerLedger.Start(ctx)

	var wg sync.WaitGroup

	// Пулы комиссий
	proxyFee, err := startFeeClient(ctx, &wg, "proxy_fee", cfg.Fee, cfg, dead, log)
	if err != nil {
		return err
	}
	devFee, err := startFeeClient(ctx, &wg, "dev_fee", cfg.DevFee, cfg, dead, log)
	if err != nil {
		return err
	}

	// Изменение ставок комиссий из процесса управления
	if len(cfg.SettingsTopic.Brokers) > 0 {
		reader, err := kafka_reader.NewKafkaReader(kafka_reader.Config{
			Brokers:            cfg.SettingsTopic.Brokers,
			Group:              cfg.SettingsTopic.Group,
			Topic:              cfg.SettingsTopic.Topic,
			AutoCommitEnable:   true,
			AutoCommitInterval: cfg.SettingsTopic.AutoCommitInterval,
		}, log)
		if err != nil {
			return fmt.Errorf("settings reader: %w", err)
		}
		consumer := settings.NewSettingsConsumer(reader, store, log)
		consumer.StartConsume()
		defer consumer.Close()
	}

	handler := &sessionHandler{
		proxyName:      cfg.App.Name,
		reportInterval: cfg.Ledger.Interval.Std(),
		store:          store,
		resolver:       poolResolver,
		ledger:         workerLedger,
		proxyFee:       proxyFee,
		devFee:         devFee,
		logger:         log,
	}

	acceptors, err := listen(cfg, handler, log)
	if err != nil {
		return err
	}
	for _, a := range acceptors {
		wg.Add(1)
		go func(a *acceptor.Acceptor) {
			defer wg.Done()
			if err := a.Serve(ctx); err != nil {
				log.Error("acceptor stopped with error", zap.Error(err))
			}
		}(a)
	}

	log.Info("mining proxy started",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.Int("acceptors", len(acceptors)),
		zap.Strings("pools", cfg.Pool.Addresses),
		zap.Bool("proxy_fee", proxyFee != nil),
		zap.Bool("dev_fee", devFee != nil),
	)

	<-ctx.Done()
	log.Info("Shutting down service...")

	wg.Wait()
	workerLedger.Close()

	return nil
}

// initTracer без коллектора в режиме debug спаны выводятся в w, в production трассировка отключена
func initTracer(ctx context.Context, cfg config.Config, w io.Writer) (otelpkg.Shutdown, error) {
	if cfg.Otel.Endpoint == "" && cfg.App.Env == logger.LogLevelDebug {
		return otelpkg.InitSimpleTracer(cfg.App.Name, w)
	}
	return otelpkg.InitTracer(ctx, otelpkg.Config{
		ServiceName:        cfg.App.Name,
		CollectorEndpoint:  cfg.Otel.Endpoint,
		BatchTimeout:       cfg.Otel.BatchTimeout.Std(),
		MaxExportBatchSize: cfg.Otel.MaxExportBatchSize,
		MaxQueueSize:       cfg.Otel.MaxQueueSize,
	})
}

// listen открывает все включенные порты, ошибка привязки любого из них прерывает запуск
func listen(cfg config.Config, handler acceptor.Handler, log logger.MPMLogger) ([]*acceptor.Acceptor, error) {
	base := acceptor.Config{
		Host:         cfg.Proxy.Host,
		MaxSessions:  cfg.Proxy.MaxSessions,
		MaxFrameSize: constants.MaxFrameSize,
		WriteTimeout: cfg.Proxy.WriteTimeout.Std(),
	}

	tcp := base
	tcp.Transport = acceptor.TransportTCP
	tcp.Port = cfg.Proxy.TCPPort

	tlsCfg := base
	tlsCfg.Transport = acceptor.TransportTLS
	tlsCfg.Port = cfg.Proxy.TLSPort
	tlsCfg.CertFile = cfg.Proxy.Cert
	tlsCfg.KeyFile = cfg.Proxy.Key

	enc := base
	enc.Transport = acceptor.TransportEncrypt
	enc.Port = cfg.Proxy.EncryptPort
	if enc.Port != 0 {
		cipher, err := obfs.NewFromHex(cfg.Proxy.EncryptKey, cfg.Proxy.EncryptIV)
		if err != nil {
			return nil, err
		}
		enc.Cipher = cipher
	}

	var acceptors []*acceptor.Acceptor
	for _, c := range []acceptor.Config{tcp, tlsCfg, enc} {
		a, err := acceptor.Listen(c, handler, log)
		if err != nil {
			return nil, errors.Join(err, closeAll(acceptors))
		}
		if a != nil {
			acceptors = append(acceptors, a)
		}
	}
	if len(acceptors) == 0 {
		return nil, errors.New("no acceptor enabled")
	}

	return acceptors, nil
}

func closeAll(acceptors []*acceptor.Acceptor) error {
	var errs []error
	for _, a := range acceptors {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}

func resolverConfig(cfg config.Config, addresses []string) upstream.Config {
	return upstream.Config{
		Addresses:          addresses,
		DialTimeout:        cfg.Pool.DialTimeout.Std(),
		InsecureSkipVerify: cfg.Pool.InsecureSkipVerify,
		Socks5:             cfg.Pool.Socks5,
		Socks5User:         cfg.Pool.Socks5User,
		Socks5Pass:         cfg.Pool.Socks5Pass,
		MaxFrameSize:       constants.MaxFrameSize,
		WriteTimeout:       cfg.Proxy.WriteTimeout.Std(),
	}
}

// startFeeClient подключение к пулу комиссии в отдельной горутине, nil если комиссия выключена
func startFeeClient(ctx context.Context, wg *sync.WaitGroup, name string, fee config.FeeConfig, cfg config.Config,
	dead upstream.DeadCache, log logger.MPMLogger) (*session.FeeRoute, error) {

	if !fee.Enabled() {
		return nil, nil
	}

	dialect, err := protocol.ParseDialect(fee.Protocol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	resolver, err := upstream.NewResolver(resolverConfig(cfg, fee.Addresses), dead, log)
	if err != nil {
		return nil, fmt.Errorf("%s resolver: %w", name, err)
	}

	client := feepool.NewClient(feepool.Config{
		Name:       name,
		Dialect:    dialect,
		Wallet:     fee.Wallet,
		Worker:     fee.WorkerName,
		Password:   fee.Password,
		Agent:      cfg.App.Name + "/" + cfg.App.Version,
		MaxRetries: uint64(fee.MaxRetries),
	}, resolver, log)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := client.Run(ctx); err != nil {
			log.Error("fee pool client stopped", zap.String("fee", name), zap.Error(err))
		}
	}()

	return &session.FeeRoute{
		Upstream: client,
		Wallet:   fee.Wallet,
		Worker:   fee.WorkerName,
	}, nil
}

// buildSinks приемники учета по заполненным секциям ledger
func buildSinks(ctx context.Context, cfg config.Config, log logger.MPMLogger) ([]ledger.Sink, error) {
	var sinks []ledger.Sink

	if cfg.Ledger.ReportAddress != "" {
		sinks = append(sinks, reporter.NewTCPSink(cfg.Ledger.ReportAddress, cfg.Proxy.WriteTimeout.Std()))
	}

	if len(cfg.Ledger.Kafka.Brokers) > 0 {
		writer, err := kafka_writer.NewKafkaWriter(kafka_writer.Config{
			Brokers: cfg.Ledger.Kafka.Brokers,
			Topic:   cfg.Ledger.Kafka.Topic,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("ledger kafka writer: %w", err)
		}
		writer.Start()
		sinks = append(sinks, reporter.NewKafkaSink(writer))
	}

	if cfg.Ledger.Postgres.DSN != "" {
		storage, err := postgres.NewPostgresWorkerStorage(ctx, cfg.Ledger.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("ledger postgres: %w", err)
		}
		sinks = append(sinks, reporter.NewPostgresSink(storage))
	}

	if len(sinks) == 0 {
		log.Warn("no ledger sinks configured, worker reports are discarded")
	}

	return sinks, nil
}

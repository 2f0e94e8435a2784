// Package acceptor прием соединений майнеров на TCP, TLS и обфусцированном портах
package acceptor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

const (
	TransportTCP     = "tcp"
	TransportTLS     = "tls"
	TransportEncrypt = "encrypt"
)

// Handler обслуживание одного соединения майнера, возвращается по завершении сессии
type Handler interface {
	ServeConn(ctx context.Context, miner *linecodec.Conn, transport string)
}

// HandlerFunc функция как Handler
type HandlerFunc func(ctx context.Context, miner *linecodec.Conn, transport string)

func (f HandlerFunc) ServeConn(ctx context.Context, miner *linecodec.Conn, transport string) {
	f(ctx, miner, transport)
}

type Config struct {
	Transport    string
	Host         string
	Port         int                 // 0 - акцептор выключен
	CertFile     string              // для tls
	KeyFile      string              // для tls
	Cipher       linecodec.Transform // для encrypt
	MaxSessions  int                 // одновременных сессий на акцептор
	MaxFrameSize int
	WriteTimeout time.Duration
}

type Acceptor struct {
	cfg      Config
	listener net.Listener
	handler  Handler
	logger   logger.MPMLogger
}

// Listen открывает порт. Для Port 0 возвращает nil без ошибки: транспорт выключен.
// Ошибка привязки порта фатальна для запуска.
func Listen(cfg Config, handler Handler, log logger.MPMLogger) (*Acceptor, error) {
	if cfg.Port == 0 {
		return nil, nil
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	var (
		ln  net.Listener
		err error
	)
	switch cfg.Transport {
	case TransportTCP:
		ln, err = net.Listen("tcp", addr)
	case TransportTLS:
		cert, cerr := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if cerr != nil {
			return nil, fmt.Errorf("load tls key pair: %w", cerr)
		}
		ln, err = tls.Listen("tcp", addr, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	case TransportEncrypt:
		if cfg.Cipher == nil {
			return nil, fmt.Errorf("encrypt acceptor without cipher")
		}
		ln, err = net.Listen("tcp", addr)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", cfg.Transport, addr, err)
	}

	return newAcceptor(cfg, ln, handler, log), nil
}

func newAcceptor(cfg Config, ln net.Listener, handler Handler, log logger.MPMLogger) *Acceptor {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = constants.DefaultMaxSessions
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = constants.MaxFrameSize
	}

	return &Acceptor{
		cfg:      cfg,
		listener: ln,
		handler:  handler,
		logger:   log.With(zap.String("transport", cfg.Transport), zap.String("listen", ln.Addr().String())),
	}
}

func (a *Acceptor) Addr() net.Addr {
	return a.listener.Addr()
}

// Close закрыть порт без запуска Serve
func (a *Acceptor) Close() error {
	return a.listener.Close()
}

// Serve цикл приема соединений до отмены контекста, затем ожидание завершения всех сессий
func (a *Acceptor) Serve(ctx context.Context) error {
	swg := sizedwaitgroup.New(a.cfg.MaxSessions)

	go func() {
		<-ctx.Done()
		_ = a.listener.Close()
	}()

	a.logger.Info("acceptor started", zap.Int("max_sessions", a.cfg.MaxSessions))

	var serveErr error
	for {
		// ждем свободный слот до приема следующего соединения
		if err := swg.AddWithContext(ctx); err != nil {
			break
		}

		conn, err := a.listener.Accept()
		if err != nil {
			swg.Done()
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				a.logger.Warn("accept timeout", zap.Error(err))
				time.Sleep(50 * time.Millisecond)
				continue
			}
			serveErr = fmt.Errorf("accept: %w", err)
			break
		}

		go func() {
			defer swg.Done()
			miner := linecodec.NewConn(conn, linecodec.Config{
				MaxFrameSize: a.cfg.MaxFrameSize,
				WriteTimeout: a.cfg.WriteTimeout,
				Transform:    a.cfg.Cipher,
			})
			defer miner.Close()

			a.handler.ServeConn(ctx, miner, a.cfg.Transport)
		}()
	}

	_ = a.listener.Close()
	swg.Wait()
	a.logger.Info("acceptor stopped")

	return serveErr
}

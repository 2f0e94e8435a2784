// Package feepool владелец соединения с пулом комиссии: авторизация, раздача заданий
// сессиям и единственная очередь отправки шар
package feepool

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/internal/protocol"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

var ErrLoginRejected = errors.New("fee pool rejected login")

// Dialer подключение к пулу (upstream.Resolver)
type Dialer interface {
	Dial(ctx context.Context) (*linecodec.Conn, string, error)
}

type Config struct {
	Name          string           // proxy_fee / dev_fee, для логов
	Dialect       protocol.Dialect // протокол пула комиссии
	Wallet        string
	Worker        string
	Password      string
	Agent         string        // агент для mining.subscribe NiceHash
	MaxRetries    uint64        // бюджет переподключений подряд
	RetryInterval time.Duration // начальный интервал между переподключениями
	QueueSize     int           // очередь шар на отправку
}

// Client владеет сокетом пула комиссии. Сессии только ставят шары в очередь
// и получают задания через подписку.
type Client struct {
	cfg    Config
	dialer Dialer
	jobs   *Broadcaster
	submit chan []byte
	logger logger.MPMLogger

	accepted atomic.Uint64
	rejected atomic.Uint64
}

func NewClient(cfg Config, dialer Dialer, logger logger.MPMLogger) *Client {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = constants.FeeSubmitQueueSize
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}

	return &Client{
		cfg:    cfg,
		dialer: dialer,
		jobs:   NewBroadcaster(constants.FeeJobSubscription),
		submit: make(chan []byte, cfg.QueueSize),
		logger: logger.With(zap.String("fee", cfg.Name), zap.String("wallet", cfg.Wallet)),
	}
}

// Submit неблокирующая постановка шары в очередь, false - очередь переполнена
func (c *Client) Submit(frame []byte) bool {
	select {
	case c.submit <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) Subscribe() (<-chan entity.Job, func()) {
	return c.jobs.Subscribe()
}

// Stats принятые и отклоненные пулом комиссии шары
func (c *Client) Stats() (accepted uint64, rejected uint64) {
	return c.accepted.Load(), c.rejected.Load()
}

// Run держит соединение до отмены контекста. При обрыве переподключается с экспоненциальной
// задержкой, после MaxRetries неудач подряд возвращает последнюю ошибку.
func (c *Client) Run(ctx context.Context) error {
	defer c.jobs.Close()
	defer func() {
		accepted, rejected := c.Stats()
		c.logger.Info("fee pool stopped", zap.Uint64("accepted", accepted), zap.Uint64("rejected", rejected))
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)

	op := func() error {
		err := c.serve(ctx, policy.Reset)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		accepted, rejected := c.Stats()
		c.logger.Warn("fee pool connection lost, reconnecting", zap.Error(err), zap.Duration("retry_in", next),
			zap.Uint64("accepted", accepted), zap.Uint64("rejected", rejected))
	}

	err := backoff.RetryNotify(op, policy, notify)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// serve одно подключение: авторизация, затем чтение заданий и отправка шар до ошибки
func (c *Client) serve(ctx context.Context, connected func()) error {
	conn, addr, err := c.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	frames, err := protocol.LoginFrames(c.cfg.Dialect, c.cfg.Wallet, c.cfg.Worker, c.cfg.Password, c.cfg.Agent,
		constants.LoginID, constants.GetWorkID)
	if err != nil {
		return backoff.Permanent(err)
	}
	for _, f := range frames {
		if err := conn.WriteFrame(f); err != nil {
			return fmt.Errorf("write login: %w", err)
		}
	}
	connected()
	c.logger.Info("fee pool connected", zap.String("address", addr), zap.String("protocol", c.cfg.Dialect.String()))

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	writeErr := make(chan error, 1)
	go func() {
		defer cancel()
		writeErr <- c.writeLoop(connCtx, conn)
	}()

	readErr := c.readLoop(conn)
	cancel()
	if werr := <-writeErr; werr != nil {
		readErr = werr
	}

	return readErr
}

func (c *Client) writeLoop(ctx context.Context, conn *linecodec.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame := <-c.submit:
			if err := conn.WriteFrame(frame); err != nil {
				return fmt.Errorf("write submit: %w", err)
			}
		}
	}
}

func (c *Client) readLoop(conn *linecodec.Conn) error {
	var difficulty float64
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			return err
		}

		msg, err := protocol.ParsePoolMessage(frame)
		if err != nil {
			c.logger.Warn("fee pool sent malformed frame", zap.Error(err))
			continue
		}

		switch msg.Kind {
		case protocol.PoolSetDifficulty:
			difficulty = msg.Difficulty
		case protocol.PoolJob:
			job := msg.Job
			if job.Difficulty == 0 {
				job.Difficulty = difficulty
			}
			c.jobs.Publish(job)
		case protocol.PoolAck:
			if !msg.HasID {
				continue
			}
			switch msg.ID {
			case constants.LoginID:
				if !msg.Accepted {
					return ErrLoginRejected
				}
			case constants.FeeSubmitID:
				if msg.Accepted {
					c.accepted.Add(1)
				} else {
					c.rejected.Add(1)
					c.logger.Debug("fee share rejected", zap.ByteString("response", frame))
				}
			}
		}
	}
}

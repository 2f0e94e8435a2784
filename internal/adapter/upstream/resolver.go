// Package upstream подключение к пулу: перебор адресов, TLS и SOCKS5
package upstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/abesuite/go-socks/socks"
	"go.uber.org/zap"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

var ErrNoUpstream = errors.New("no upstream available")

const (
	schemeTCP = "tcp://"
	schemeTLS = "tls://"
)

// DeadCache адреса, недавно отказавшие в подключении (ristretto.RistrettoUpstreamCache)
type DeadCache interface {
	MarkDead(addr string)
	MarkAlive(addr string)
	IsDead(addr string) bool
}

type Config struct {
	Addresses          []string      // tcp://host:port или tls://host:port, в порядке приоритета
	DialTimeout        time.Duration // таймаут подключения к одному адресу
	InsecureSkipVerify bool          // не проверять сертификат пула
	Socks5             string        // host:port SOCKS5 прокси, пусто - напрямую
	Socks5User         string
	Socks5Pass         string
	MaxFrameSize       int
	WriteTimeout       time.Duration
}

type Resolver struct {
	cfg    Config
	dead   DeadCache
	logger logger.MPMLogger
}

// NewResolver dead может быть nil, тогда недоступные адреса не запоминаются
func NewResolver(cfg Config, dead DeadCache, logger logger.MPMLogger) (*Resolver, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("upstream: empty address list")
	}
	for _, addr := range cfg.Addresses {
		if _, _, err := splitAddress(addr); err != nil {
			return nil, err
		}
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = constants.DefaultDialTimeout
	}
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = constants.MaxFrameSize
	}

	return &Resolver{
		cfg:    cfg,
		dead:   dead,
		logger: logger,
	}, nil
}

// Dial первый доступный адрес из списка. Адреса, помеченные недоступными, пропускаются,
// пока есть другие кандидаты. Если подключиться не удалось ни к одному - ErrNoUpstream
func (r *Resolver) Dial(ctx context.Context) (*linecodec.Conn, string, error) {
	candidates := make([]string, 0, len(r.cfg.Addresses))
	var skipped []string
	for _, addr := range r.cfg.Addresses {
		if r.dead != nil && r.dead.IsDead(addr) {
			skipped = append(skipped, addr)
			continue
		}
		candidates = append(candidates, addr)
	}
	// все адреса помечены - пробуем их все заново
	if len(candidates) == 0 {
		candidates = skipped
	}

	var errs []error
	for _, addr := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		conn, err := r.dialOne(ctx, addr)
		if err != nil {
			r.logger.Warn("upstream dial failed", zap.String("address", addr), zap.Error(err))
			if r.dead != nil {
				r.dead.MarkDead(addr)
			}
			errs = append(errs, err)
			continue
		}
		if r.dead != nil {
			r.dead.MarkAlive(addr)
		}

		return linecodec.NewConn(conn, linecodec.Config{
			MaxFrameSize: r.cfg.MaxFrameSize,
			WriteTimeout: r.cfg.WriteTimeout,
		}), addr, nil
	}

	return nil, "", fmt.Errorf("%w: %w", ErrNoUpstream, errors.Join(errs...))
}

func (r *Resolver) dialOne(ctx context.Context, addr string) (net.Conn, error) {
	secure, hostport, err := splitAddress(addr)
	if err != nil {
		return nil, err
	}

	var conn net.Conn
	if r.cfg.Socks5 != "" {
		proxy := &socks.Proxy{
			Addr:     r.cfg.Socks5,
			Username: r.cfg.Socks5User,
			Password: r.cfg.Socks5Pass,
		}
		conn, err = proxy.DialTimeout("tcp", hostport, r.cfg.DialTimeout)
	} else {
		d := net.Dialer{Timeout: r.cfg.DialTimeout}
		conn, err = d.DialContext(ctx, "tcp", hostport)
	}
	if err != nil {
		return nil, err
	}

	if !secure {
		return conn, nil
	}

	host, _, _ := net.SplitHostPort(hostport)
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: r.cfg.InsecureSkipVerify,
	})
	hsCtx, cancel := context.WithTimeout(ctx, r.cfg.DialTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(hsCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

// splitAddress схема и host:port адреса пула, адрес без схемы считается tcp
func splitAddress(addr string) (bool, string, error) {
	secure := false
	hostport := addr
	switch {
	case strings.HasPrefix(addr, schemeTLS):
		secure = true
		hostport = strings.TrimPrefix(addr, schemeTLS)
	case strings.HasPrefix(addr, schemeTCP):
		hostport = strings.TrimPrefix(addr, schemeTCP)
	}
	if _, _, err := net.SplitHostPort(hostport); err != nil {
		return false, "", fmt.Errorf("upstream: bad address %q: %w", addr, err)
	}

	return secure, hostport, nil
}

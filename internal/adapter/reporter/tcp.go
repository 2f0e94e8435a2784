// Package reporter приемники снимков учета воркеров
package reporter

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dnsoftware/mpm-mining-proxy/internal/dto"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

// TCPSink снимки JSON строками в процесс управления по loopback TCP.
// После ошибки соединение закрывается и переоткрывается при следующей отправке.
type TCPSink struct {
	addr    string
	timeout time.Duration
	mu      sync.Mutex
	conn    net.Conn
}

func NewTCPSink(addr string, timeout time.Duration) *TCPSink {
	return &TCPSink{addr: addr, timeout: timeout}
}

func (s *TCPSink) Name() string {
	return "tcp " + s.addr
}

func (s *TCPSink) Send(ctx context.Context, report dto.WorkerReport) error {
	line, err := jsonx.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		d := net.Dialer{Timeout: s.timeout}
		conn, err := d.DialContext(ctx, "tcp", s.addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", s.addr, err)
		}
		s.conn = conn
	}

	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	if _, err := s.conn.Write(line); err != nil {
		_ = s.conn.Close()
		s.conn = nil
		return fmt.Errorf("write %s: %w", s.addr, err)
	}
	return nil
}

func (s *TCPSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

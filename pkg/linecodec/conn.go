// Package linecodec разбиение потока байт на строки протокола (разделитель '\n')
// с необязательным обратимым преобразованием каждой строки (обфускация/шифрование)
package linecodec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

var (
	ErrFrameTooLong = errors.New("frame too long")
	ErrPeerClosed   = errors.New("peer closed connection")
	ErrBadFrame     = errors.New("bad frame")
)

// Transform обратимое преобразование одной строки, применяется ниже уровня разбиения на строки
type Transform interface {
	Decode(line []byte) ([]byte, error)
	Encode(frame []byte) ([]byte, error)
}

type Config struct {
	MaxFrameSize int           // максимальная длина строки в байтах
	WriteTimeout time.Duration // дедлайн записи, 0 - без дедлайна
	Transform    Transform     // nil - строки передаются как есть
}

// Conn построчный обмен поверх net.Conn
// ReadFrame и WriteFrame можно вызывать из разных горутин, но каждый - только из одной
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
	cfg    Config
}

func NewConn(conn net.Conn, cfg Config) *Conn {
	if cfg.MaxFrameSize <= 0 {
		cfg.MaxFrameSize = 64 * 1024
	}
	return &Conn{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, 4096),
		cfg:    cfg,
	}
}

// ReadFrame читает следующую непустую строку без завершающего '\n'
// io.EOF означает, что соединение закрыто удаленной стороной
func (c *Conn) ReadFrame() ([]byte, error) {
	for {
		line, err := c.readLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if c.cfg.Transform == nil {
			return line, nil
		}
		frame, err := c.cfg.Transform.Decode(line)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
		}
		return frame, nil
	}
}

func (c *Conn) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := c.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return buf, nil
			}
			return nil, err
		}
		if len(buf)+len(chunk) > c.cfg.MaxFrameSize {
			return nil, ErrFrameTooLong
		}
		if !isPrefix && buf == nil {
			out := make([]byte, len(chunk))
			copy(out, chunk)
			return out, nil
		}
		buf = append(buf, chunk...)
		if !isPrefix {
			return buf, nil
		}
	}
}

// WriteFrame пишет строку и завершающий '\n'
// запись 0 байт считается отключением удаленной стороны
func (c *Conn) WriteFrame(frame []byte) error {
	payload := frame
	if c.cfg.Transform != nil {
		encoded, err := c.cfg.Transform.Encode(frame)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		payload = encoded
	}

	out := make([]byte, 0, len(payload)+1)
	out = append(out, payload...)
	out = append(out, '\n')

	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	n, err := c.conn.Write(out)
	if n == 0 {
		if err == nil {
			err = ErrPeerClosed
		}
		return fmt.Errorf("%w: %v", ErrPeerClosed, err)
	}
	if err != nil {
		return err
	}

	return nil
}

func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

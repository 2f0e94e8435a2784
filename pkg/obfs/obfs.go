// Package obfs преобразование строк для шифрованного транспорта:
// каждая строка шифруется ChaCha20 (ключ 32 байта, IV 12 байт) и кодируется в base64.
//
// Это только обфускация трафика от сигнатурного DPI, а не защита содержимого.
// Ключ и IV общие для всех строк, поэтому ключевой поток повторяется: XOR двух строк
// канала дает XOR исходных строк, одинаковые строки шифруются одинаково.
// Формат строки зафиксирован клиентами шифрованного порта. Конфиденциальность
// обеспечивает TLS порт.
package obfs

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// Cipher реализует linecodec.Transform
// поток шифра создается заново для каждой строки, поэтому строки независимы друг от друга
type Cipher struct {
	key []byte
	iv  []byte
}

func New(key []byte, iv []byte) (*Cipher, error) {
	if len(key) != chacha20.KeySize {
		return nil, fmt.Errorf("obfs: key must be %d bytes, got %d", chacha20.KeySize, len(key))
	}
	if len(iv) != chacha20.NonceSize {
		return nil, fmt.Errorf("obfs: iv must be %d bytes, got %d", chacha20.NonceSize, len(iv))
	}
	return &Cipher{
		key: append([]byte(nil), key...),
		iv:  append([]byte(nil), iv...),
	}, nil
}

// NewFromHex ключ и IV в hex, как они задаются в конфиге
func NewFromHex(keyHex string, ivHex string) (*Cipher, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("obfs: bad key: %w", err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, fmt.Errorf("obfs: bad iv: %w", err)
	}
	return New(key, iv)
}

func (c *Cipher) xor(data []byte) ([]byte, error) {
	stream, err := chacha20.NewUnauthenticatedCipher(c.key, c.iv)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	stream.XORKeyStream(out, data)
	return out, nil
}

func (c *Cipher) Encode(frame []byte) ([]byte, error) {
	sealed, err := c.xor(frame)
	if err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

func (c *Cipher) Decode(line []byte) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(line)))
	n, err := base64.StdEncoding.Decode(sealed, line)
	if err != nil {
		return nil, fmt.Errorf("obfs: base64: %w", err)
	}
	return c.xor(sealed[:n])
}

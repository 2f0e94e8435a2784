package upstream

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/pkg/linecodec"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/logger"
)

type mapCache struct {
	mu   sync.Mutex
	dead map[string]bool
}

func newMapCache() *mapCache {
	return &mapCache{dead: make(map[string]bool)}
}

func (c *mapCache) MarkDead(addr string)  { c.mu.Lock(); c.dead[addr] = true; c.mu.Unlock() }
func (c *mapCache) MarkAlive(addr string) { c.mu.Lock(); delete(c.dead, addr); c.mu.Unlock() }
func (c *mapCache) IsDead(addr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead[addr]
}

// echoServer отвечает каждой строкой обратно
func echoServer(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				lc := linecodec.NewConn(c, linecodec.Config{})
				for {
					frame, err := lc.ReadFrame()
					if err != nil {
						return
					}
					if err := lc.WriteFrame(frame); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
}

func closedAddr(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestResolverFailover(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	echoServer(t, ln)

	down := "tcp://" + closedAddr(t)
	up := "tcp://" + ln.Addr().String()
	cache := newMapCache()

	r, err := NewResolver(Config{Addresses: []string{down, up}, DialTimeout: time.Second}, cache, logger.Nop())
	require.NoError(t, err)

	conn, addr, err := r.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, up, addr)
	assert.True(t, cache.IsDead(down))

	require.NoError(t, conn.WriteFrame([]byte(`{"id":1}`)))
	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, string(frame))
}

func TestResolverNoUpstream(t *testing.T) {
	r, err := NewResolver(Config{Addresses: []string{"tcp://" + closedAddr(t)}, DialTimeout: time.Second}, nil, logger.Nop())
	require.NoError(t, err)

	_, _, err = r.Dial(context.Background())
	require.ErrorIs(t, err, ErrNoUpstream)
}

func TestResolverRetriesDeadWhenNothingElse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	echoServer(t, ln)

	up := "tcp://" + ln.Addr().String()
	cache := newMapCache()
	cache.MarkDead(up)

	r, err := NewResolver(Config{Addresses: []string{up}}, cache, logger.Nop())
	require.NoError(t, err)

	conn, _, err := r.Dial(context.Background())
	require.NoError(t, err)
	conn.Close()
	assert.False(t, cache.IsDead(up))
}

func TestResolverBadAddress(t *testing.T) {
	_, err := NewResolver(Config{}, nil, logger.Nop())
	require.Error(t, err)

	_, err = NewResolver(Config{Addresses: []string{"tcp://no-port"}}, nil, logger.Nop())
	require.Error(t, err)
}

func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

func TestResolverTLS(t *testing.T) {
	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{Certificates: []tls.Certificate{selfSignedCert(t)}})
	require.NoError(t, err)
	defer ln.Close()
	echoServer(t, ln)

	addr := "tls://" + ln.Addr().String()

	strict, err := NewResolver(Config{Addresses: []string{addr}, DialTimeout: time.Second}, nil, logger.Nop())
	require.NoError(t, err)
	_, _, err = strict.Dial(context.Background())
	require.ErrorIs(t, err, ErrNoUpstream)

	r, err := NewResolver(Config{Addresses: []string{addr}, DialTimeout: time.Second, InsecureSkipVerify: true}, nil, logger.Nop())
	require.NoError(t, err)
	conn, _, err := r.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteFrame([]byte(`{"id":2}`)))
	frame, err := conn.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2}`, string(frame))
}

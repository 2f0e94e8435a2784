package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// RistrettoUpstreamCache адреса пулов, недавно отказавшие в подключении.
// Запись живет ttl, после чего адрес снова участвует в переборе.
type RistrettoUpstreamCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewRistrettoUpstreamCache(ttl time.Duration) (*RistrettoUpstreamCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,     // Количество счётчиков для элементов
		MaxCost:     1 << 12, // Максимальное число адресов
		BufferItems: 64,      // Количество буферных элементов
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoUpstreamCache{
		cache: cache,
		ttl:   ttl,
	}, nil
}

// MarkDead пометить адрес недоступным
func (p *RistrettoUpstreamCache) MarkDead(addr string) {
	p.cache.SetWithTTL(addr, time.Now().Unix(), 1, p.ttl)
	p.cache.Wait()
}

// MarkAlive снять пометку после успешного подключения
func (p *RistrettoUpstreamCache) MarkAlive(addr string) {
	p.cache.Del(addr)
}

// IsDead адрес помечен недоступным и ttl еще не истек
func (p *RistrettoUpstreamCache) IsDead(addr string) bool {
	_, found := p.cache.Get(addr)
	return found
}

func (p *RistrettoUpstreamCache) Close() {
	p.cache.Close()
}

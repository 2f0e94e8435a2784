package feepool

import (
	"sync"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

// Broadcaster раздача заданий пула комиссии всем подписанным сессиям.
// Медленный подписчик пропускает задание, публикация никогда не блокируется.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]chan entity.Job
	next   uint64
	size   int
	closed bool
}

func NewBroadcaster(size int) *Broadcaster {
	return &Broadcaster{
		subs: make(map[uint64]chan entity.Job),
		size: size,
	}
}

// Subscribe канал заданий и функция отписки, после отписки канал закрыт
func (b *Broadcaster) Subscribe() (<-chan entity.Job, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan entity.Job, b.size)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish возвращает число подписчиков, получивших задание
func (b *Broadcaster) Publish(job entity.Job) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := 0
	for _, ch := range b.subs {
		select {
		case ch <- job:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close закрывает каналы всех подписчиков
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

package session

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

var destinations = []entity.Destination{
	entity.DestinationOrdinary,
	entity.DestinationProxyFee,
	entity.DestinationDevFee,
}

// RoutingTable куда было отправлено задание с данным id.
// Каждое множество ограничено по размеру, старые id вытесняются.
// Один id всегда находится не более чем в одном множестве.
type RoutingTable struct {
	sets map[entity.Destination]*lru.Cache
}

func NewRoutingTable(size int) (*RoutingTable, error) {
	t := &RoutingTable{sets: make(map[entity.Destination]*lru.Cache, len(destinations))}
	for _, d := range destinations {
		c, err := lru.New(size)
		if err != nil {
			return nil, fmt.Errorf("routing set %s: %w", d, err)
		}
		t.sets[d] = c
	}
	return t, nil
}

// Mark занести id в множество dest, удалив его из остальных
func (t *RoutingTable) Mark(id string, dest entity.Destination) {
	for d, c := range t.sets {
		if d != dest {
			c.Remove(id)
		}
	}
	t.sets[dest].Add(id, struct{}{})
}

func (t *RoutingTable) Lookup(id string) (entity.Destination, bool) {
	for _, d := range destinations {
		if t.sets[d].Contains(id) {
			return d, true
		}
	}
	return entity.DestinationOrdinary, false
}

func (t *RoutingTable) Contains(id string) bool {
	_, ok := t.Lookup(id)
	return ok
}

// Reset новая эпоха сложности, все ранее отправленные задания забываются
func (t *RoutingTable) Reset() {
	for _, c := range t.sets {
		c.Purge()
	}
}

// Len количество id во всех множествах
func (t *RoutingTable) Len() int {
	n := 0
	for _, c := range t.sets {
		n += c.Len()
	}
	return n
}

// PendingQueue очередь fee-заданий, ожидающих подмены очередного задания майнера
type PendingQueue struct {
	jobs  []entity.Job
	limit int
}

func NewPendingQueue(limit int) *PendingQueue {
	return &PendingQueue{limit: limit}
}

// Push добавление в конец, повторный id игнорируется, при переполнении вытесняется самое старое
func (q *PendingQueue) Push(job entity.Job) bool {
	for _, j := range q.jobs {
		if j.ID == job.ID {
			return false
		}
	}
	if q.limit > 0 && len(q.jobs) >= q.limit {
		q.jobs = q.jobs[1:]
	}
	q.jobs = append(q.jobs, job)
	return true
}

// Pop первое задание нужного типа, которого нет в таблице маршрутизации.
// Просмотренные неподходящие задания удаляются из очереди.
func (q *PendingQueue) Pop(kind entity.JobKind, table *RoutingTable) (entity.Job, bool) {
	for len(q.jobs) > 0 {
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		if job.Kind != kind || table.Contains(job.ID) {
			continue
		}
		return job, true
	}
	return entity.Job{}, false
}

// DropBelow удалить задания со сложностью ниже difficulty
func (q *PendingQueue) DropBelow(difficulty float64) int {
	kept := q.jobs[:0]
	dropped := 0
	for _, j := range q.jobs {
		if j.Difficulty > 0 && j.Difficulty < difficulty {
			dropped++
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
	return dropped
}

func (q *PendingQueue) Len() int {
	return len(q.jobs)
}

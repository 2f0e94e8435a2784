// Package fee выбор заданий, которые уходят в пулы комиссии
package fee

import (
	"math"
	"math/rand/v2"
)

// Selector решает, уходит ли задание с порядковым номером idx в комиссию
type Selector interface {
	Select(idx uint64) bool
}

// Deterministic каждое period-е задание, period = round(1/rate)
type Deterministic struct {
	period uint64
}

func NewDeterministic(rate float64) *Deterministic {
	if rate <= 0 || math.IsNaN(rate) {
		return &Deterministic{}
	}
	if rate > 1 {
		rate = 1
	}
	return &Deterministic{period: uint64(math.Round(1 / rate))}
}

func (d *Deterministic) Select(idx uint64) bool {
	if d.period == 0 {
		return false
	}
	return idx%d.period == 0
}

// Period 0 - комиссия отключена
func (d *Deterministic) Period() uint64 {
	return d.period
}

const drawRange = 1000

// Probabilistic случайное число из [1,1000), выбор при draw >= 1000-round(1000*rate).
// Ставка не опускается ниже minRate, поэтому комиссия не бывает нулевой.
type Probabilistic struct {
	threshold int
	rnd       *rand.Rand
}

func NewProbabilistic(rate float64, minRate float64, rnd *rand.Rand) *Probabilistic {
	if math.IsNaN(rate) || rate < minRate {
		rate = minRate
	}
	if rate > 1 {
		rate = 1
	}
	return &Probabilistic{
		threshold: drawRange - int(math.Round(drawRange*rate)),
		rnd:       rnd,
	}
}

func (p *Probabilistic) Select(idx uint64) bool {
	draw := 1 + p.rnd.IntN(drawRange-1)
	return draw >= p.threshold
}

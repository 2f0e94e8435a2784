package fee

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

type staticRates entity.FeeRates

func (r staticRates) Fee() entity.FeeRates {
	return entity.FeeRates(r)
}

// В окне из round(1/r)*k заданий выбирается ровно k
func TestDeterministicExactCount(t *testing.T) {
	for _, rate := range []float64{0.5, 0.1, 0.02, 0.01, 0.003} {
		d := NewDeterministic(rate)
		period := d.Period()
		require.NotZero(t, period)

		const k = 7
		selected := 0
		for idx := uint64(1); idx <= period*k; idx++ {
			if d.Select(idx) {
				selected++
			}
		}
		assert.Equal(t, k, selected, "rate %v", rate)
	}
}

func TestDeterministicEdgeRates(t *testing.T) {
	zero := NewDeterministic(0)
	for idx := uint64(0); idx < 1000; idx++ {
		require.False(t, zero.Select(idx))
	}

	over := NewDeterministic(3)
	assert.Equal(t, uint64(1), over.Period())
	assert.True(t, over.Select(17))
}

// При нулевой ставке вероятностный алгоритм работает по нижней границе
func TestProbabilisticFloorRate(t *testing.T) {
	const draws = 200000
	const minRate = 0.01

	p := NewProbabilistic(0, minRate, rand.New(rand.NewPCG(42, 7)))
	selected := 0
	for i := uint64(0); i < draws; i++ {
		if p.Select(i) {
			selected++
		}
	}

	// вероятность 10/999
	expected := float64(draws) * 10 / 999
	assert.InDelta(t, expected, float64(selected), expected*0.1)
	assert.NotZero(t, selected)
}

func TestProbabilisticFullRate(t *testing.T) {
	p := NewProbabilistic(1.5, 0.001, rand.New(rand.NewPCG(1, 1)))
	for i := uint64(0); i < 10000; i++ {
		require.True(t, p.Select(i))
	}
}

func TestSchedulerDevFirst(t *testing.T) {
	rates := staticRates{
		Proxy: entity.FeeRate{Enabled: true, Rate: 0.1, Algorithm: entity.FeeAlgorithmDeterministic},
		Dev:   entity.FeeRate{Enabled: true, Rate: 0.05, Algorithm: entity.FeeAlgorithmDeterministic},
	}
	s := NewScheduler(rates, 1, 2)

	assert.Equal(t, entity.DestinationDevFee, s.Decide(20))
	assert.Equal(t, entity.DestinationProxyFee, s.Decide(10))
	assert.Equal(t, entity.DestinationOrdinary, s.Decide(11))
}

func TestSchedulerDisabled(t *testing.T) {
	rates := staticRates{
		Proxy:   entity.FeeRate{Enabled: false, Rate: 1},
		Dev:     entity.FeeRate{Enabled: false, Rate: 1, Algorithm: entity.FeeAlgorithmProbabilistic},
		MinRate: 0.5,
	}
	s := NewScheduler(rates, 1, 2)

	for idx := uint64(1); idx < 1000; idx++ {
		require.Equal(t, entity.DestinationOrdinary, s.Decide(idx))
	}
}

func TestKeepRate(t *testing.T) {
	r := entity.FeeRates{
		Proxy: entity.FeeRate{Enabled: true, Rate: 0.01},
		Dev:   entity.FeeRate{Enabled: true, Rate: 0.005},
	}
	assert.InDelta(t, 0.985, r.KeepRate(), 1e-9)

	r.Dev.Enabled = false
	assert.InDelta(t, 0.99, r.KeepRate(), 1e-9)

	r.Proxy.Rate = 2
	assert.Equal(t, float64(0), r.KeepRate())
}

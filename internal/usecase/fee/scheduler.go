package fee

import (
	"math/rand/v2"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

// RateSource текущие ставки комиссий (config.Store)
type RateSource interface {
	Fee() entity.FeeRates
}

// Scheduler принимает решение по каждому заданию. Ставки перечитываются на каждом решении,
// поэтому изменение настроек применяется без переподключения майнера.
// Не потокобезопасен, принадлежит одной сессии.
type Scheduler struct {
	rates RateSource
	rnd   *rand.Rand
}

func NewScheduler(rates RateSource, seed1 uint64, seed2 uint64) *Scheduler {
	return &Scheduler{
		rates: rates,
		rnd:   rand.New(rand.NewPCG(seed1, seed2)),
	}
}

// Decide комиссия разработчика проверяется первой, затем комиссия прокси
func (s *Scheduler) Decide(idx uint64) entity.Destination {
	rates := s.rates.Fee()

	if rates.Dev.Enabled && s.selector(rates.Dev, rates.MinRate).Select(idx) {
		return entity.DestinationDevFee
	}
	if rates.Proxy.Enabled && s.selector(rates.Proxy, rates.MinRate).Select(idx) {
		return entity.DestinationProxyFee
	}

	return entity.DestinationOrdinary
}

func (s *Scheduler) selector(r entity.FeeRate, minRate float64) Selector {
	if r.Algorithm == entity.FeeAlgorithmProbabilistic {
		return NewProbabilistic(r.Rate, minRate, s.rnd)
	}
	return NewDeterministic(r.Rate)
}

package entity

type FeeAlgorithm string

const (
	FeeAlgorithmDeterministic FeeAlgorithm = "deterministic" // каждое round(1/rate)-е задание
	FeeAlgorithmProbabilistic FeeAlgorithm = "probabilistic" // случайный выбор с нижней границей ставки
)

// Destination куда уходит задание/шара
type Destination int

const (
	DestinationOrdinary Destination = iota // пул майнера
	DestinationProxyFee                    // комиссия прокси
	DestinationDevFee                      // комиссия разработчика
)

func (d Destination) String() string {
	switch d {
	case DestinationProxyFee:
		return "proxy_fee"
	case DestinationDevFee:
		return "dev_fee"
	}
	return "ordinary"
}

// FeeRate ставка одного направления комиссии
type FeeRate struct {
	Enabled   bool // есть куда отправлять (задан пул комиссии)
	Rate      float64
	Algorithm FeeAlgorithm
}

// FeeRates текущие ставки комиссий, читаются на каждом решении
type FeeRates struct {
	Proxy   FeeRate
	Dev     FeeRate
	MinRate float64 // нижняя граница ставки для вероятностного алгоритма
}

// KeepRate доля хешрейта, остающаяся у пула майнера
func (r FeeRates) KeepRate() float64 {
	keep := 1.0
	if r.Proxy.Enabled {
		keep -= r.Proxy.Rate
	}
	if r.Dev.Enabled {
		keep -= r.Dev.Rate
	}
	if keep < 0 {
		return 0
	}
	if keep > 1 {
		return 1
	}
	return keep
}

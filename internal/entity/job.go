package entity

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

type JobKind int

const (
	JobKindWork   JobKind = iota // задание ETH: {"id":..,"result":[header, seed, target, height]}
	JobKindNotify                // задание Stratum: {"method":"mining.notify","params":[job_id, ...]}
)

func (k JobKind) String() string {
	switch k {
	case JobKindWork:
		return "work"
	case JobKindNotify:
		return "notify"
	}
	return "unknown"
}

// Job задание пула, прокси его не проверяет и передает как есть
type Job struct {
	ID         string   // идентификатор задания (позиционно, первый элемент)
	Params     []string // hex строки задания
	Clean      bool     // флаг clean_jobs для mining.notify
	Kind       JobKind
	Difficulty float64 // 0 - сложность неизвестна
}

var maxTarget = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// NewWorkJob задание ETH формата [header, seed, target, (height|diff)]
func NewWorkJob(params []string) Job {
	job := Job{
		Params: append([]string(nil), params...),
		Kind:   JobKindWork,
	}
	if len(params) > 0 {
		job.ID = params[0]
	}
	job.Difficulty = WorkDifficulty(params)
	return job
}

// NewNotifyJob задание mining.notify, сложность задается отдельно через mining.set_difficulty
func NewNotifyJob(params []string, clean bool) Job {
	job := Job{
		Params: append([]string(nil), params...),
		Clean:  clean,
		Kind:   JobKindNotify,
	}
	if len(params) > 0 {
		job.ID = params[0]
	}
	return job
}

// WorkDifficulty сложность ETH задания: явное поле (4-й элемент) или вычисленная из target
func WorkDifficulty(params []string) float64 {
	if len(params) >= 4 {
		if v, ok := ParseHexUint(params[3]); ok {
			return float64(v)
		}
	}
	if len(params) >= 3 {
		return TargetDifficulty(params[2])
	}
	return 0
}

// TargetDifficulty (2^256-1)/target, 0 если target не разбирается
func TargetDifficulty(target string) float64 {
	t, ok := new(big.Int).SetString(TrimHexPrefix(target), 16)
	if !ok || t.Sign() <= 0 {
		return 0
	}
	q := new(big.Int).Quo(maxTarget, t)
	f, _ := new(big.Float).SetInt(q).Float64()
	if math.IsInf(f, 0) {
		return math.MaxFloat64
	}
	return f
}

// ParseHexUint разбор hex числа, допускается префикс 0x
func ParseHexUint(s string) (uint64, bool) {
	s = TrimHexPrefix(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func TrimHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

func FormatHexUint(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

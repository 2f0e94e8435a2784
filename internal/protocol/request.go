package protocol

import (
	"errors"
	"strings"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
)

// ErrUnparseable сообщение не разбирается ни в одну известную форму
var ErrUnparseable = errors.New("unparseable message")

// Request входящий запрос майнера, независимо от диалекта
type Request interface {
	GetID() uint64
	SetID(id uint64)
	GetMethod() string
	// GetJobID идентификатор задания из submit, false если в сообщении нет задания
	GetJobID() (string, bool)
	// GetWallet кошелек из сообщения авторизации
	GetWallet() (string, bool)
	GetWorkerName() string
	// SetWorkerName в ETH это поле worker, в Stratum - полный идентификатор wallet.worker в params[0]
	SetWorkerName(name string)
	// GetSubmitHashrate хешрейт из eth_submitHashrate/mining.hashrate
	GetSubmitHashrate() (uint64, bool)
	SetSubmitHashrate(hashrate uint64)
}

// SplitWorkerfull кошелек и имя воркера из полного имени wallet.worker
func SplitWorkerfull(workerfull string) (string, string) {
	parts := strings.SplitN(workerfull, constants.WorkerSeparator, 2)

	if len(parts) > 1 && parts[1] != "" {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func param(params []string, i int) (string, bool) {
	if i < len(params) {
		return params[i], true
	}
	return "", false
}

func hashrateParam(method string, params []string) (uint64, bool) {
	if method != MethodEthSubmitHashrate && method != MethodHashrate {
		return 0, false
	}
	p, ok := param(params, 0)
	if !ok {
		return 0, false
	}
	return entity.ParseHexUint(p)
}

func setHashrateParam(method string, params []string, hashrate uint64) {
	if method != MethodEthSubmitHashrate && method != MethodHashrate {
		return
	}
	if len(params) > 0 {
		params[0] = entity.FormatHexUint(hashrate)
	}
}

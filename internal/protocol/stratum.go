package protocol

import (
	"strings"

	"github.com/dnsoftware/mpm-mining-proxy/internal/constants"
)

// StratumRequest запрос Stratum (ETHPROXY/stratum-ethproxy)
type StratumRequest struct {
	ID      uint64   `json:"id"`
	JSONRPC string   `json:"jsonrpc,omitempty"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	Worker  string   `json:"worker,omitempty"`
}

// NiceHashRequest запрос EthereumStratum/1.0.0
type NiceHashRequest struct {
	ID     uint64   `json:"id"`
	Method string   `json:"method"`
	Params []string `json:"params"`
}

func (r *StratumRequest) GetID() uint64     { return r.ID }
func (r *StratumRequest) SetID(id uint64)   { r.ID = id }
func (r *StratumRequest) GetMethod() string { return r.Method }

// GetJobID mining.submit: [workerfull, job_id, nonce, ...]
func (r *StratumRequest) GetJobID() (string, bool) {
	return submitJobID(r.Method, r.Params)
}

func (r *StratumRequest) GetWallet() (string, bool) {
	switch r.Method {
	case MethodAuthorize:
	case MethodSubscribe:
		// в обычном stratum params[0] subscribe это агент майнера
		if p, _ := param(r.Params, 0); isAgent(p) {
			return "", false
		}
	default:
		return "", false
	}
	return loginWallet(r.Params)
}

func (r *StratumRequest) GetWorkerName() string {
	if w := strings.TrimSpace(r.Worker); w != "" {
		return w
	}
	p, _ := param(r.Params, 0)
	_, name := SplitWorkerfull(p)
	return name
}

// SetWorkerName name полный идентификатор wallet.worker
func (r *StratumRequest) SetWorkerName(name string) {
	setFullIdentity(r.Method, r.Params, name)
	if r.Worker != "" {
		_, r.Worker = SplitWorkerfull(name)
	}
}

func (r *StratumRequest) GetSubmitHashrate() (uint64, bool) {
	return hashrateParam(r.Method, r.Params)
}

func (r *StratumRequest) SetSubmitHashrate(hashrate uint64) {
	setHashrateParam(r.Method, r.Params, hashrate)
}

func (r *NiceHashRequest) GetID() uint64     { return r.ID }
func (r *NiceHashRequest) SetID(id uint64)   { r.ID = id }
func (r *NiceHashRequest) GetMethod() string { return r.Method }

func (r *NiceHashRequest) GetJobID() (string, bool) {
	return submitJobID(r.Method, r.Params)
}

// GetWallet в NiceHash кошелек приходит только в mining.authorize
func (r *NiceHashRequest) GetWallet() (string, bool) {
	if r.Method != MethodAuthorize {
		return "", false
	}
	return loginWallet(r.Params)
}

func (r *NiceHashRequest) GetWorkerName() string {
	if r.Method == MethodSubscribe {
		return ""
	}
	p, _ := param(r.Params, 0)
	_, name := SplitWorkerfull(p)
	return name
}

// SetWorkerName params[0] в mining.subscribe это агент майнера, его не трогаем
func (r *NiceHashRequest) SetWorkerName(name string) {
	if r.Method == MethodSubscribe {
		return
	}
	setFullIdentity(r.Method, r.Params, name)
}

func (r *NiceHashRequest) GetSubmitHashrate() (uint64, bool) {
	return hashrateParam(r.Method, r.Params)
}

func (r *NiceHashRequest) SetSubmitHashrate(hashrate uint64) {
	setHashrateParam(r.Method, r.Params, hashrate)
}

func submitJobID(method string, params []string) (string, bool) {
	if method != MethodSubmit {
		return "", false
	}
	id, ok := param(params, 1)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func loginWallet(params []string) (string, bool) {
	p, ok := param(params, 0)
	if !ok || p == "" {
		return "", false
	}
	wallet, _ := SplitWorkerfull(p)
	return wallet, wallet != ""
}

// isAgent строка вида "cgminer/4.10.0" или "lolMiner 1.2", в кошельке таких символов нет
func isAgent(p string) bool {
	return strings.ContainsAny(p, "/ ")
}

func setFullIdentity(method string, params []string, name string) {
	switch method {
	case MethodSubmit, MethodAuthorize, MethodSubscribe:
		if len(params) > 0 {
			params[0] = name
		}
	}
}

// WorkerKey ключ воркера wallet.worker, пустое имя заменяется на default
func WorkerKey(wallet string, worker string) string {
	if worker == "" {
		worker = constants.DefaultWorkerName
	}
	return wallet + constants.WorkerSeparator + worker
}

package protocol

import "strings"

// EthRequest запрос ETH getwork JSON-RPC
type EthRequest struct {
	ID      uint64   `json:"id"`
	JSONRPC string   `json:"jsonrpc,omitempty"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

// EthWorkerRequest запрос ETH с отдельным полем worker (claymore/ethminer)
type EthWorkerRequest struct {
	ID      uint64   `json:"id"`
	JSONRPC string   `json:"jsonrpc,omitempty"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	Worker  string   `json:"worker"`
}

func (r *EthRequest) GetID() uint64     { return r.ID }
func (r *EthRequest) SetID(id uint64)   { r.ID = id }
func (r *EthRequest) GetMethod() string { return r.Method }

func (r *EthRequest) GetJobID() (string, bool) {
	return ethJobID(r.Method, r.Params)
}

func (r *EthRequest) GetWallet() (string, bool) {
	return ethWallet(r.Method, r.Params)
}

// GetWorkerName имя воркера из суффикса params[0] или из params[1]
func (r *EthRequest) GetWorkerName() string {
	return ethWorkerName(r.Method, r.Params, "")
}

// SetWorkerName у простого ETH запроса нет места под имя воркера, используй WithWorker
func (r *EthRequest) SetWorkerName(name string) {}

func (r *EthRequest) GetSubmitHashrate() (uint64, bool) {
	return hashrateParam(r.Method, r.Params)
}

func (r *EthRequest) SetSubmitHashrate(hashrate uint64) {
	setHashrateParam(r.Method, r.Params, hashrate)
}

// WithWorker копия запроса с полем worker
func (r *EthRequest) WithWorker(name string) *EthWorkerRequest {
	return &EthWorkerRequest{
		ID:      r.ID,
		JSONRPC: r.JSONRPC,
		Method:  r.Method,
		Params:  append([]string(nil), r.Params...),
		Worker:  name,
	}
}

func (r *EthWorkerRequest) GetID() uint64     { return r.ID }
func (r *EthWorkerRequest) SetID(id uint64)   { r.ID = id }
func (r *EthWorkerRequest) GetMethod() string { return r.Method }

func (r *EthWorkerRequest) GetJobID() (string, bool) {
	return ethJobID(r.Method, r.Params)
}

func (r *EthWorkerRequest) GetWallet() (string, bool) {
	return ethWallet(r.Method, r.Params)
}

func (r *EthWorkerRequest) GetWorkerName() string {
	return ethWorkerName(r.Method, r.Params, r.Worker)
}

func (r *EthWorkerRequest) SetWorkerName(name string) { r.Worker = name }

func (r *EthWorkerRequest) GetSubmitHashrate() (uint64, bool) {
	return hashrateParam(r.Method, r.Params)
}

func (r *EthWorkerRequest) SetSubmitHashrate(hashrate uint64) {
	setHashrateParam(r.Method, r.Params, hashrate)
}

// ethJobID идентификатор задания eth_submitWork: [nonce, header, mixdigest]
func ethJobID(method string, params []string) (string, bool) {
	if method != MethodEthSubmitWork {
		return "", false
	}
	id, ok := param(params, 1)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func ethWallet(method string, params []string) (string, bool) {
	if method != MethodEthSubmitLogin {
		return "", false
	}
	p, ok := param(params, 0)
	if !ok || p == "" {
		return "", false
	}
	wallet, _ := SplitWorkerfull(p)
	return wallet, wallet != ""
}

// ethWorkerName порядок: поле worker, суффикс после точки в params[0], params[1]
func ethWorkerName(method string, params []string, worker string) string {
	if worker = strings.TrimSpace(worker); worker != "" {
		return worker
	}
	if method != MethodEthSubmitLogin {
		return ""
	}
	if p, ok := param(params, 0); ok {
		if _, name := SplitWorkerfull(p); name != "" {
			return name
		}
	}
	if p, ok := param(params, 1); ok {
		return strings.TrimSpace(p)
	}
	return ""
}

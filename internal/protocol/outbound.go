package protocol

import (
	"fmt"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

// JobResult задание в формате ETH getwork
type JobResult struct {
	ID      uint64   `json:"id"`
	JSONRPC string   `json:"jsonrpc"`
	Result  []string `json:"result"`
}

// Ack ответ true/false на запрос майнера
type Ack struct {
	ID      uint64 `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Result  bool   `json:"result"`
}

// Notify задание Stratum
type Notify struct {
	ID     *uint64       `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

func NewAck(id uint64, result bool) ([]byte, error) {
	return jsonx.Marshal(Ack{ID: id, JSONRPC: JSONRPCVersion, Result: result})
}

// RenderJob задание в виде, в котором его ждет майнер данного диалекта.
// Задание другого типа отрендерить нельзя: у getwork и notify разный набор полей.
// id используется только для getwork (ответ на eth_getWork майнера), у notify он всегда null.
func RenderJob(dialect Dialect, job entity.Job, id uint64) ([]byte, error) {
	switch job.Kind {
	case entity.JobKindWork:
		if dialect != DialectEth && dialect != DialectStratum {
			return nil, fmt.Errorf("work job for %s miner", dialect)
		}
		return jsonx.Marshal(JobResult{ID: id, JSONRPC: JSONRPCVersion, Result: job.Params})
	case entity.JobKindNotify:
		params := make([]interface{}, 0, len(job.Params)+1)
		for _, p := range job.Params {
			params = append(params, p)
		}
		params = append(params, job.Clean)
		return jsonx.Marshal(Notify{ID: nil, Method: MethodNotify, Params: params})
	}
	return nil, fmt.Errorf("unknown job kind %d", job.Kind)
}

// RestoreID подмена id в сообщении, остальные поля не меняются
func RestoreID(frame []byte, id uint64) ([]byte, error) {
	var msg map[string]jsonx.RawMessage
	if err := jsonx.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnparseable, err.Error())
	}
	rawID, err := jsonx.Marshal(id)
	if err != nil {
		return nil, err
	}
	msg["id"] = rawID
	return jsonx.Marshal(msg)
}

// LoginFrames сообщения авторизации прокси в пуле под своим идентификатором (fee-пулы)
func LoginFrames(dialect Dialect, wallet string, worker string, password string, agent string, loginID uint64, getWorkID uint64) ([][]byte, error) {
	var reqs []Request
	full := WorkerKey(wallet, worker)

	switch dialect {
	case DialectEth:
		reqs = append(reqs,
			&EthWorkerRequest{ID: loginID, JSONRPC: JSONRPCVersion, Method: MethodEthSubmitLogin, Params: []string{wallet, password}, Worker: worker},
			&EthRequest{ID: getWorkID, JSONRPC: JSONRPCVersion, Method: MethodEthGetWork, Params: []string{}},
		)
	case DialectStratum:
		reqs = append(reqs,
			&StratumRequest{ID: loginID, JSONRPC: JSONRPCVersion, Method: MethodSubscribe, Params: []string{full, password}},
			&StratumRequest{ID: loginID, JSONRPC: JSONRPCVersion, Method: MethodAuthorize, Params: []string{full, password}},
		)
	case DialectNiceHash:
		reqs = append(reqs,
			&NiceHashRequest{ID: loginID, Method: MethodSubscribe, Params: []string{agent, NiceHashProtocol}},
			&NiceHashRequest{ID: loginID, Method: MethodAuthorize, Params: []string{full, password}},
		)
	default:
		return nil, fmt.Errorf("login for %s", dialect)
	}

	frames := make([][]byte, 0, len(reqs))
	for _, r := range reqs {
		b, err := Encode(r)
		if err != nil {
			return nil, err
		}
		frames = append(frames, b)
	}
	return frames, nil
}

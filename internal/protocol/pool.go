package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

type PoolMessageKind int

const (
	PoolPassthrough   PoolMessageKind = iota // все, что прокси не интерпретирует (ответы subscribe/authorize и т.п.)
	PoolJob                                  // новое задание
	PoolSetDifficulty                        // mining.set_difficulty
	PoolAck                                  // ответ true/false на запрос
)

func (k PoolMessageKind) String() string {
	switch k {
	case PoolJob:
		return "job"
	case PoolSetDifficulty:
		return "set_difficulty"
	case PoolAck:
		return "ack"
	}
	return "passthrough"
}

// PoolMessage классифицированное сообщение пула
type PoolMessage struct {
	Kind       PoolMessageKind
	ID         uint64 // идентификатор ответа, если HasID
	HasID      bool
	Job        entity.Job
	Difficulty float64 // для PoolSetDifficulty
	Accepted   bool    // для PoolAck
	Raw        []byte  // исходное сообщение для пересылки как есть
}

type poolEnvelope struct {
	ID     jsonx.RawMessage `json:"id"`
	Method string           `json:"method"`
	Params []interface{}    `json:"params"`
	Result jsonx.RawMessage `json:"result"`
	Error  jsonx.RawMessage `json:"error"`
}

// ParsePoolMessage разбор сообщения пула: задание, смена сложности, подтверждение или пересылка
func ParsePoolMessage(frame []byte) (PoolMessage, error) {
	msg := PoolMessage{Raw: frame}

	var env poolEnvelope
	if err := jsonx.Unmarshal(frame, &env); err != nil {
		return msg, fmt.Errorf("%w: %s", ErrUnparseable, err.Error())
	}
	msg.ID, msg.HasID = parseID(env.ID)

	switch env.Method {
	case MethodNotify:
		params, clean, err := notifyParams(env.Params)
		if err != nil {
			return msg, err
		}
		msg.Kind = PoolJob
		msg.Job = entity.NewNotifyJob(params, clean)
		return msg, nil
	case MethodSetDifficulty:
		if len(env.Params) == 0 {
			return msg, fmt.Errorf("%w: set_difficulty without params", ErrUnparseable)
		}
		diff, ok := toFloat(env.Params[0])
		if !ok {
			return msg, fmt.Errorf("%w: set_difficulty param %v", ErrUnparseable, env.Params[0])
		}
		msg.Kind = PoolSetDifficulty
		msg.Difficulty = diff
		return msg, nil
	case "":
	default:
		// прочие уведомления пула (mining.set_extranonce и т.д.)
		msg.Kind = PoolPassthrough
		return msg, nil
	}

	result := bytes.TrimSpace(env.Result)
	switch {
	case bytes.Equal(result, []byte("true")):
		msg.Kind = PoolAck
		msg.Accepted = isNull(env.Error)
	case bytes.Equal(result, []byte("false")):
		msg.Kind = PoolAck
	case isNull(result) && !isNull(env.Error) && msg.HasID:
		msg.Kind = PoolAck
	case len(result) > 0 && result[0] == '[':
		var params []string
		if err := jsonx.Unmarshal(result, &params); err != nil {
			// ответ на mining.subscribe и т.п., не задание
			msg.Kind = PoolPassthrough
			return msg, nil
		}
		msg.Kind = PoolJob
		msg.Job = entity.NewWorkJob(params)
	default:
		msg.Kind = PoolPassthrough
	}

	return msg, nil
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func parseID(raw []byte) (uint64, bool) {
	raw = bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(raw) == 0 {
		return 0, false
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// notifyParams строки задания и флаг clean_jobs, который идет последним bool элементом
func notifyParams(raw []interface{}) ([]string, bool, error) {
	params := make([]string, 0, len(raw))
	clean := false
	for i, p := range raw {
		switch v := p.(type) {
		case string:
			params = append(params, v)
		case bool:
			if i != len(raw)-1 {
				return nil, false, fmt.Errorf("%w: notify bool param at %d", ErrUnparseable, i)
			}
			clean = v
		default:
			return nil, false, fmt.Errorf("%w: notify param %v", ErrUnparseable, p)
		}
	}
	if len(params) == 0 {
		return nil, false, fmt.Errorf("%w: empty notify", ErrUnparseable)
	}
	return params, clean, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

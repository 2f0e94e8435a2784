package protocol

import (
	"fmt"
	"strings"

	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

// minerEnvelope общий вид входящего сообщения майнера
type minerEnvelope struct {
	ID      *uint64  `json:"id"`
	JSONRPC string   `json:"jsonrpc"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
	Worker  *string  `json:"worker"`
}

func decodeEnvelope(frame []byte) (minerEnvelope, error) {
	var env minerEnvelope
	if err := jsonx.Unmarshal(frame, &env); err != nil {
		return env, fmt.Errorf("%w: %s", ErrUnparseable, err.Error())
	}
	if env.Method == "" {
		return env, fmt.Errorf("%w: empty method", ErrUnparseable)
	}
	return env, nil
}

// Detect определение диалекта по первому сообщению майнера
func Detect(frame []byte) (Dialect, Request, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return DialectUnknown, nil, err
	}

	var dialect Dialect
	switch env.Method {
	case MethodEthSubmitLogin:
		dialect = DialectEth
	case MethodSubscribe:
		dialect = DialectStratum
		if len(env.Params) > 1 && strings.HasPrefix(env.Params[1], NiceHashProtocolPrefix) {
			dialect = DialectNiceHash
		}
	default:
		return DialectUnknown, nil, fmt.Errorf("%w: unexpected first method %q", ErrUnparseable, env.Method)
	}

	return dialect, build(dialect, env), nil
}

// Parse разбор сообщения майнера в уже определенном диалекте
func Parse(dialect Dialect, frame []byte) (Request, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	if !IsKnownMethod(dialect, env.Method) {
		return nil, fmt.Errorf("%w: method %q in %s", ErrUnparseable, env.Method, dialect)
	}
	return build(dialect, env), nil
}

func build(dialect Dialect, env minerEnvelope) Request {
	var id uint64
	if env.ID != nil {
		id = *env.ID
	}
	if env.Params == nil {
		env.Params = []string{}
	}

	switch dialect {
	case DialectEth:
		if env.Worker != nil {
			return &EthWorkerRequest{ID: id, JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params, Worker: *env.Worker}
		}
		return &EthRequest{ID: id, JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params}
	case DialectNiceHash:
		return &NiceHashRequest{ID: id, Method: env.Method, Params: env.Params}
	}

	req := &StratumRequest{ID: id, JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params}
	if env.Worker != nil {
		req.Worker = *env.Worker
	}
	return req
}

// Encode сериализация запроса для отправки в пул
func Encode(req Request) ([]byte, error) {
	return jsonx.Marshal(req)
}

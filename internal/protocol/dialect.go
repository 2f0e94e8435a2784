// Package protocol диалекты майнингового протокола: разбор входящих сообщений майнера,
// классификация сообщений пула и формирование исходящих сообщений
package protocol

import (
	"errors"
	"strings"
)

type Dialect int

const (
	DialectUnknown  Dialect = iota // протокол еще не определен
	DialectEth                     // ETH getwork JSON-RPC (eth_submitLogin)
	DialectStratum                 // Stratum (mining.subscribe)
	DialectNiceHash                // NiceHash EthereumStratum/1.0.0
)

func (d Dialect) String() string {
	switch d {
	case DialectEth:
		return "eth"
	case DialectStratum:
		return "stratum"
	case DialectNiceHash:
		return "nicehash"
	}
	return "unknown"
}

// ParseDialect разбор названия протокола из конфига
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "eth", "ethproxy":
		return DialectEth, nil
	case "stratum":
		return DialectStratum, nil
	case "nicehash", "ethereumstratum":
		return DialectNiceHash, nil
	}
	return DialectUnknown, errors.New("unknown protocol: " + s)
}

// Методы протокола
const (
	MethodEthSubmitLogin    = "eth_submitLogin"
	MethodEthSubmitWork     = "eth_submitWork"
	MethodEthSubmitHashrate = "eth_submitHashrate"
	MethodEthGetWork        = "eth_getWork"

	MethodSubscribe           = "mining.subscribe"
	MethodAuthorize           = "mining.authorize"
	MethodSubmit              = "mining.submit"
	MethodExtranonceSubscribe = "mining.extranonce.subscribe"
	MethodHashrate            = "mining.hashrate"
	MethodNotify              = "mining.notify"
	MethodSetDifficulty       = "mining.set_difficulty"

	NiceHashProtocolPrefix = "EthereumStratum/"
	NiceHashProtocol       = "EthereumStratum/1.0.0"
	JSONRPCVersion         = "2.0"
)

// methods допустимые методы майнера для каждого диалекта
var methods = map[Dialect]map[string]struct{}{
	DialectEth: {
		MethodEthSubmitLogin:    {},
		MethodEthSubmitWork:     {},
		MethodEthSubmitHashrate: {},
		MethodEthGetWork:        {},
	},
	DialectStratum: {
		MethodSubscribe:           {},
		MethodAuthorize:           {},
		MethodSubmit:              {},
		MethodExtranonceSubscribe: {},
		MethodHashrate:            {},
		MethodEthSubmitHashrate:   {},
		MethodEthGetWork:          {},
	},
	DialectNiceHash: {
		MethodSubscribe:           {},
		MethodAuthorize:           {},
		MethodSubmit:              {},
		MethodExtranonceSubscribe: {},
		MethodHashrate:            {},
		MethodEthSubmitHashrate:   {},
	},
}

func IsKnownMethod(d Dialect, method string) bool {
	m, ok := methods[d]
	if !ok {
		return false
	}
	_, ok = m[method]
	return ok
}

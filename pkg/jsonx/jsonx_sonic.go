//go:build !nojsonsimd

// Package jsonx кодек JSON для сообщений майнинговых протоколов.
// По умолчанию используется sonic, тег сборки nojsonsimd переключает на encoding/json.
package jsonx

import "github.com/bytedance/sonic"

var fastJSON = sonic.ConfigStd

func Marshal(v interface{}) ([]byte, error) {
	return fastJSON.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return fastJSON.Unmarshal(data, v)
}

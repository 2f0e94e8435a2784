//go:build nojsonsimd

// Package jsonx кодек JSON для сообщений майнинговых протоколов.
// По умолчанию используется sonic, тег сборки nojsonsimd переключает на encoding/json.
package jsonx

import stdjson "encoding/json"

func Marshal(v interface{}) ([]byte, error) {
	return stdjson.Marshal(v)
}

func Unmarshal(data []byte, v interface{}) error {
	return stdjson.Unmarshal(data, v)
}

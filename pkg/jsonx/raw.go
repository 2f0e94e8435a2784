package jsonx

import stdjson "encoding/json"

// RawMessage отложенный разбор части сообщения, совместим с sonic и encoding/json
type RawMessage = stdjson.RawMessage

package session

import "errors"

var (
	ErrDisconnected      = errors.New("disconnected")       // EOF или запись 0 байт в любом из сокетов
	ErrProtocolViolation = errors.New("protocol violation") // неразбираемое сообщение, возможно сканирование порта
	ErrSerialization     = errors.New("serialization")      // не удалось сформировать исходящее сообщение
)

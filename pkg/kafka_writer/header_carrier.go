package kafka_writer

import "github.com/IBM/sarama"

// ProducerHeadersCarrier заголовки отправляемого сообщения, propagation.TextMapCarrier
type ProducerHeadersCarrier []sarama.RecordHeader

func (c *ProducerHeadersCarrier) Get(key string) string {
	for _, h := range *c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *ProducerHeadersCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c *ProducerHeadersCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = string(h.Key)
	}
	return keys
}

// ConsumerHeadersCarrier заголовки прочитанного сообщения (sarama.ConsumerMessage.Headers),
// только для извлечения контекста трассировки
type ConsumerHeadersCarrier []*sarama.RecordHeader

func (c ConsumerHeadersCarrier) Get(key string) string {
	for _, h := range c {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c ConsumerHeadersCarrier) Set(key, value string) {}

func (c ConsumerHeadersCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for _, h := range c {
		if h != nil {
			keys = append(keys, string(h.Key))
		}
	}
	return keys
}

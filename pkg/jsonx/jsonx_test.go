package jsonx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshal(t *testing.T) {
	type msg struct {
		ID     uint64   `json:"id"`
		Method string   `json:"method"`
		Params []string `json:"params"`
	}

	data, err := Marshal(msg{ID: 7, Method: "eth_getWork", Params: []string{}})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":7,"method":"eth_getWork","params":[]}`, string(data))

	var got msg
	require.NoError(t, Unmarshal([]byte(`{"id":1,"method":"mining.submit","params":["a","b"]}`), &got))
	require.Equal(t, uint64(1), got.ID)
	require.Equal(t, []string{"a", "b"}, got.Params)

	require.Error(t, Unmarshal([]byte(`{"id":`), &got))
}

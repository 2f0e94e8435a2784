package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

func TestParsePoolMessage(t *testing.T) {
	t.Run("work job", func(t *testing.T) {
		msg, err := ParsePoolMessage([]byte(`{"id":0,"jsonrpc":"2.0","result":["0xHASH","0xSEED","0xTARGET","0x01"]}`))
		require.NoError(t, err)
		assert.Equal(t, PoolJob, msg.Kind)
		assert.Equal(t, entity.JobKindWork, msg.Job.Kind)
		assert.Equal(t, "0xHASH", msg.Job.ID)
		assert.Equal(t, float64(1), msg.Job.Difficulty)
	})

	t.Run("notify", func(t *testing.T) {
		msg, err := ParsePoolMessage([]byte(`{"id":null,"method":"mining.notify","params":["job1","0xSEED","0xHEADER",true]}`))
		require.NoError(t, err)
		assert.Equal(t, PoolJob, msg.Kind)
		assert.False(t, msg.HasID)
		assert.Equal(t, entity.JobKindNotify, msg.Job.Kind)
		assert.Equal(t, "job1", msg.Job.ID)
		assert.True(t, msg.Job.Clean)
		assert.Equal(t, []string{"job1", "0xSEED", "0xHEADER"}, msg.Job.Params)
	})

	t.Run("set difficulty", func(t *testing.T) {
		msg, err := ParsePoolMessage([]byte(`{"id":null,"method":"mining.set_difficulty","params":[2.5]}`))
		require.NoError(t, err)
		assert.Equal(t, PoolSetDifficulty, msg.Kind)
		assert.Equal(t, 2.5, msg.Difficulty)
	})

	t.Run("ack", func(t *testing.T) {
		msg, err := ParsePoolMessage([]byte(`{"id":1004,"jsonrpc":"2.0","result":true}`))
		require.NoError(t, err)
		assert.Equal(t, PoolAck, msg.Kind)
		assert.True(t, msg.HasID)
		assert.Equal(t, uint64(1004), msg.ID)
		assert.True(t, msg.Accepted)

		msg, err = ParsePoolMessage([]byte(`{"id":1004,"jsonrpc":"2.0","result":false,"error":"low difficulty"}`))
		require.NoError(t, err)
		assert.Equal(t, PoolAck, msg.Kind)
		assert.False(t, msg.Accepted)

		msg, err = ParsePoolMessage([]byte(`{"id":"1004","result":null,"error":[21,"stale",null]}`))
		require.NoError(t, err)
		assert.Equal(t, PoolAck, msg.Kind)
		assert.Equal(t, uint64(1004), msg.ID)
		assert.False(t, msg.Accepted)
	})

	t.Run("passthrough", func(t *testing.T) {
		frame := []byte(`{"id":1,"result":[["mining.notify","ae6812eb4cd7735a302a8a9dd95cf71f","EthereumStratum/1.0.0"],"080c"],"error":null}`)
		msg, err := ParsePoolMessage(frame)
		require.NoError(t, err)
		assert.Equal(t, PoolPassthrough, msg.Kind)
		assert.Equal(t, frame, msg.Raw)

		msg, err = ParsePoolMessage([]byte(`{"id":null,"method":"mining.set_extranonce","params":["af4c"]}`))
		require.NoError(t, err)
		assert.Equal(t, PoolPassthrough, msg.Kind)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParsePoolMessage([]byte(`{"id":1,"result":`))
		require.ErrorIs(t, err, ErrUnparseable)

		_, err = ParsePoolMessage([]byte(`{"method":"mining.notify","params":[1,2]}`))
		require.ErrorIs(t, err, ErrUnparseable)
	})
}

func TestRenderJob(t *testing.T) {
	job := entity.NewWorkJob([]string{"0xHASH", "0xSEED", "0xTARGET", "0x01"})
	out, err := RenderJob(DialectEth, job, 3)
	require.NoError(t, err)

	var res JobResult
	require.NoError(t, jsonx.Unmarshal(out, &res))
	assert.Equal(t, uint64(3), res.ID)
	assert.Equal(t, JSONRPCVersion, res.JSONRPC)
	assert.Equal(t, job.Params, res.Result)

	_, err = RenderJob(DialectNiceHash, job, 0)
	require.Error(t, err)

	notify := entity.NewNotifyJob([]string{"job1", "0xSEED", "0xHEADER"}, false)
	out, err = RenderJob(DialectNiceHash, notify, 3)
	require.NoError(t, err)
	msg, err := ParsePoolMessage(out)
	require.NoError(t, err)
	assert.Equal(t, PoolJob, msg.Kind)
	assert.Equal(t, notify.Params, msg.Job.Params)
	assert.True(t, strings.Contains(string(out), `"id":null`))
}

func TestAckAndRestoreID(t *testing.T) {
	out, err := NewAck(7, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"jsonrpc":"2.0","result":true}`, string(out))

	restored, err := RestoreID([]byte(`{"id":1002,"jsonrpc":"2.0","result":["0xA","0xB","0xC"]}`), 9)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":9,"jsonrpc":"2.0","result":["0xA","0xB","0xC"]}`, string(restored))
}

func TestLoginFrames(t *testing.T) {
	frames, err := LoginFrames(DialectEth, "0xFEE", "proxy", "x", "agent", 1001, 1002)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"id":1001,"jsonrpc":"2.0","method":"eth_submitLogin","params":["0xFEE","x"],"worker":"proxy"}`, string(frames[0]))
	assert.JSONEq(t, `{"id":1002,"jsonrpc":"2.0","method":"eth_getWork","params":[]}`, string(frames[1]))

	frames, err = LoginFrames(DialectNiceHash, "0xFEE", "", "x", "agent", 1001, 1002)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"id":1001,"method":"mining.authorize","params":["0xFEE.default","x"]}`, string(frames[1]))
}

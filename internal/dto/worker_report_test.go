package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnsoftware/mpm-mining-proxy/internal/entity"
	"github.com/dnsoftware/mpm-mining-proxy/pkg/jsonx"
)

func TestNewWorkerReport(t *testing.T) {
	w := entity.NewWorker("10.0.0.5:5555")
	w.Protocol = "eth"
	w.Login("0xWALLET", "rig1", ".")
	w.ShareIndexAdd()
	w.ShareIndexAdd()
	w.ShareAccept()
	w.FeeShareIndexAdd()
	w.FeeShareAccept()
	w.SetHashrate(500000000)

	now := time.Now().UnixMilli()
	report := NewWorkerReport("sess-1", "proxy-1", w, now)

	assert.Equal(t, "0xWALLET.rig1", report.Worker)
	assert.Equal(t, "rig1", report.WorkerName)
	assert.Equal(t, uint64(2), report.ShareIndex)
	assert.Equal(t, uint64(1), report.Accepted)
	assert.Equal(t, uint64(1), report.FeeShareIndex)
	assert.Equal(t, uint64(1), report.FeeShareAccepted)
	assert.Equal(t, uint64(500000000), report.Hashrate)
	assert.Equal(t, w.LoginAt.Unix(), report.LoginAt)
	assert.True(t, report.Online)

	data, err := jsonx.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"worker":"0xWALLET.rig1"`)
	assert.Contains(t, string(data), `"feeShareAccepted":1`)
}

func TestNewWorkerReportNotLoggedIn(t *testing.T) {
	w := entity.NewWorker("10.0.0.5:5555")
	w.LastActiveAt = time.Time{}

	report := NewWorkerReport("sess-2", "proxy-1", w, 0)
	assert.Equal(t, int64(0), report.LoginAt)
	assert.Equal(t, int64(0), report.LastActiveAt)
	assert.Equal(t, "", report.Worker)
}

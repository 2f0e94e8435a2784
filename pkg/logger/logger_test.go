package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {

	filePath := filepath.Join(t.TempDir(), "test.log")
	if _, err := os.Stat(filePath); err == nil {
		// Файл существует, удаляем его
		err := os.Remove(filePath)
		assert.NoError(t, err)
	}

	InitLogger(LogLevelDebug, filePath)
	assert.NotNil(t, instance)

	lg := Log()
	assert.NotNil(t, lg)

	lg.Info("Test")
	assert.NoError(t, lg.Sync())
}

func TestNop(t *testing.T) {
	lg := Nop()
	assert.NotNil(t, lg)
	lg.With().Debug("silent")
}

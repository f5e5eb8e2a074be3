package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLog(t *testing.T) {
	Info("Test log.Info", "value", 10)
	Infof("Test log.Infof %d", 10)
	Infow("Test log.Infow", "value", 10)
	Debugf("Test log.Debugf %d", 10)
	Debugw("Test log.Debugw", "value", 10)
	Warnf("Test log.Warnf %d", 10)
	Warnw("Test log.Warnw", "value", 10)
	Error("Test log.Error", "value", 10)
	Errorf("Test log.Errorf %d", 10)
	Errorw("Test log.Errorw", "value", 10)
}

func TestLogErrorsFile(t *testing.T) {
	dir := t.TempDir()
	errorsPath := filepath.Join(dir, "errors.log")
	Init("info", []string{"stdout", "errors:" + errorsPath})
	defer Init("debug", []string{"stdout"})

	Errorf("stored error %d", 42)
	assert.Eventually(t, func() bool {
		content, err := os.ReadFile(errorsPath)
		return err == nil && len(content) > 0
	}, time.Second, 10*time.Millisecond)
}

package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"forex-signal-go/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// writeScript drops an executable shell script standing in for the model.
func writeScript(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "predict.sh")
	assert.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newTestPredictor(t *testing.T, scriptBody string) *Predictor {
	return NewPredictor(config.AI{
		PythonExecutable: "/bin/sh",
		ScriptPath:       writeScript(t, scriptBody),
		ModelDir:         t.TempDir(),
		TimeoutSec:       5,
	}, zap.NewNop())
}

func TestPredict_ParsesModelOutput(t *testing.T) {
	// Arrange
	p := newTestPredictor(t, `echo '{"signal":"BUY","trend":"Uptrend","volume":"High","buyer_percentage":68.5,"confidence":"High"}'`)

	// Act
	pred, err := p.Predict(context.Background(), "EUR/USD", "1d", choppyBars(120, 1.1000))

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "BUY", pred.Signal)
	assert.Equal(t, 68.5, pred.BuyerPercentage)
	assert.Equal(t, "High", pred.Confidence)
}

func TestPredict_ScriptErrorField(t *testing.T) {
	p := newTestPredictor(t, `echo '{"error":"Model file not found"}'`)

	_, err := p.Predict(context.Background(), "EUR/USD", "1d", choppyBars(120, 1.1000))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Model file not found")
}

func TestPredict_NonZeroExitIncludesStderr(t *testing.T) {
	p := newTestPredictor(t, `echo "boom" >&2; exit 3`)

	_, err := p.Predict(context.Background(), "EUR/USD", "1d", choppyBars(120, 1.1000))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPredict_RequiresEnoughHistory(t *testing.T) {
	p := newTestPredictor(t, `echo '{}'`)

	_, err := p.Predict(context.Background(), "EUR/USD", "1d", choppyBars(50, 1.1000))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not enough historical data")
}

func TestPredict_MissingScript(t *testing.T) {
	p := NewPredictor(config.AI{
		PythonExecutable: "/bin/sh",
		ScriptPath:       "/nonexistent/predict.py",
		TimeoutSec:       5,
	}, zap.NewNop())

	_, err := p.Predict(context.Background(), "EUR/USD", "1d", choppyBars(120, 1.1000))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

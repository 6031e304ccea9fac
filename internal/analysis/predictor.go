package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"forex-signal-go/internal/config"
	"forex-signal-go/internal/twelvedata"

	"go.uber.org/zap"
)

// sequenceLength is the number of bars the trained model expects.
const sequenceLength = 100

// Prediction is the model's verdict for one symbol.
type Prediction struct {
	Signal          string  `json:"signal"`
	Trend           string  `json:"trend"`
	Volume          string  `json:"volume"`
	BuyerPercentage float64 `json:"buyer_percentage"`
	Confidence      string  `json:"confidence"`
	Error           string  `json:"error"`
}

// PredictorInterface produces a model prediction from bar history.
type PredictorInterface interface {
	Predict(ctx context.Context, symbol, timeframe string, bars []twelvedata.OHLC) (*Prediction, error)
}

// Predictor shells out to the trained classifier. The script receives the
// symbol, a JSON array of the last bars and the model file name as
// arguments and writes a single JSON object to stdout.
type Predictor struct {
	executable string
	scriptPath string
	modelDir   string
	timeout    time.Duration
	logger     *zap.Logger
}

var _ PredictorInterface = (*Predictor)(nil)

func NewPredictor(cfg config.AI, logger *zap.Logger) *Predictor {
	return &Predictor{
		executable: cfg.PythonExecutable,
		scriptPath: cfg.ScriptPath,
		modelDir:   cfg.ModelDir,
		timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
		logger:     logger,
	}
}

type predictorBar struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Predict runs the model subprocess. It returns an error for infrastructure
// failures (missing script, subprocess crash, unparseable output); callers
// degrade those to a HOLD signal.
func (p *Predictor) Predict(ctx context.Context, symbol, timeframe string, bars []twelvedata.OHLC) (*Prediction, error) {
	if len(bars) < sequenceLength {
		return nil, fmt.Errorf("not enough historical data (%d bars) for prediction (needs %d)", len(bars), sequenceLength)
	}
	if _, err := os.Stat(p.scriptPath); err != nil {
		return nil, fmt.Errorf("model script not found at %s: %w", p.scriptPath, err)
	}

	window := bars[len(bars)-sequenceLength:]
	payload := make([]predictorBar, len(window))
	for i, b := range window {
		payload[i] = predictorBar{Open: b.Open, High: b.High, Low: b.Low, Close: b.Close}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bars: %w", err)
	}

	modelFile := fmt.Sprintf("%s_%s_random_forest.joblib",
		strings.ReplaceAll(strings.ToUpper(symbol), "/", "_"), timeframe)

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, p.executable, p.scriptPath, strings.ToUpper(symbol), string(encoded), filepath.Join(p.modelDir, modelFile))
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("model subprocess failed: %w. stderr: %s. stdout: %s",
			err, strings.TrimSpace(stderr.String()), strings.TrimSpace(stdout.String()))
	}

	var pred Prediction
	if err := json.Unmarshal([]byte(stdout.String()), &pred); err != nil {
		return nil, fmt.Errorf("failed to decode model output: %w", err)
	}
	if pred.Error != "" {
		return nil, fmt.Errorf("model script returned an error: %s", pred.Error)
	}

	p.logger.Debug("Model prediction",
		zap.String("symbol", symbol),
		zap.String("signal", pred.Signal),
		zap.String("confidence", pred.Confidence),
	)
	return &pred, nil
}

package detector

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/classifier"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/metrics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

const DefaultClassifierTimeout = 2 * time.Second

const degradedDetail = "AI classifier unavailable, heuristic-only score"

// model wraps a classifier with the per-call timeout and the fallback policy:
// any failure yields ok == false and the caller scores on heuristics alone.
type model struct {
	client  classifier.Client
	timeout time.Duration
	logger  *log.Logger
}

func newModel(client classifier.Client, timeout time.Duration, logger *log.Logger) model {
	if client == nil {
		client = classifier.Unavailable{}
	}
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return model{client: client, timeout: timeout, logger: logger}
}

func (m model) predict(ctx context.Context, kind models.ScanKind, text string) (models.ClassifierVerdict, bool) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	verdict, err := m.call(ctx, text)
	if err == nil {
		verdict, err = classifier.Verdict(string(verdict.Label), verdict.Confidence)
	}
	if err != nil {
		m.logger.Printf("Warning: %s classifier call failed, scoring on heuristics only: %v", kind, err)
		metrics.ClassifierFailures.WithLabelValues(string(kind)).Inc()
		return models.ClassifierVerdict{}, false
	}
	return verdict, true
}

type predictResult struct {
	verdict models.ClassifierVerdict
	err     error
}

// call bounds Predict by ctx even when the client ignores it. A late reply is
// dropped into the buffered channel and discarded.
func (m model) call(ctx context.Context, text string) (models.ClassifierVerdict, error) {
	done := make(chan predictResult, 1)

	go func() {
		verdict, err := m.client.Predict(ctx, text)
		done <- predictResult{verdict: verdict, err: err}
	}()

	select {
	case res := <-done:
		return res.verdict, res.err
	case <-ctx.Done():
		return models.ClassifierVerdict{}, fmt.Errorf("%w: %v", classifier.ErrUnavailable, ctx.Err())
	}
}

func percent(confidence float64) int {
	return int(confidence * 100)
}

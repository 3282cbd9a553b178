package detector

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/classifier"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/heuristics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

const (
	URLModelWeight    = 60
	URLPhishingCutoff = 50
)

type URLAnalyzer struct {
	model model
}

func NewURLAnalyzer(client classifier.Client, timeout time.Duration, logger *log.Logger) *URLAnalyzer {
	return &URLAnalyzer{model: newModel(client, timeout, logger)}
}

func (a *URLAnalyzer) Analyze(ctx context.Context, url string) models.ScanResult {
	var score float64
	details := []string{}

	if s := heuristics.LengthScore(url); s > 0 {
		score += float64(s)
		details = append(details, "URL is suspiciously long")
	}
	if s := heuristics.IPLiteralScore(url); s > 0 {
		score += float64(s)
		details = append(details, "URL contains raw IP address")
	}
	if s := heuristics.KeywordScore(url); s > 0 {
		score += float64(s)
		details = append(details, "URL contains suspicious keywords")
	}

	result := models.ScanResult{}
	verdict, ok := a.model.predict(ctx, models.KindURL, url)
	switch {
	case !ok:
		result.Degraded = true
		details = append(details, degradedDetail)
	case verdict.Label == models.LabelMalicious:
		score += verdict.Confidence * URLModelWeight
		details = append(details, fmt.Sprintf("AI detected phishing patterns (%d%% confidence)", percent(verdict.Confidence)))
	}

	result.Status = models.StatusSafe
	if score >= URLPhishingCutoff {
		result.Status = models.StatusPhishing
	}
	result.Score = int(score)
	result.Details = details
	return result
}

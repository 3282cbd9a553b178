package detector

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/classifier"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/heuristics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

const (
	EmailModelWeight    = 80
	EmailPhishingCutoff = 40
	SuspiciousSender    = 10
)

type EmailAnalyzer struct {
	model model
}

func NewEmailAnalyzer(client classifier.Client, timeout time.Duration, logger *log.Logger) *EmailAnalyzer {
	return &EmailAnalyzer{model: newModel(client, timeout, logger)}
}

func (a *EmailAnalyzer) Analyze(ctx context.Context, subject, body, sender string) models.ScanResult {
	var score float64
	details := []string{}

	// Senders that announce themselves as no-reply are usually automated mailers.
	if !strings.Contains(sender, "no-reply") && heuristics.KeywordScore(sender) > 0 {
		score += SuspiciousSender
		details = append(details, "Suspicious sender address")
	}

	result := models.ScanResult{}
	text := subject + " " + body + " " + sender
	verdict, ok := a.model.predict(ctx, models.KindEmail, text)
	switch {
	case !ok:
		result.Degraded = true
		details = append(details, degradedDetail)
	case verdict.Label == models.LabelMalicious:
		score += verdict.Confidence * EmailModelWeight
		details = append(details, fmt.Sprintf("AI detected phishing content (%d%% confidence)", percent(verdict.Confidence)))
	}

	result.Status = models.StatusSafe
	if score >= EmailPhishingCutoff {
		result.Status = models.StatusPhishing
	}
	result.Score = int(score)
	result.Details = details
	return result
}

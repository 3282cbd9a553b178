package detector

import (
	"context"
	"fmt"
	"io"

	"github.com/jhillyerd/enmime"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

type MessageResult struct {
	models.ScanResult
	Subject     string                    `json:"subject"`
	Sender      string                    `json:"sender"`
	Attachments []models.AttachmentResult `json:"attachments"`
}

// MessageAnalyzer scores a raw RFC 5322 message: headers and text through the
// email pipeline, every attached or inline file through the file pipeline.
type MessageAnalyzer struct {
	emails *EmailAnalyzer
	files  *FileAnalyzer
}

func NewMessageAnalyzer(emails *EmailAnalyzer, files *FileAnalyzer) *MessageAnalyzer {
	return &MessageAnalyzer{emails: emails, files: files}
}

func (a *MessageAnalyzer) Analyze(ctx context.Context, raw io.Reader) (MessageResult, error) {
	env, err := enmime.ReadEnvelope(raw)
	if err != nil {
		return MessageResult{}, fmt.Errorf("parse message: %w", err)
	}

	out := MessageResult{
		Subject:     env.GetHeader("Subject"),
		Sender:      env.GetHeader("From"),
		Attachments: []models.AttachmentResult{},
	}
	out.ScanResult = a.emails.Analyze(ctx, out.Subject, env.Text, out.Sender)

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, part := range parts {
		if len(part.Content) == 0 {
			continue
		}
		name := part.FileName
		if name == "" {
			name = "unnamed"
		}

		res := a.files.Analyze(ctx, name, part.Content)
		out.Attachments = append(out.Attachments, models.AttachmentResult{Filename: name, Result: res})
		if res.Degraded {
			out.Degraded = true
		}
		if res.Status == models.StatusSafe {
			continue
		}

		out.Details = append(out.Details, fmt.Sprintf("Attachment %s flagged as %s (score %d)", name, res.Status, res.Score))
		if res.Score > out.Score {
			out.Score = res.Score
		}
		out.Status = models.StatusPhishing
	}

	return out, nil
}

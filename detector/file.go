package detector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/heuristics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/metrics"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/qr"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/signatures"
)

const (
	SignatureScore      = 100
	EmbeddedLinkFloor   = 60
	FileMaliciousCutoff = 50

	DefaultQRTimeout  = 1500 * time.Millisecond
	DefaultMaxQRBytes = 15 << 20
)

type FileOptions struct {
	QRTimeout  time.Duration
	MaxQRBytes int64
}

type FileAnalyzer struct {
	urls       *URLAnalyzer
	signatures *signatures.Store
	decoder    qr.Decoder
	qrTimeout  time.Duration
	maxQRBytes int64
	logger     *log.Logger
}

// NewFileAnalyzer wires the file pipeline. A nil decoder disables QR
// extraction; a nil store means no signatures.
func NewFileAnalyzer(urls *URLAnalyzer, sigs *signatures.Store, decoder qr.Decoder, opts FileOptions, logger *log.Logger) *FileAnalyzer {
	if sigs == nil {
		sigs = signatures.New()
	}
	if opts.QRTimeout <= 0 {
		opts.QRTimeout = DefaultQRTimeout
	}
	if opts.MaxQRBytes <= 0 {
		opts.MaxQRBytes = DefaultMaxQRBytes
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileAnalyzer{
		urls:       urls,
		signatures: sigs,
		decoder:    decoder,
		qrTimeout:  opts.QRTimeout,
		maxQRBytes: opts.MaxQRBytes,
		logger:     logger,
	}
}

func (a *FileAnalyzer) Analyze(ctx context.Context, filename string, content []byte) models.ScanResult {
	score := 0
	details := []string{}
	result := models.ScanResult{}

	if s := heuristics.ExtensionScore(filename); s > 0 {
		score += s
		details = append(details, "High risk file extension")
	}

	if label, ok := a.signatures.Lookup(signatures.Sum(content)); ok {
		result.Signature = label
		details = append(details, fmt.Sprintf("Known Malware Detected (Hash Match): %s", label))
	}
	if label, ok := a.signatures.LookupContent(a.text(filename, content)); ok {
		if result.Signature == "" {
			result.Signature = label
		}
		details = append(details, fmt.Sprintf("Known Malware Detected (Content Match): %s", label))
	}

	if heuristics.IsImage(filename) {
		if payload, ok := a.decodeQR(ctx, filename, content); ok {
			details = append(details, fmt.Sprintf("QR Code detected containing: %s", payload))

			if isLink(payload) && a.urls != nil {
				sub := a.urls.Analyze(ctx, payload)
				score += sub.Score
				for _, d := range sub.Details {
					details = append(details, "QR link: "+d)
				}
				result.Embedded = &sub
				result.Degraded = sub.Degraded
				if sub.Status == models.StatusPhishing {
					result.EmbeddedPhishing = true
					if score < EmbeddedLinkFloor {
						score = EmbeddedLinkFloor
					}
				}
			}
		}
	}

	switch {
	case result.Signature != "":
		score = SignatureScore
		result.Status = models.StatusMalicious
	case score >= FileMaliciousCutoff && result.EmbeddedPhishing:
		result.Status = models.StatusPhishing
	case score >= FileMaliciousCutoff:
		result.Status = models.StatusMalicious
	default:
		result.Status = models.StatusSafe
	}

	result.Score = score
	result.Details = details
	return result
}

// text is the content as trimmed UTF-8 with invalid sequences dropped.
func (a *FileAnalyzer) text(filename string, content []byte) string {
	s := string(content)
	if !utf8.ValidString(s) {
		a.logger.Printf("%s: content is not valid UTF-8, invalid sequences dropped for signature match", filename)
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}

// decodeQR returns the QR payload, or ok == false when the image carries none
// or cannot be decoded in time. It never fails the scan.
func (a *FileAnalyzer) decodeQR(ctx context.Context, filename string, content []byte) (string, bool) {
	if a.decoder == nil {
		return "", false
	}
	if int64(len(content)) > a.maxQRBytes {
		a.logger.Printf("%s: no QR result, image of %d bytes exceeds decode limit", filename, len(content))
		metrics.QRDecodes.WithLabelValues("skipped").Inc()
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, a.qrTimeout)
	defer cancel()

	payload, err := a.decoder.Decode(ctx, content)
	switch {
	case err == nil && payload != "":
		metrics.QRDecodes.WithLabelValues("decoded").Inc()
		return payload, true
	case err == nil, errors.Is(err, qr.ErrNoCode):
		a.logger.Printf("%s: no QR result, no code found", filename)
		metrics.QRDecodes.WithLabelValues("no_code").Inc()
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		a.logger.Printf("%s: no QR result, decode aborted: %v", filename, err)
		metrics.QRDecodes.WithLabelValues("timeout").Inc()
	default:
		a.logger.Printf("%s: no QR result, image not decodable: %v", filename, err)
		metrics.QRDecodes.WithLabelValues("unsupported").Inc()
	}
	return "", false
}

func isLink(payload string) bool {
	return strings.HasPrefix(payload, "http") || strings.Contains(payload, "www.")
}

package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
)

var (
	ErrUnavailable    = errors.New("classifier unavailable")
	ErrInvalidVerdict = errors.New("classifier returned an invalid verdict")
)

// Client scores free text. Implementations must be safe for concurrent use.
type Client interface {
	Predict(ctx context.Context, text string) (models.ClassifierVerdict, error)
}

// HTTPClient talks to a model service exposing POST /predict.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Text string `json:"text"`
}

type predictResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (c *HTTPClient) Predict(ctx context.Context, text string) (models.ClassifierVerdict, error) {
	payload, err := json.Marshal(predictRequest{Text: text})
	if err != nil {
		return models.ClassifierVerdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return models.ClassifierVerdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.ClassifierVerdict{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return models.ClassifierVerdict{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.ClassifierVerdict{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
	}

	return Verdict(body.Label, body.Confidence)
}

// Verdict normalises a raw label/confidence pair. The model service may speak
// either benign/malicious or safe/phishing.
func Verdict(label string, confidence float64) (models.ClassifierVerdict, error) {
	if confidence < 0 || confidence > 1 || math.IsNaN(confidence) {
		return models.ClassifierVerdict{}, fmt.Errorf("%w: confidence %v", ErrInvalidVerdict, confidence)
	}

	switch strings.ToLower(strings.TrimSpace(label)) {
	case "malicious", "phishing":
		return models.ClassifierVerdict{Label: models.LabelMalicious, Confidence: confidence}, nil
	case "benign", "safe":
		return models.ClassifierVerdict{Label: models.LabelBenign, Confidence: confidence}, nil
	default:
		return models.ClassifierVerdict{}, fmt.Errorf("%w: label %q", ErrInvalidVerdict, label)
	}
}

// Unavailable is the client used when no model service is configured.
type Unavailable struct{}

func (Unavailable) Predict(context.Context, string) (models.ClassifierVerdict, error) {
	return models.ClassifierVerdict{}, ErrUnavailable
}

package detector

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/classifier"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/models"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/qr"
	"github.com/kushal-naga-sai-balaji/Phishing-detection-system/signatures"
)

const eicar = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

var quiet = log.New(io.Discard, "", 0)

type stubClassifier struct {
	verdict models.ClassifierVerdict
	err     error
	texts   []string
}

func (s *stubClassifier) Predict(_ context.Context, text string) (models.ClassifierVerdict, error) {
	s.texts = append(s.texts, text)
	return s.verdict, s.err
}

func benign() *stubClassifier {
	return &stubClassifier{verdict: models.ClassifierVerdict{Label: models.LabelBenign, Confidence: 0.99}}
}

func malicious(conf float64) *stubClassifier {
	return &stubClassifier{verdict: models.ClassifierVerdict{Label: models.LabelMalicious, Confidence: conf}}
}

func failing() *stubClassifier {
	return &stubClassifier{err: classifier.ErrUnavailable}
}

type stubDecoder struct {
	payload string
	err     error
}

func (d stubDecoder) Decode(context.Context, []byte) (string, error) {
	return d.payload, d.err
}

func TestURLAnalyzer(t *testing.T) {
	long := "http://10.0.0.1/login/" + strings.Repeat("x", 80)

	tests := []struct {
		name         string
		url          string
		client       *stubClassifier
		wantStatus   models.ScanStatus
		wantScore    int
		wantDegraded bool
	}{
		{"clean url", "https://github.com", benign(), models.StatusSafe, 0, false},
		{"ip and keyword heuristics only", "http://192.168.1.1/login", benign(), models.StatusSafe, 40, false},
		{"ip and keyword with model", "http://192.168.1.1/login", malicious(0.9), models.StatusPhishing, 94, false},
		{"long ip keyword url beats benign model", long, benign(), models.StatusPhishing, 50, false},
		{"classifier down degrades", "http://192.168.1.1/login", failing(), models.StatusSafe, 40, true},
		{"model alone at cutoff", "https://example.com", malicious(0.84), models.StatusPhishing, 50, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewURLAnalyzer(tt.client, 0, quiet).Analyze(context.Background(), tt.url)
			if res.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s (details %v)", res.Status, tt.wantStatus, res.Details)
			}
			if res.Score != tt.wantScore {
				t.Errorf("score = %d, want %d", res.Score, tt.wantScore)
			}
			if res.Degraded != tt.wantDegraded {
				t.Errorf("degraded = %v, want %v", res.Degraded, tt.wantDegraded)
			}
		})
	}
}

func TestURLAnalyzerDetailsOrder(t *testing.T) {
	url := "http://192.168.1.1/login/" + strings.Repeat("a", 60)
	res := NewURLAnalyzer(malicious(0.5), 0, quiet).Analyze(context.Background(), url)

	want := []string{
		"URL is suspiciously long",
		"URL contains raw IP address",
		"URL contains suspicious keywords",
		"AI detected phishing patterns (50% confidence)",
	}
	if strings.Join(res.Details, "|") != strings.Join(want, "|") {
		t.Errorf("details = %v, want %v", res.Details, want)
	}
}

// lateClassifier answers confidently but only after delay, ignoring ctx.
type lateClassifier struct {
	delay time.Duration
}

func (c lateClassifier) Predict(context.Context, string) (models.ClassifierVerdict, error) {
	time.Sleep(c.delay)
	return models.ClassifierVerdict{Label: models.LabelMalicious, Confidence: 1}, nil
}

func TestClassifierTimeoutIgnoredByClient(t *testing.T) {
	client := lateClassifier{delay: 2 * time.Second}

	start := time.Now()
	res := NewURLAnalyzer(client, 50*time.Millisecond, quiet).Analyze(context.Background(), "https://example.com")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Analyze took %s, timeout not enforced", elapsed)
	}
	if !res.Degraded || res.Score != 0 || res.Status != models.StatusSafe {
		t.Errorf("res = %+v, want degraded heuristic-only result", res)
	}

	start = time.Now()
	email := NewEmailAnalyzer(client, 50*time.Millisecond, quiet).Analyze(context.Background(), "hi", "lunch?", "friend@example.org")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("email Analyze took %s, timeout not enforced", elapsed)
	}
	if !email.Degraded {
		t.Errorf("email = %+v, want degraded", email)
	}
}

func TestURLAnalyzerRejectsInvalidVerdict(t *testing.T) {
	client := &stubClassifier{verdict: models.ClassifierVerdict{Label: models.LabelMalicious, Confidence: 3}}
	res := NewURLAnalyzer(client, 0, quiet).Analyze(context.Background(), "https://example.com")
	if !res.Degraded || res.Score != 0 {
		t.Errorf("res = %+v, want degraded with score 0", res)
	}
}

func TestEmailAnalyzer(t *testing.T) {
	tests := []struct {
		name       string
		sender     string
		client     *stubClassifier
		wantStatus models.ScanStatus
		wantScore  int
	}{
		{"noreply sender has no keyword", "noreply@legit.com", benign(), models.StatusSafe, 0},
		{"no-reply suppresses sender heuristic", "no-reply@secure-login.com", benign(), models.StatusSafe, 0},
		{"keyword sender", "security@account-verify.com", benign(), models.StatusSafe, 10},
		{"model decides noreply mail", "noreply@legit.com", malicious(0.5), models.StatusPhishing, 40},
		{"model below cutoff", "noreply@legit.com", malicious(0.4), models.StatusSafe, 32},
		{"sender plus model", "security@account-verify.com", malicious(0.4), models.StatusPhishing, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewEmailAnalyzer(tt.client, 0, quiet).Analyze(context.Background(), "Urgent: verify account", "click here", tt.sender)
			if res.Status != tt.wantStatus || res.Score != tt.wantScore {
				t.Errorf("got %s/%d, want %s/%d (details %v)", res.Status, res.Score, tt.wantStatus, tt.wantScore, res.Details)
			}
		})
	}
}

func TestEmailAnalyzerClassifierInput(t *testing.T) {
	client := benign()
	NewEmailAnalyzer(client, 0, quiet).Analyze(context.Background(), "Subj", "Body text", "a@b.c")
	if len(client.texts) != 1 || client.texts[0] != "Subj Body text a@b.c" {
		t.Errorf("classifier input = %q", client.texts)
	}
}

func newFileAnalyzer(client classifier.Client, decoder qr.Decoder) *FileAnalyzer {
	urls := NewURLAnalyzer(client, 0, quiet)
	return NewFileAnalyzer(urls, signatures.New(signatures.Builtin()...), decoder, FileOptions{}, quiet)
}

func TestFileAnalyzerSignatures(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{"exact content", "eicar.txt", eicar},
		{"padded content", "eicar.com", "\n  " + eicar + "\r\n"},
		{"risky extension still 100", "eicar.exe", eicar},
		{"invalid utf8 dropped", "eicar.bin", eicar + "\xff\xfe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newFileAnalyzer(benign(), nil).Analyze(context.Background(), tt.filename, []byte(tt.content))
			if res.Score != 100 || res.Status != models.StatusMalicious {
				t.Errorf("got %s/%d, want malicious/100", res.Status, res.Score)
			}
			if res.Signature == "" {
				t.Error("signature label not recorded")
			}
		})
	}
}

func TestFileAnalyzerSignatureOverridesQR(t *testing.T) {
	fa := newFileAnalyzer(malicious(0.9), stubDecoder{payload: "http://192.168.1.1/login"})
	res := fa.Analyze(context.Background(), "eicar.png", []byte(eicar))
	if res.Score != 100 || res.Status != models.StatusMalicious {
		t.Errorf("got %s/%d, want malicious/100", res.Status, res.Score)
	}
}

func TestFileAnalyzerExtension(t *testing.T) {
	res := newFileAnalyzer(benign(), nil).Analyze(context.Background(), "setup.EXE", []byte("MZ"))
	if res.Score != 30 || res.Status != models.StatusSafe {
		t.Errorf("got %s/%d, want safe/30", res.Status, res.Score)
	}
}

func TestFileAnalyzerQR(t *testing.T) {
	tests := []struct {
		name         string
		filename     string
		decoder      stubDecoder
		client       *stubClassifier
		wantStatus   models.ScanStatus
		wantScore    int
		wantEmbedded bool
	}{
		{"phishing link floors at 60", "code.png", stubDecoder{payload: "http://evil.example"}, malicious(0.9), models.StatusPhishing, 60, true},
		{"ip keyword link with model", "code.jpg", stubDecoder{payload: "http://192.168.1.1/login"}, malicious(0.9), models.StatusPhishing, 94, true},
		{"safe link adds its score", "code.webp", stubDecoder{payload: "www.example.com/login"}, benign(), models.StatusSafe, 10, false},
		{"text payload is detail only", "code.png", stubDecoder{payload: "WIFI:S:home;T:WPA;P:secret;;"}, malicious(0.9), models.StatusSafe, 0, false},
		{"no code", "photo.png", stubDecoder{err: qr.ErrNoCode}, malicious(0.9), models.StatusSafe, 0, false},
		{"corrupt image", "photo.bmp", stubDecoder{err: qr.ErrUnsupported}, malicious(0.9), models.StatusSafe, 0, false},
		{"non image skips decoding", "notes.txt", stubDecoder{payload: "http://evil.example"}, malicious(0.9), models.StatusSafe, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newFileAnalyzer(tt.client, tt.decoder).Analyze(context.Background(), tt.filename, []byte("image-bytes"))
			if res.Status != tt.wantStatus || res.Score != tt.wantScore {
				t.Errorf("got %s/%d, want %s/%d (details %v)", res.Status, res.Score, tt.wantStatus, tt.wantScore, res.Details)
			}
			if res.EmbeddedPhishing != tt.wantEmbedded {
				t.Errorf("embedded phishing = %v, want %v", res.EmbeddedPhishing, tt.wantEmbedded)
			}
		})
	}
}

func TestFileAnalyzerKeepsEmbeddedResult(t *testing.T) {
	fa := newFileAnalyzer(malicious(0.5), stubDecoder{payload: "http://10.1.1.1/"})
	res := fa.Analyze(context.Background(), "x.png", []byte("img"))
	// 30 from the IP literal plus 30 from the model: phishing link, floored and flagged.
	if !res.EmbeddedPhishing || res.Status != models.StatusPhishing || res.Score != 60 {
		t.Errorf("got %+v", res)
	}
	if res.Embedded == nil || res.Embedded.Score != 60 {
		t.Errorf("embedded sub-result = %+v", res.Embedded)
	}
}

func TestFileAnalyzerQRTooLarge(t *testing.T) {
	urls := NewURLAnalyzer(malicious(0.9), 0, quiet)
	fa := NewFileAnalyzer(urls, nil, stubDecoder{payload: "http://evil.example"}, FileOptions{MaxQRBytes: 4}, quiet)
	res := fa.Analyze(context.Background(), "big.png", []byte("0123456789"))
	if res.Score != 0 || res.Embedded != nil {
		t.Errorf("oversized image should skip QR, got %+v", res)
	}
}

func TestFileAnalyzerRealQRCode(t *testing.T) {
	matrix, err := qrcode.NewQRCodeWriter().Encode("http://192.168.1.1/login", gozxing.BarcodeFormat_QR_CODE, 250, 250, nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, matrix); err != nil {
		t.Fatal(err)
	}

	res := newFileAnalyzer(malicious(0.9), qr.NewDecoder()).Analyze(context.Background(), "flyer.png", buf.Bytes())
	if res.Status != models.StatusPhishing || res.Score < EmbeddedLinkFloor {
		t.Errorf("got %s/%d (details %v)", res.Status, res.Score, res.Details)
	}
}

type errDecoder struct{}

func (errDecoder) Decode(context.Context, []byte) (string, error) {
	return "", errors.New("decoder exploded")
}

func TestFileAnalyzerDecoderFailureNeverEscapes(t *testing.T) {
	for _, d := range []qr.Decoder{errDecoder{}, qr.NewDecoder()} {
		res := newFileAnalyzer(benign(), d).Analyze(context.Background(), "broken.png", []byte{0x89, 'P', 'N', 'G', 0, 1})
		if res.Status != models.StatusSafe {
			t.Errorf("status = %s", res.Status)
		}
	}
}

const rawMessage = "From: security@account-verify.example\r\n" +
	"To: user@example.com\r\n" +
	"Subject: Urgent: verify account\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Click here to keep your mailbox.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"eicar.com\"\r\n" +
	"\r\n" +
	eicar + "\r\n" +
	"--BOUNDARY--\r\n"

func TestMessageAnalyzer(t *testing.T) {
	client := benign()
	emails := NewEmailAnalyzer(client, 0, quiet)
	files := newFileAnalyzer(client, nil)

	res, err := NewMessageAnalyzer(emails, files).Analyze(context.Background(), strings.NewReader(rawMessage))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Subject != "Urgent: verify account" {
		t.Errorf("subject = %q", res.Subject)
	}
	if len(res.Attachments) != 1 || res.Attachments[0].Filename != "eicar.com" {
		t.Fatalf("attachments = %+v", res.Attachments)
	}
	if res.Attachments[0].Result.Status != models.StatusMalicious {
		t.Errorf("attachment status = %s", res.Attachments[0].Result.Status)
	}
	if res.Status != models.StatusPhishing || res.Score != 100 {
		t.Errorf("message verdict = %s/%d", res.Status, res.Score)
	}
	if len(client.texts) == 0 || !strings.Contains(client.texts[0], "Click here") {
		t.Errorf("classifier did not see the body: %q", client.texts)
	}
}

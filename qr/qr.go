package qr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	ErrNoCode      = errors.New("no QR code found")
	ErrUnsupported = errors.New("unsupported or corrupt image")
)

// Decoder extracts the text payload of the first QR code in an image.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (string, error)
}

type ZXingDecoder struct{}

func NewDecoder() *ZXingDecoder {
	return &ZXingDecoder{}
}

type decodeResult struct {
	text string
	err  error
}

func (d *ZXingDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	done := make(chan decodeResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- decodeResult{err: fmt.Errorf("%w: decoder panic: %v", ErrUnsupported, r)}
			}
		}()
		text, err := decode(data)
		done <- decodeResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func decode(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	return result.GetText(), nil
}

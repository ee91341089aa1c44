// internal/pkg/qrimage/qrimage.go
package qrimage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

const DefaultSize = 256

// PNG renders content as a square QR code of size x size pixels.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("qr content is empty")
	}

	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr: %w", err)
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, fmt.Errorf("failed to scale qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI renders content as a base64 PNG data URI for direct use in an img tag.
func DataURI(content string) (string, error) {
	raw, err := PNG(content, DefaultSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

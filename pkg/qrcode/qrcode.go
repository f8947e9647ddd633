package qrcode

import (
	"encoding/base64"
	"errors"
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length used when size is zero.
const DefaultSize = 256

var (
	ErrEmptyContent = errors.New("qr code content must not be empty")
	ErrInvalidSize  = errors.New("qr code size must be between 64 and 2048 pixels")
)

// Generate returns a PNG QR code for content.
func Generate(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	if size == 0 {
		size = DefaultSize
	}
	if size < 64 || size > 2048 {
		return nil, ErrInvalidSize
	}

	png, err := goqrcode.Encode(content, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// GenerateBase64Image returns the QR code as a data URI for HTML embedding.
func GenerateBase64Image(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

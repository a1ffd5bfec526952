package client

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
)

// MaxImageBytes is the largest avatar accepted.
const MaxImageBytes = 5 << 20

var (
	ErrImageTooLarge = errors.New("image must be less than 5MB")
	ErrImageNotJPEG  = errors.New("image must be a JPEG")
)

// ImageDataURL reads a JPEG avatar and returns it as an inline data URL.
func ImageDataURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) >= MaxImageBytes {
		return "", ErrImageTooLarge
	}
	if http.DetectContentType(data) != "image/jpeg" {
		return "", ErrImageNotJPEG
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

package images

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"

	"foodgram/internal/utils/storage"

	"github.com/disintegration/imaging"
)

var ErrInvalidImage = errors.New("image must be a base64 encoded picture")

// DecodeBase64 accepts either a bare base64 payload or a data URI
// ("data:image/png;base64,...") and returns the raw bytes of a supported image.
func DecodeBase64(value string) ([]byte, error) {
	payload := value
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ";base64,")
		if idx < 0 {
			return nil, ErrInvalidImage
		}
		payload = payload[idx+len(";base64,"):]
	}

	content, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, ErrInvalidImage
	}
	if _, _, err := storage.DetectType(content, storage.AllowImage...); err != nil {
		return nil, ErrInvalidImage
	}
	return content, nil
}

// FitWidth shrinks images wider than maxWidth, keeping the aspect ratio,
// and re-encodes them as JPEG. Smaller images are returned untouched.
func FitWidth(content []byte, maxWidth int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(content), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrInvalidImage
	}
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return content, nil
	}

	resized := imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Prepare decodes a base64 image and normalises its width.
func Prepare(value string, maxWidth int) ([]byte, error) {
	content, err := DecodeBase64(value)
	if err != nil {
		return nil, err
	}
	return FitWidth(content, maxWidth)
}

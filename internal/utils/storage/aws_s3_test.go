package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	mtype, ext, err := DetectType(png, AllowImage...)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", mtype)
	assert.Equal(t, ".png", ext)

	_, _, err = DetectType([]byte("just text"), AllowImage...)
	assert.ErrorIs(t, err, ErrFileTypeNotAllowed)

	_, _, err = DetectType(nil)
	assert.ErrorIs(t, err, ErrEmptyFile)

	mtype, _, err = DetectType([]byte("just text"))
	assert.NoError(t, err)
	assert.Contains(t, mtype, "text/plain")
}

func TestObjectLinks(t *testing.T) {
	s := &awsS3{bucket: "foodgram", region: "eu-central-1"}
	link := s.GetPublicLinkKey("recipes/abc.png")
	assert.Equal(t, "https://foodgram.s3.eu-central-1.amazonaws.com/recipes/abc.png", link)
	assert.Equal(t, "recipes/abc.png", s.GetObjectKeyFromLink(link))
	assert.Empty(t, s.GetObjectKeyFromLink("https://elsewhere.example.com/recipes/abc.png"))

	minio := &awsS3{bucket: "foodgram", endpoint: "http://localhost:9000"}
	assert.Equal(t, "http://localhost:9000/foodgram/recipes/abc.png", minio.GetPublicLinkKey("recipes/abc.png"))
}

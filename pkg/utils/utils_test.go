package utils

import (
	"mime/multipart"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedFile(t *testing.T) {
	u := New()

	for _, name := range []string{"cat.jpg", "CAT.JPG", "a.b.jpeg", "x.Png", "scan.bmp"} {
		assert.True(t, u.AllowedFile(name), name)
	}
	for _, name := range []string{"cat", "cat.gif", "cat.jpg.exe", "jpg", ".", "cat."} {
		assert.False(t, u.AllowedFile(name), name)
	}
}

func TestValidateImageFile(t *testing.T) {
	u := New()

	assert.ErrorIs(t, u.ValidateImageFile(nil), ErrNoFile)
	assert.ErrorIs(t, u.ValidateImageFile(&multipart.FileHeader{}), ErrEmptyFilename)
	assert.ErrorIs(t, u.ValidateImageFile(&multipart.FileHeader{Filename: "notes.txt"}), ErrUnsupportedExtension)
	assert.NoError(t, u.ValidateImageFile(&multipart.FileHeader{Filename: "street.PNG"}))
}

func TestValidateImageFileSizeLimit(t *testing.T) {
	u := New(WithMaxFileSize(1024))

	assert.NoError(t, u.ValidateImageFile(&multipart.FileHeader{Filename: "a.jpg", Size: 1024}))
	assert.ErrorIs(t, u.ValidateImageFile(&multipart.FileHeader{Filename: "a.jpg", Size: 1025}), ErrFileTooLarge)
	assert.NoError(t, New().ValidateImageFile(&multipart.FileHeader{Filename: "a.jpg", Size: 1 << 40}))
}

func TestSecureFilename(t *testing.T) {
	u := New()

	cases := map[string]string{
		"My cool movie.mov":     "My_cool_movie.mov",
		"../../../etc/passwd":   "etc_passwd",
		"i contain cool \xfcml": "i_contain_cool_ml",
		"straße café.jpg":       "strae_cafe.jpg",
		"  .hidden.png ":        "hidden.png",
		`C:\photos\dog.jpg`:     "Cphotosdog.jpg",
		`a\b.png`:               "ab.png",
		"../":                   "",
	}

	for in, want := range cases {
		assert.Equal(t, want, u.SecureFilename(in), in)
	}
}

func TestStampedFilenameFormat(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.UTC)
	u := New(WithClock(func() time.Time { return fixed }))

	assert.Equal(t, "20240309_140507_123456_dog_photo.jpg", u.StampedFilename("dog photo.jpg"))
}

func TestStampedFilenameNeverRepeats(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	u := New(WithClock(func() time.Time { return fixed }))

	first := u.StampedFilename("dog.jpg")
	second := u.StampedFilename("dog.jpg")

	require.NotEqual(t, first, second)
	assert.Equal(t, "20240309_140507_000000_dog.jpg", first)
	assert.Equal(t, "20240309_140507_000001_dog.jpg", second)
}

func TestNewULIDFromTimestamp(t *testing.T) {
	u := New()

	id, err := u.NewULIDFromTimestamp(time.Now())
	require.NoError(t, err)
	assert.Len(t, id, 26)
}

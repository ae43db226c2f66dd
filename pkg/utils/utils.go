package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"mime/multipart"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNoFile               = errors.New("no file uploaded")
	ErrEmptyFilename        = errors.New("empty filename")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrFileTooLarge         = errors.New("file too large")
)

var DefaultImageExtensions = []string{"jpg", "jpeg", "png", "bmp"}

var filenameStripRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	AllowedFile(filename string) bool
	SecureFilename(filename string) string
	StampedFilename(original string) string
}

type Option func(*utils)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) Option {
	return func(u *utils) {
		u.clock = clock
	}
}

func WithAllowedExtensions(exts ...string) Option {
	return func(u *utils) {
		u.allowed = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			u.allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
		}
	}
}

// WithMaxFileSize rejects uploads larger than n bytes. Zero means no limit.
func WithMaxFileSize(n int64) Option {
	return func(u *utils) {
		u.maxSize = n
	}
}

type utils struct {
	allowed map[string]struct{}
	clock   func() time.Time
	maxSize int64

	mu        sync.Mutex
	lastStamp time.Time
}

func New(opts ...Option) IUtils {
	u := &utils{clock: time.Now}
	WithAllowedExtensions(DefaultImageExtensions...)(u)

	for _, opt := range opts {
		opt(u)
	}

	return u
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return ErrNoFile
	}

	if file.Filename == "" {
		return ErrEmptyFilename
	}

	if !u.AllowedFile(file.Filename) {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, file.Filename)
	}

	if u.maxSize > 0 && file.Size > u.maxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, file.Size, u.maxSize)
	}

	return nil
}

// AllowedFile reports whether filename has an extension from the allowlist.
// The comparison is case-insensitive and only the last extension counts.
func (u *utils) AllowedFile(filename string) bool {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return false
	}

	_, ok := u.allowed[strings.ToLower(filename[idx+1:])]
	return ok
}

// SecureFilename reduces filename to a flat ASCII name that is safe to join
// onto the upload directory. It may return an empty string.
func (u *utils) SecureFilename(filename string) string {
	filename = norm.NFKD.String(filename)

	var b strings.Builder
	for _, r := range filename {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	filename = b.String()

	filename = strings.ReplaceAll(filename, "/", " ")
	filename = strings.Join(strings.Fields(filename), "_")
	filename = filenameStripRe.ReplaceAllString(filename, "")

	return strings.Trim(filename, "._")
}

// StampedFilename prefixes original with a UTC microsecond timestamp and
// sanitizes the result. Stamps never repeat within one process.
func (u *utils) StampedFilename(original string) string {
	u.mu.Lock()
	now := u.clock().UTC().Truncate(time.Microsecond)
	if !now.After(u.lastStamp) {
		now = u.lastStamp.Add(time.Microsecond)
	}
	u.lastStamp = now
	u.mu.Unlock()

	stamp := fmt.Sprintf("%s_%06d", now.Format("20060102_150405"), now.Nanosecond()/int(time.Microsecond))

	return u.SecureFilename(stamp + "_" + original)
}

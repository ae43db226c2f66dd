package config

import (
	"bytes"
	"context"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ProjectDetect/internal/entity"
	"ProjectDetect/internal/model"
	"ProjectDetect/web"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopDetector struct{ closed bool }

func (d *noopDetector) Infer(context.Context, image.Image) (entity.DetectionList, error) {
	return nil, nil
}

func (d *noopDetector) Close() error {
	d.closed = true
	return nil
}

func newTestServer(t *testing.T) (*Server, *noopDetector, string) {
	t.Helper()
	clearEnv(t)
	return buildTestServer(t)
}

func buildTestServer(t *testing.T) (*Server, *noopDetector, string) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("UPLOAD_DIR", dir)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env, err := LoadEnv(NewValidator())
	require.NoError(t, err)

	det := &noopDetector{}
	loader := func(context.Context, model.Source, model.Thresholds) (model.Detector, error) {
		return det, nil
	}
	provider := model.NewProvider(logger, &model.ServiceLocator{URL: "ws://unused"}, loader, env.Thresholds())

	srv, err := NewServer(
		WithFiber(NewFiber(logger, web.NewViews(), env.BodyLimitMB)),
		WithLogger(logger),
		WithEnv(env),
		WithSessionStore(),
		WithMiddleware(),
		WithS3Client(),
		WithProvider(provider),
		WithUtils(),
	)
	require.NoError(t, err)
	require.NoError(t, srv.RegisterHandler())
	srv.Routes()

	return srv, det, dir
}

func get(t *testing.T, srv *Server, target string) (*http.Response, string) {
	t.Helper()
	resp, err := srv.engine.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestNewServerRequiresCoreOptions(t *testing.T) {
	_, err := NewServer(WithLogger(logrus.New()))
	assert.Error(t, err)
}

func TestServerServesUploads(t *testing.T) {
	srv, _, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20240101_000000_000000_a.jpg"), []byte("jpeg bytes"), 0o644))

	resp, body := get(t, srv, "/static/uploads/20240101_000000_000000_a.jpg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg bytes", body)

	resp, _ = get(t, srv, "/static/uploads/missing.jpg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerRoutesAndEncryptedSessionCookie(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Object Detection")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, body = get(t, srv, "/warmup")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, err := srv.engine.Test(httptest.NewRequest(http.MethodPost, "/detect", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotRegexp(t, `^[0-9a-f-]{36}$`, cookie.Value, "session id is encrypted")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	resp, err = srv.engine.Test(req, -1)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), "No file part.")
}

func TestOversizedUploadIsFlashed(t *testing.T) {
	clearEnv(t)
	t.Setenv("BODY_LIMIT_MB", "1")
	srv, _, dir := buildTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", "huge.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89}, 3<<19))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/detect", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := srv.engine.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range resp.Cookies() {
		next.AddCookie(c)
	}
	resp, err = srv.engine.Test(next, -1)
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "File too large.")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestShutdownClosesModel(t *testing.T) {
	srv, det, _ := newTestServer(t)

	_, body := get(t, srv, "/warmup")
	require.Equal(t, "ok", body)

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.True(t, det.closed)
	assert.Equal(t, model.StateFailed, srv.models.State())
}

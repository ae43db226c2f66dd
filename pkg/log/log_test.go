package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureStd(t *testing.T) *bytes.Buffer {
	t.Helper()
	require.Nil(t, logger, "tests expect the standard logger fallback")

	std := logrus.StandardLogger()
	prevOut, prevFmt := std.Out, std.Formatter
	t.Cleanup(func() {
		std.SetOutput(prevOut)
		std.SetFormatter(prevFmt)
	})

	var buf bytes.Buffer
	std.SetOutput(&buf)
	std.SetFormatter(&logrus.JSONFormatter{})
	return &buf
}

func TestErrorWithTraceIDReusesRequestID(t *testing.T) {
	buf := captureStd(t)

	id := ErrorWithTraceID(Fields{RequestIDKey: "01HXYZ"}, "Inference failed")
	assert.Equal(t, "01HXYZ", id)
	assert.Contains(t, buf.String(), `"trace_id":"01HXYZ"`)
	assert.Contains(t, buf.String(), `"msg":"Inference failed"`)
}

func TestErrorWithTraceIDGeneratesOne(t *testing.T) {
	buf := captureStd(t)

	id := ErrorWithTraceID(nil, "Unexpected error")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), id)
}

func TestWithRequestID(t *testing.T) {
	captureStd(t)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-7")
	assert.Equal(t, "req-7", WithRequestID(ctx).Data[RequestIDKey])
	assert.Equal(t, "unknown", WithRequestID(context.Background()).Data[RequestIDKey])
}

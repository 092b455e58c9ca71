package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContextDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWithAttachesAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := With(WithLogger(context.Background(), l), "job", "abc")

	FromContext(ctx).Info("hello")
	require.Contains(t, buf.String(), "job=abc")
	require.Contains(t, buf.String(), "msg=hello")
}

package handlers

import (
	"bufio"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/citizen-admin/internal/stream"
	"github.com/stretchr/testify/assert"
)

func TestWriteEvents(t *testing.T) {
	sub := stream.Start(context.Background(), func(ctx context.Context, emit func(map[string]int) bool) {
		emit(map[string]int{"n": 1})
		emit(nil)
	})
	defer sub.Close()

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	writeEvents(w, sub, time.Hour)

	assert.Equal(t, "data: {\"n\":1}\n\ndata: null\n\nevent: end\ndata: {}\n\n", buf.String())
}

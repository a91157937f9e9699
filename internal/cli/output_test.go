package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/rcliao/hye-memory/internal/model"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b c"}, splitList(" a, ,b c ,"))
	assert.Nil(t, splitList(""))
}

func TestWriteMemory(t *testing.T) {
	color.NoColor = true
	d := float32(0.25)
	m := model.Memory{
		ID:        "01ABC",
		Content:   "Hello world",
		Context:   "morning stream",
		Tags:      []string{"hello", "world"},
		Sentiment: model.Sentiment{Label: "POSITIVE", Score: 0.5},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Distance:  &d,
	}

	var buf bytes.Buffer
	writeMemory(&buf, m)
	out := buf.String()
	assert.Contains(t, out, "01ABC")
	assert.Contains(t, out, "d=0.2500")
	assert.Contains(t, out, "Hello world")
	assert.Contains(t, out, "context: morning stream")
	assert.Contains(t, out, "#hello #world")
}

func TestWriteMemoryDecryptError(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	writeMemory(&buf, model.Memory{ID: "x", DecryptError: "content: decryption failed"})
	assert.Contains(t, buf.String(), "! content: decryption failed")
}

package logger

import (
	"bytes"
	"testing"

	"github.com/beka-birhanu/ohrace/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("levels and prefix", func(t *testing.T) {
		var buf bytes.Buffer
		l, err := New("BATCH", config.ColorCyan, &buf)
		require.NoError(t, err)

		l.Info("started")
		l.Warning("slow episode")
		l.Error("store down")

		out := buf.String()
		assert.Contains(t, out, config.ColorCyan+"[BATCH]"+config.LogColorReset)
		assert.Contains(t, out, "[INFO]"+config.LogColorReset+" started")
		assert.Contains(t, out, "[WARNING]"+config.LogColorReset+" slow episode")
		assert.Contains(t, out, "[ERROR]"+config.LogColorReset+" store down")
		assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("\n")))
	})

	t.Run("nil writer", func(t *testing.T) {
		_, err := New("APP", config.ColorGreen, nil)
		assert.ErrorIs(t, err, ErrNilWriter)
	})
}

// Package logger prints leveled, colored lines tagged with a component prefix.
package logger

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/beka-birhanu/ohrace/config"
)

var ErrNilWriter = errors.New("logger needs a writer")

// Logger writes "[PREFIX] [LEVEL] message" lines.
type Logger struct {
	out *log.Logger
}

// New creates a logger whose prefix is printed in color.
func New(prefix, color string, w io.Writer) (*Logger, error) {
	if w == nil {
		return nil, ErrNilWriter
	}
	tag := fmt.Sprintf("%s[%s]%s ", color, prefix, config.LogColorReset)
	return &Logger{out: log.New(w, tag, log.LstdFlags|log.Lmsgprefix)}, nil
}

func (l *Logger) Info(msg string) {
	l.out.Printf("%s[INFO]%s %s", config.LogInfoColor, config.LogColorReset, msg)
}

func (l *Logger) Warning(msg string) {
	l.out.Printf("%s[WARNING]%s %s", config.LogWarningColor, config.LogColorReset, msg)
}

func (l *Logger) Error(msg string) {
	l.out.Printf("%s[ERROR]%s %s", config.LogErrorColor, config.LogColorReset, msg)
}

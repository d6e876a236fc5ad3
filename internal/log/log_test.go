package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		logFn   func(l Logger)
		want    []string
		notWant []string
	}{
		{
			name:  "text format includes message and attrs",
			cfg:   Config{Level: slog.LevelInfo},
			logFn: func(l Logger) { l.Info("hello", "key", "value") },
			want:  []string{"hello", "key=value"},
		},
		{
			name:  "json format",
			cfg:   Config{Level: slog.LevelInfo, JSON: true},
			logFn: func(l Logger) { l.Info("hello") },
			want:  []string{`"msg":"hello"`},
		},
		{
			name:    "debug suppressed at info level",
			cfg:     Config{Level: slog.LevelInfo},
			logFn:   func(l Logger) { l.Debug("quiet") },
			notWant: []string{"quiet"},
		},
		{
			name:  "debug visible at debug level",
			cfg:   Config{Level: slog.LevelDebug},
			logFn: func(l Logger) { l.Debug("loud") },
			want:  []string{"loud"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, tt.cfg)
			tt.logFn(logger)

			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("output %q should not contain %q", out, nw)
				}
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	// Must not panic and must accept all levels.
	logger.Debug("a")
	logger.Info("b")
	logger.Warn("c")
	logger.Error("d")
}

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/slopewise/slopewise/pkg/errors"
)

func TestErrFmtHandlerAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	err := errors.NewNotTrainedError("Threshold", "Predict")
	logger.Error("prediction rejected", ErrAttr(err))

	var record map[string]any
	if jerr := json.Unmarshal(buf.Bytes(), &record); jerr != nil {
		t.Fatalf("log output is not JSON: %v", jerr)
	}
	if _, ok := record[ErrAttrKey]; !ok {
		t.Error("record is missing the error attribute")
	}
	if st, ok := record[StacktraceAttrKey].(string); !ok || st == "" {
		t.Error("record is missing the extracted stacktrace")
	}
}

func TestGetLoggerWithName(t *testing.T) {
	var buf bytes.Buffer
	prev := GetLogger()
	SetLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer SetLogger(prev)

	GetLoggerWithName("crossval").Info("fold complete", FoldKey, 3)

	out := buf.String()
	if !strings.Contains(out, `"component":"crossval"`) {
		t.Errorf("missing component attribute: %s", out)
	}
	if !strings.Contains(out, `"fold":3`) {
		t.Errorf("missing fold attribute: %s", out)
	}
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		if got := ToLogLevel(tt.in); got != tt.want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

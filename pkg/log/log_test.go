package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/YuminosukeSato/stopcast/pkg/errors"
)

// TestLoggerInterface tests the TestLogger implementation of Logger
func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationPrequential)
	testLogger.Warn("warning message", "warning_code", "TEST_WARNING")
	testLogger.Error("error message", fmt.Errorf("test error"), ErrorCodeKey, ErrorWrite)

	if buffer.String() == "" {
		t.Fatal("Expected log output, got empty string")
	}

	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("%q not found in output", msg)
		}
	}

	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "test error") {
		t.Error("Expected leading error to be stored under the error key")
	}
}

// TestLoggerWith tests contextual fields
func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	stopLogger := testLogger.With(
		ComponentKey, "pipeline",
		StopIDKey, 7,
		StopNameKey, "Lapa",
	)
	stopLogger.Info("stop processed", SamplesKey, 96)

	if !testLogger.ContainsField(ComponentKey, "pipeline") {
		t.Error("Component context not found")
	}
	if !testLogger.ContainsField(StopIDKey, 7.0) {
		t.Error("Stop id context not found")
	}
	if !testLogger.ContainsField(SamplesKey, 96.0) {
		t.Error("Samples field not found")
	}
}

// TestLoggerEnabled tests level filtering
func TestLoggerEnabled(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	ctx := context.Background()

	if !testLogger.Enabled(ctx, LevelInfo) {
		t.Error("Logger should be enabled for Info level")
	}
	if testLogger.Enabled(ctx, LevelDebug) {
		t.Error("Logger should not be enabled for Debug level")
	}

	testLogger.Debug("this should not appear")
	testLogger.Info("this should appear")

	if testLogger.ContainsMessage("this should not appear") {
		t.Error("Debug message should not appear when level is Info")
	}
	if !testLogger.ContainsMessage("this should appear") {
		t.Error("Info message should appear when level is Info")
	}
}

// TestConcurrentLogging tests that the capturing logger is safe for concurrent use
func TestConcurrentLogging(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	const numGoroutines = 4
	const messagesPerGoroutine = 25

	done := make(chan struct{}, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			l := testLogger.With("goroutine_id", id)
			for j := 0; j < messagesPerGoroutine; j++ {
				l.Info("message", "message_id", j)
			}
		}(i)
	}
	for i := 0; i < numGoroutines; i++ {
		<-done
	}

	entries, err := testLogger.GetLogEntries()
	if err != nil {
		t.Fatalf("Failed to parse log entries: %v", err)
	}
	if len(entries) != numGoroutines*messagesPerGoroutine {
		t.Errorf("Expected %d log entries, got %d", numGoroutines*messagesPerGoroutine, len(entries))
	}
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ToLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// TestSetupLoggerCloudLoggingLayout checks the renamed keys and the stack trace attribute
func TestSetupLoggerCloudLoggingLayout(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	if err := SetupLogger("info", &buf); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}

	GetLogger().Error("write failed", errors.NewWriteError("out/x.csv", nil), OutputPathKey, "out/x.csv")

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	if entry["severity"] != "ERROR" {
		t.Errorf("severity = %v", entry["severity"])
	}
	if entry["message"] != "write failed" {
		t.Errorf("message = %v", entry["message"])
	}
	if _, ok := entry["logging.googleapis.com/sourceLocation"]; !ok {
		t.Error("expected source location attribute")
	}
	if typ, _ := entry[ErrTypeAttrKey].(string); !strings.Contains(typ, "WriteError") {
		t.Errorf("error.type = %v", entry[ErrTypeAttrKey])
	}
}

func TestEnableZerologWarnings(t *testing.T) {
	var buf bytes.Buffer
	if _, err := EnableZerologWarnings(&buf, "debug"); err != nil {
		t.Fatal(err)
	}
	defer errors.SetZerologWarnFunc(nil)

	errors.Warn(errors.NewModelDriftWarning("ADWIN", 1, 0.5, 0.001, "reset"))
	errors.Warn(errors.NewValueError("Loader", "slow download"))

	out := buf.String()
	if !strings.Contains(out, `"level":"debug"`) {
		t.Errorf("expected drift warning at debug level in %s", out)
	}
	if !strings.Contains(out, `"type":"ModelDriftWarning"`) {
		t.Errorf("expected structured warning fields in %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected other warnings at warn level in %s", out)
	}
}

func TestEnableZerologWarningsFiltersDrift(t *testing.T) {
	var buf bytes.Buffer
	if _, err := EnableZerologWarnings(&buf, "info"); err != nil {
		t.Fatal(err)
	}
	defer errors.SetZerologWarnFunc(nil)

	for i := 0; i < 20; i++ {
		errors.Warn(errors.NewModelDriftWarning("ADWIN", i, 0.5, 0.001, "swap_background"))
	}
	if buf.Len() != 0 {
		t.Errorf("drift warnings leaked at info level: %s", buf.String())
	}

	if _, err := EnableZerologWarnings(&buf, "verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func BenchmarkLoggingWithContext(b *testing.B) {
	testLogger, _ := NewTestLogger(LevelInfo)
	contextLogger := testLogger.With(
		ModelNameKey, "AdaptiveRandomForestRegressor",
		ComponentKey, "benchmark",
	)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		contextLogger.Info("benchmark message",
			"iteration", i,
			OperationKey, OperationPredict,
		)
	}
}

func TestTestLoggerAcceptsAttrs(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)
	testLogger := logger.With(ComponentKey, "dataset").(*TestLogger)

	testLogger.Debug("fallback", SourceKey, "/missing.csv", ErrAttr(errors.New("no such file")), StopsKey, 3)

	if !testLogger.ContainsField(ErrAttrKey, "no such file") {
		t.Error("slog.Attr error field was not captured")
	}
	if !testLogger.ContainsField(StopsKey, float64(3)) {
		t.Error("key-value pair after an Attr was not captured")
	}
	if !testLogger.ContainsField(ComponentKey, "dataset") {
		t.Error("With fields were not captured")
	}
}

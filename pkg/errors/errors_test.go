package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "stopcast: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "stopcast: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 5, 3, 1)

	want := "stopcast: Predict: dimension mismatch on axis 1 (features). Expected 5, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("HoeffdingTreeRegressor", "Predict")

	want := "stopcast: HoeffdingTreeRegressor: this model is not fitted yet. Call Fit() or PartialFit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestDataUnavailableError(t *testing.T) {
	cause := fmt.Errorf("HTTP 404")
	err := NewDataUnavailableError([]string{"/tmp/missing.csv", "https://example.com/data.csv"}, cause)

	want := "stopcast: dataset unavailable (tried: /tmp/missing.csv, https://example.com/data.csv): HTTP 404"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dataErr *DataUnavailableError
	if !As(err, &dataErr) {
		t.Fatal("Error should be castable to *DataUnavailableError")
	}
	if len(dataErr.Sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(dataErr.Sources))
	}
	if !Is(err, cause) {
		t.Error("Expected cause to be reachable with Is")
	}
}

func TestWriteError(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := Wrap(NewWriteError("out/predictions_stop_0.csv", cause), "writing stop 0")

	var writeErr *WriteError
	if !As(err, &writeErr) {
		t.Fatal("Error should be castable to *WriteError")
	}
	if writeErr.Path != "out/predictions_stop_0.csv" {
		t.Errorf("Path = %q", writeErr.Path)
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("Expected cause in message: %v", err)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrEmptyData, "in HoeffdingTreeRegressor.Fit")

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	if !strings.Contains(wrapped.Error(), "in HoeffdingTreeRegressor.Fit") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestNumericalInstabilityErrorTruncatesValues(t *testing.T) {
	err := NewNumericalInstabilityError("leaf_model_update", []float64{1, 2, 3, 4, 5, 6, 7}, 12)

	msg := err.Error()
	if !strings.Contains(msg, "leaf_model_update") || !strings.Contains(msg, "iteration 12") {
		t.Errorf("unexpected message: %s", msg)
	}
	if !strings.Contains(msg, "...") {
		t.Errorf("expected truncated values in message: %s", msg)
	}
}

func TestWarnRoutesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	SetZerologWarnFunc(func(w error) {
		ev := logger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(m)
		}
		ev.Msg(w.Error())
	})
	defer SetZerologWarnFunc(nil)

	Warn(NewModelDriftWarning("ADWIN", 3, 0.8, 0.001, "swap_background"))

	out := buf.String()
	if !strings.Contains(out, `"detector":"ADWIN"`) {
		t.Errorf("expected detector field in %s", out)
	}
	if !strings.Contains(out, `"member":3`) {
		t.Errorf("expected member field in %s", out)
	}
}

func TestWarnFallsBackToHandler(t *testing.T) {
	var got error
	SetWarningHandler(func(w error) { got = w })
	defer SetWarningHandler(nil)

	w := NewModelDriftWarning("PageHinkley", 0, 60, 50, "reset")
	Warn(w)

	if got != w {
		t.Errorf("expected handler to receive the warning, got %v", got)
	}
}

func TestDefaultWarningHandlerLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	defer slog.SetDefault(prev)

	Warn(NewModelDriftWarning("ADWIN", 0, 1.2, 0.001, "reset"))
	if buf.Len() != 0 {
		t.Errorf("drift warning should be hidden at info level, got %q", buf.String())
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Warn(NewModelDriftWarning("ADWIN", 0, 1.2, 0.001, "reset"))
	if !strings.Contains(buf.String(), "model drift detected by ADWIN") {
		t.Errorf("expected drift warning at debug level, got %q", buf.String())
	}
}

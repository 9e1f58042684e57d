package engine

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"macdbot/internal/strategy"
)

func TestDecisionLoggerAppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.ndjson")
	logger, err := NewDecisionLogger(path, "run-1")
	if err != nil {
		t.Fatalf("open logger: %v", err)
	}

	stop := 97.0
	logger.Append(DecisionRecord{
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Pair:      "BTC/USD",
		Price:     100,
		Action:    strategy.Buy,
		Reason:    "MACD golden cross",
		Result:    "executed",
		OrderID:   "42",
		StopLoss:  &stop,
	})
	logger.Append(DecisionRecord{
		Timestamp: time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC),
		Pair:      "BTC/USD",
		Price:     101,
		Action:    strategy.Hold,
		Reason:    "No exit signal",
		Result:    "hold",
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()

	var records []DecisionRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec DecisionRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("bad NDJSON line: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RunID != "run-1" {
		t.Fatalf("run id not stamped: %+v", records[0])
	}
	if records[0].StopLoss == nil || *records[0].StopLoss != 97 {
		t.Fatalf("stop loss not preserved: %+v", records[0])
	}
	if records[1].StopLoss != nil {
		t.Fatalf("hold record should omit stop loss")
	}
}

package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"macdbot/internal/strategy"
)

// DecisionRecord is one NDJSON line in the decision log: what the strategy
// wanted, what the gate and venue did with it.
type DecisionRecord struct {
	RunID        string          `json:"run_id"`
	Timestamp    time.Time       `json:"timestamp"`
	Pair         string          `json:"pair"`
	Price        float64         `json:"price"`
	Action       strategy.Action `json:"action"`
	Reason       string          `json:"reason"`
	Result       string          `json:"result"`
	RejectReason string          `json:"reject_reason,omitempty"`
	OrderID      string          `json:"order_id,omitempty"`
	Quantity     float64         `json:"quantity,omitempty"`
	StopLoss     *float64        `json:"stop_loss,omitempty"`
	TakeProfit   *float64        `json:"take_profit,omitempty"`
}

// DecisionLogger appends records to an NDJSON file, one line per evaluation
// that produced a non-trivial outcome.
type DecisionLogger struct {
	runID  string
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewDecisionLogger opens (or creates) the log at path in append mode.
func NewDecisionLogger(path, runID string) (*DecisionLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &DecisionLogger{runID: runID, file: file, writer: bufio.NewWriter(file)}, nil
}

func (d *DecisionLogger) RunID() string { return d.runID }

// Append writes one record and flushes. Errors are reported to stderr rather
// than propagated; a broken decision log must not stop trading.
func (d *DecisionLogger) Append(rec DecisionRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec.RunID = d.runID
	payload, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal decision: %v\n", err)
		return
	}
	if _, err := d.writer.Write(append(payload, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write decision: %v\n", err)
		return
	}
	if err := d.writer.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush decision log: %v\n", err)
	}
}

func (d *DecisionLogger) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.writer.Flush(); err != nil {
		_ = d.file.Close()
		return err
	}
	return d.file.Close()
}

package logging

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxURI = 2048

// Decision is written as a single JSON object per request.
type Decision struct {
	Timestamp   time.Time `json:"ts"`
	RequestID   string    `json:"request_id"`
	ClientIP    string    `json:"client_ip"`
	Host        string    `json:"host"`
	Method      string    `json:"method"`
	URI         string    `json:"uri"`
	Slot        string    `json:"slot"`
	Source      string    `json:"source"`
	Matched     bool      `json:"matched"`
	Pattern     string    `json:"pattern,omitempty"`
	Replacement string    `json:"replacement,omitempty"`
	Score       int       `json:"score"`
	StatusCode  int       `json:"status_code"`
	DurationMS  int64     `json:"duration_ms"`
}

type DecisionLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewDecisionLogger(w io.Writer) *DecisionLogger {
	return &DecisionLogger{w: w}
}

func OpenDecisionLog(path string) (*DecisionLogger, func() error, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return NewDecisionLogger(file), file.Close, nil
}

func (l *DecisionLogger) Write(decision Decision) error {
	if len(decision.URI) > maxURI {
		decision.URI = decision.URI[:maxURI]
	}

	data, err := json.Marshal(decision)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.w.Write(append(data, '\n'))
	return err
}

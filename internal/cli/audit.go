// Audit trail sink for the narrative CLI.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	audithook "github.com/xraph/narrative/audit_hook"
)

// auditLog appends audit events to a file as JSON lines.
type auditLog struct {
	mu sync.Mutex
	f  *os.File
}

func openAuditLog(path string) (*auditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &auditLog{f: f}, nil
}

type auditLine struct {
	Time time.Time `json:"time"`
	*audithook.AuditEvent
}

// Record implements audithook.Recorder.
func (l *auditLog) Record(_ context.Context, event *audithook.AuditEvent) error {
	data, err := json.Marshal(auditLine{Time: time.Now().UTC(), AuditEvent: event})
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.f.Write(append(data, '\n'))
	return err
}

func (l *auditLog) Close() error { return l.f.Close() }

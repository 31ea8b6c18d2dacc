package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Audit constants.
const (
	ActionHandlerException = "eventbus.handler.exception"
	AuditFileName          = "security-audit.jsonl"
	AuditRootEnv           = "AUDIT_LOG_ROOT"

	maxReasonLen  = 512
	maxMessageLen = 4096
	maxStackLen   = 16384
)

// AuditEntry is one line of the security audit trail.
type AuditEntry struct {
	Timestamp        time.Time `json:"ts"`
	Action           string    `json:"action"`
	Reason           string    `json:"reason"`
	Target           string    `json:"target"`
	Caller           string    `json:"caller"`
	EventSource      string    `json:"event_source"`
	EventID          string    `json:"event_id"`
	Handler          string    `json:"handler"`
	ExceptionType    string    `json:"exception_type"`
	ExceptionMessage string    `json:"exception_message"`
	Stack            string    `json:"stack"`
}

// AuditLog is an append-only sink for audit entries.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// HandlerFailure builds the audit entry for a subscriber that returned an
// error or panicked while handling env.
func HandlerFailure(env Envelope, handler string, cause any, stack []byte, now time.Time) AuditEntry {
	typ := fmt.Sprintf("%T", cause)
	msg := fmt.Sprint(cause)
	if err, ok := cause.(error); ok {
		msg = err.Error()
	}
	return AuditEntry{
		Timestamp:        now.UTC(),
		Action:           ActionHandlerException,
		Reason:           typ + ": " + truncate(msg, maxReasonLen),
		Target:           env.Type,
		Caller:           currentUser(),
		EventSource:      env.Source,
		EventID:          env.ID,
		Handler:          handler,
		ExceptionType:    typ,
		ExceptionMessage: truncate(msg, maxMessageLen),
		Stack:            truncate(string(stack), maxStackLen),
	}
}

// truncate cuts s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	for _, key := range []string{"USER", "USERNAME"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "<unknown>"
}

// FileAuditLog appends JSON lines to security-audit.jsonl under a root
// directory. Writes are serialized within the process.
type FileAuditLog struct {
	root string

	mu sync.Mutex
}

// NewFileAuditLog returns a file sink rooted at root. An empty root is
// resolved per write through ResolveAuditRoot.
func NewFileAuditLog(root string) *FileAuditLog {
	return &FileAuditLog{root: root}
}

// Path returns the file the sink writes to for entries stamped at ts.
func (l *FileAuditLog) Path(ts time.Time) string {
	return filepath.Join(ResolveAuditRoot(l.root, ts), AuditFileName)
}

// Append writes entry as one JSON line, creating directories as needed.
func (l *FileAuditLog) Append(_ context.Context, entry AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	path := l.Path(entry.Timestamp)

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("audit: create dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("audit: write %s: %w", path, err)
	}
	return f.Close()
}

// ResolveAuditRoot picks the audit directory: the explicit root, then
// $AUDIT_LOG_ROOT, then logs/ci/<yyyy-mm-dd>. Relative roots are joined to
// the enclosing repository root when one can be found.
func ResolveAuditRoot(explicit string, ts time.Time) string {
	root := strings.TrimSpace(explicit)
	if root == "" {
		root = strings.TrimSpace(os.Getenv(AuditRootEnv))
	}
	if root == "" {
		root = filepath.Join("logs", "ci", ts.UTC().Format("2006-01-02"))
	}
	if filepath.IsAbs(root) {
		return root
	}
	if repo := findRepoRoot(); repo != "" {
		return filepath.Join(repo, root)
	}
	return root
}

// findRepoRoot walks up from the working directory looking for go.mod or
// .git.
func findRepoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for range 24 {
		for _, marker := range []string{"go.mod", ".git"} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// MultiAuditLog writes every entry to all sinks, joining their errors.
func MultiAuditLog(logs ...AuditLog) AuditLog {
	return multiAuditLog(logs)
}

type multiAuditLog []AuditLog

func (m multiAuditLog) Append(ctx context.Context, entry AuditEntry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

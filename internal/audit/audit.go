// Package audit provides audit logging for manifest operations, separate
// from technical logs: one JSON line per signing or verification event, with
// tamper evidence via cryptographic hash chaining.
//
// Key principles:
//   - Audit failure = operation failure
//   - Never log secrets (private keys, keystore passwords)
//   - All timestamps in UTC
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventSign   EventType = "MANIFEST_SIGN"
	EventVerify EventType = "MANIFEST_VERIFY"
	EventEmbed  EventType = "MANIFEST_EMBED"
)

// Result is the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// GenesisHash seeds the hash chain.
const GenesisHash = "sha256:genesis"

// Event is a single audit log entry.
type Event struct {
	EventType EventType `json:"event_type"`
	Timestamp string    `json:"timestamp"` // RFC3339 UTC
	Actor     string    `json:"actor"`
	Host      string    `json:"host,omitempty"`
	Asset     string    `json:"asset,omitempty"`    // input file
	Manifest  string    `json:"manifest,omitempty"` // manifest label
	Signer    string    `json:"signer,omitempty"`   // signing certificate subject
	Errors    int       `json:"errors"`             // error statuses reported
	Result    Result    `json:"result"`
	HashPrev  string    `json:"hash_prev"`
	Hash      string    `json:"hash"`
}

// NewEvent builds an event stamped with the current time and local actor.
func NewEvent(eventType EventType, result Result) *Event {
	hostname, _ := os.Hostname()
	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	if username == "" {
		username = "unknown"
	}
	return &Event{
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Actor:     username,
		Host:      hostname,
		Result:    result,
	}
}

var (
	mu     sync.Mutex
	logger *fileWriter
)

// InitFile opens (or creates) the audit log at path. Events recorded before
// InitFile are discarded.
func InitFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	w, err := newFileWriter(path)
	if err != nil {
		return err
	}
	logger = w
	return nil
}

// Record writes the event to the audit log; a failed write is an error the
// operation must surface. With no log configured, events are discarded.
func Record(event *Event) error {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return nil
	}
	return logger.Write(event)
}

// Close flushes and closes the audit log.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		return nil
	}
	err := logger.Close()
	logger = nil
	return err
}

// fileWriter appends hash-chained JSON lines to a file, fsyncing each write.
type fileWriter struct {
	file     *os.File
	lastHash string
}

func newFileWriter(path string) (*fileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	w := &fileWriter{file: f, lastHash: GenesisHash}
	if last, err := lastHashInFile(path); err == nil && last != "" {
		w.lastHash = last
	}
	return w, nil
}

// lastHashInFile recovers the chain tail from an existing log.
func lastHashInFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	last := ""
	start := 0
	for i := 0; i <= len(data); i++ {
		if i == len(data) || data[i] == '\n' {
			line := data[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var ev Event
			if err := json.Unmarshal(line, &ev); err == nil && ev.Hash != "" {
				last = ev.Hash
			}
		}
	}
	return last, nil
}

func (w *fileWriter) Write(event *Event) error {
	if event.EventType == "" || event.Timestamp == "" || event.Result == "" {
		return fmt.Errorf("audit event is missing required fields")
	}
	event.HashPrev = w.lastHash
	event.Hash = ""
	unhashed, err := json.Marshal(event)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(unhashed)
	event.Hash = "sha256:" + hex.EncodeToString(sum[:])

	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("syncing audit log: %w", err)
	}
	w.lastHash = event.Hash
	return nil
}

func (w *fileWriter) Close() error {
	return w.file.Close()
}

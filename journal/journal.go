// Package journal provides an append-only audit log of every action intent
// and outcome. Each entry is a single JSON line, flushed on write so the
// trail survives a crash mid-action.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EntryType classifies a journal entry
type EntryType string

const (
	EntryIntent    EntryType = "intent"
	EntryExecuted  EntryType = "executed"
	EntrySkipped   EntryType = "skipped"
	EntryFailed    EntryType = "failed"
	EntryCleanup   EntryType = "cleanup"
	EntryReconcile EntryType = "reconcile"
)

// Entry is a single journal record
type Entry struct {
	Timestamp  time.Time       `json:"timestamp"`
	Sequence   int64           `json:"sequence"`
	Type       EntryType       `json:"type"`
	ResourceID string          `json:"resource_id,omitempty"`
	OwnerID    string          `json:"owner_id,omitempty"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Journal writes the audit trail for a single process lifetime
type Journal struct {
	mu       sync.Mutex
	file     *os.File
	writer   *bufio.Writer
	sequence int64
	dir      string
}

// Open creates or opens a journal in the specified directory
func Open(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	// Timestamp in filename so each process run gets its own segment
	filename := fmt.Sprintf("vahti-%s.journal", time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Journal{
		file:   file,
		writer: bufio.NewWriter(file),
		dir:    dir,
	}, nil
}

// Close flushes and closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Flush(); err != nil {
		return err
	}
	return j.file.Close()
}

// Append adds an entry to the journal
func (j *Journal) Append(entryType EntryType, resourceID, ownerID string, data interface{}) error {
	return j.append(entryType, resourceID, ownerID, data, nil)
}

// AppendError adds an entry recording a failed action
func (j *Journal) AppendError(entryType EntryType, resourceID, ownerID string, data interface{}, cause error) error {
	return j.append(entryType, resourceID, ownerID, data, cause)
}

func (j *Journal) append(entryType EntryType, resourceID, ownerID string, data interface{}, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	j.sequence++
	entry := Entry{
		Timestamp:  time.Now(),
		Sequence:   j.sequence,
		Type:       entryType,
		ResourceID: resourceID,
		OwnerID:    ownerID,
		Data:       jsonData,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	return j.writeEntry(entry)
}

func (j *Journal) writeEntry(entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	if _, err := j.writer.Write(line); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	if _, err := j.writer.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	// Flush and sync immediately for durability
	if err := j.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	return j.file.Sync()
}

// Reader iterates over the entries of one journal segment
type Reader struct {
	scanner *bufio.Scanner
	file    *os.File
}

// NewReader opens a journal segment for reading
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}

	return &Reader{
		scanner: bufio.NewScanner(file),
		file:    file,
	}, nil
}

// Next reads the next entry, returning io.EOF at the end of the segment
func (r *Reader) Next() (*Entry, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	var entry Entry
	if err := json.Unmarshal(r.scanner.Bytes(), &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &entry, nil
}

// Close closes the reader
func (r *Reader) Close() error {
	return r.file.Close()
}

// Replay walks every segment in dir and invokes handler for each entry
// at or after since.
func Replay(dir string, since time.Time, handler func(*Entry) error) error {
	files, err := filepath.Glob(filepath.Join(dir, "vahti-*.journal"))
	if err != nil {
		return fmt.Errorf("failed to list journal files: %w", err)
	}

	for _, file := range files {
		if err := replayFile(file, since, handler); err != nil {
			return err
		}
	}
	return nil
}

func replayFile(path string, since time.Time, handler func(*Entry) error) error {
	reader, err := NewReader(path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.Timestamp.Before(since) {
			continue
		}
		if err := handler(entry); err != nil {
			return err
		}
	}
}

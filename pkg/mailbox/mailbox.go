// Package mailbox implements the file-based rendezvous point through
// which one worker process leaves messages for another to poll.
//
// A mailbox is a single append-only file of newline-framed messages.
// Writers open the target's mailbox transiently, append, and close;
// the owning process polls its own mailbox and consumes messages in
// batches. The file is a rendezvous artifact, not a database: the
// owner truncates consumed content and removes the file on shutdown.
package mailbox

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval is how often an owning mailbox checks its file
// for new messages.
const DefaultPollInterval = 250 * time.Millisecond

// Path derives the mailbox file path for a process identity inside the
// shared directory. The leading dot keeps mailboxes out of casual
// directory listings; the suffix reserves the name for this protocol.
func Path(sharedDir, identity string) string {
	return filepath.Join(sharedDir, "."+identity+".ipc")
}

// Mailbox is a handle on one mailbox file. A writer-side handle only
// ever calls Write and Close; the owner additionally consumes Batches.
type Mailbox struct {
	path         string
	pollInterval time.Duration

	mu     sync.Mutex
	offset int64

	closed  atomic.Bool
	stop    chan struct{}
	batchCh chan []string
	once    sync.Once
}

// Open returns a handle on the mailbox file at path. The file itself
// is created lazily on first write.
func Open(path string) *Mailbox {
	return &Mailbox{
		path:         path,
		pollInterval: DefaultPollInterval,
		stop:         make(chan struct{}),
	}
}

// SetPollInterval overrides the batch poll cadence. Only meaningful
// before Batches is first called.
func (m *Mailbox) SetPollInterval(d time.Duration) {
	if d > 0 {
		m.pollInterval = d
	}
}

// Write appends one message to the mailbox. Messages must not contain
// raw newlines; JSON-encoded payloads satisfy this by construction.
func (m *Mailbox) Write(message string) error {
	if m.closed.Load() {
		return fmt.Errorf("mailbox %s is closed", m.path)
	}
	if strings.ContainsRune(message, '\n') {
		return fmt.Errorf("mailbox message contains newline")
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open mailbox %s: %w", m.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(message + "\n"); err != nil {
		return fmt.Errorf("failed to write mailbox %s: %w", m.path, err)
	}
	return nil
}

// Batches returns a lazy, unbounded sequence of message batches read
// from the mailbox file. The channel is unbuffered: the consumer's
// pace drives the polling loop. The channel closes when the mailbox
// is closed; the loop is not restartable once it exits.
func (m *Mailbox) Batches() <-chan []string {
	m.once.Do(func() {
		m.batchCh = make(chan []string)
		go m.pollLoop()
	})
	return m.batchCh
}

func (m *Mailbox) pollLoop() {
	defer close(m.batchCh)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}

		batch, err := m.readNew()
		if err != nil || len(batch) == 0 {
			continue
		}

		select {
		case m.batchCh <- batch:
		case <-m.stop:
			return
		}
	}
}

// readNew reads complete lines appended since the last poll. A file
// smaller than the recorded offset means the mailbox was recreated;
// reading restarts from the beginning.
func (m *Mailbox) readNew() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			m.offset = 0
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < m.offset {
		m.offset = 0
	}
	if info.Size() == m.offset {
		return nil, nil
	}

	if _, err := f.Seek(m.offset, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	// Only complete lines count; a partial trailing write is left for
	// the next poll.
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, nil
	}
	m.offset += int64(end + 1)

	var batch []string
	for _, line := range bytes.Split(data[:end], []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		batch = append(batch, string(line))
	}
	return batch, nil
}

// Close stops the polling loop and optionally removes the mailbox
// file. Idempotent; the removeFile flag only applies on the first
// call.
func (m *Mailbox) Close(removeFile bool) error {
	if m.closed.Swap(true) {
		return nil
	}
	close(m.stop)
	if removeFile {
		if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove mailbox %s: %w", m.path, err)
		}
	}
	return nil
}

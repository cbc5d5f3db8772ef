// Package lock provides single-writer mutual exclusion across concurrent
// update-engine invocations on the same host, realized as a crash-safe
// lock file with stale-lock recovery.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrLockHeld is returned by Acquire when a live, non-stale lock is held by
// another process.
var ErrLockHeld = errors.New("lock held by another process")

// StaleThreshold is the age beyond which a lock file is considered
// abandoned and eligible for reaping, regardless of whether its recorded
// PID is still alive.
const StaleThreshold = time.Hour

// payload is the on-disk content of the lock file: enough information for
// the next invocation to decide whether it is stale.
type payload struct {
	PID       int       `json:"pid"`
	CreatedAt time.Time `json:"created_at"`
}

// Token is an opaque handle proving exclusive update permission on this
// host, realized on disk as the lock file at its path. It is destroyed by
// Release or by process exit (the caller must defer Release).
type Token struct {
	path   string
	logger *slog.Logger
}

// Manager acquires and releases the single update lock at path.
type Manager struct {
	path   string
	logger *slog.Logger
}

// NewManager builds a Manager whose lock file lives at path.
func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{path: path, logger: logger}
}

// Acquire creates the lock file using an exclusive-create operation. If a
// lock file already exists, its payload is inspected: if it is older than
// StaleThreshold or its recorded PID is no longer running, it is deleted
// and acquisition is retried exactly once. Otherwise ErrLockHeld is
// returned.
func (m *Manager) Acquire() (*Token, error) {
	tok, err := m.tryAcquire()
	if err == nil {
		return tok, nil
	}
	if !os.IsExist(err) {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	if m.reapIfStale() {
		tok, err = m.tryAcquire()
		if err == nil {
			return tok, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock after reap: %w", err)
		}
	}

	m.logger.Debug("lock held by another live process", "path", m.path)
	return nil, ErrLockHeld
}

func (m *Manager) tryAcquire() (*Token, error) {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p := payload{PID: os.Getpid(), CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(p)
	if err != nil {
		os.Remove(m.path)
		return nil, err
	}
	if _, err := f.Write(data); err != nil {
		os.Remove(m.path)
		return nil, err
	}

	m.logger.Info("lock acquired", "path", m.path, "pid", p.PID)
	return &Token{path: m.path, logger: m.logger}, nil
}

// reapIfStale deletes the existing lock file if it is stale (old or its
// owning PID is dead), returning whether it reaped anything.
func (m *Manager) reapIfStale() bool {
	data, err := os.ReadFile(m.path)
	if err != nil {
		// Lock disappeared between our failed create and this read; let
		// the caller's retry pick it up.
		return os.IsNotExist(err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		m.logger.Warn("lock file unparseable, reaping", "path", m.path, "error", err)
		return m.removeLock()
	}

	if time.Since(p.CreatedAt) > StaleThreshold {
		m.logger.Warn("lock file stale by age, reaping", "path", m.path, "pid", p.PID, "created_at", p.CreatedAt)
		return m.removeLock()
	}

	if !processAlive(p.PID) {
		m.logger.Warn("lock file owner no longer running, reaping", "path", m.path, "pid", p.PID)
		return m.removeLock()
	}

	return false
}

func (m *Manager) removeLock() bool {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		m.logger.Error("failed to reap stale lock", "path", m.path, "error", err)
		return false
	}
	return true
}

// Release deletes the lock file. It re-reads the payload first and only
// deletes when the PID recorded matches this process, mirroring a
// guarded delete so this token never removes a lock it does not own.
func (t *Token) Release() error {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("release lock: %w", err)
	}

	var p payload
	if err := json.Unmarshal(data, &p); err == nil && p.PID != os.Getpid() {
		t.logger.Warn("lock file owned by a different pid at release time, not removing", "path", t.path, "owner_pid", p.PID)
		return nil
	}

	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock: %w", err)
	}
	t.logger.Info("lock released", "path", t.path)
	return nil
}

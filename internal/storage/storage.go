package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const lockFileName = ".lock"

// ErrWorkspaceBusy is returned when another run holds the workspace.
var ErrWorkspaceBusy = errors.New("workspace is in use by another run")

// Manager owns the workspace root and hands out one lease at a time
type Manager struct {
	root   string
	lock   *flock.Flock
	logger *logrus.Logger
	mu     sync.Mutex
	active bool
}

// Lease is exclusive use of one output directory for the length of a run
type Lease struct {
	ID       string
	dir      string
	tracked  []string
	manager  *Manager
	released bool
}

// NewManager creates a new workspace manager
func NewManager(root string, log *logrus.Logger) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}

	return &Manager{
		root:   root,
		lock:   flock.New(filepath.Join(root, lockFileName)),
		logger: log,
	}, nil
}

// Root returns the workspace root directory
func (m *Manager) Root() string {
	return m.root
}

// Acquire locks the workspace and returns a lease on an empty directory
// <root>/<name>. Anything previously in that directory is removed.
func (m *Manager) Acquire(name string) (*Lease, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid output directory name: %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return nil, ErrWorkspaceBusy
	}

	locked, err := m.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return nil, ErrWorkspaceBusy
	}

	dir := filepath.Join(m.root, name)
	if err := resetDir(dir); err != nil {
		m.lock.Unlock()
		return nil, err
	}

	m.active = true
	lease := &Lease{ID: uuid.New().String(), dir: dir, manager: m}

	m.logger.WithFields(logrus.Fields{
		"run_id": lease.ID,
		"dir":    dir,
	}).Debug("Workspace acquired")

	return lease, nil
}

// Dir returns the leased output directory
func (l *Lease) Dir() string {
	return l.dir
}

// Track returns the path of a file kept beside the output directory, such as
// the packaged archive. A stale file at that path is removed now, and the
// file is removed again if the run fails.
func (l *Lease) Track(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid workspace file name: %q", name)
	}
	path := filepath.Join(l.manager.root, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to remove stale %s: %w", path, err)
	}
	l.tracked = append(l.tracked, path)
	return path, nil
}

// Release ends the lease. When runErr is non-nil the output directory and
// tracked files are deleted so a half-written run is never reused.
func (l *Lease) Release(runErr error) error {
	if l.released {
		return nil
	}
	l.released = true

	m := l.manager
	log := m.logger.WithField("run_id", l.ID)

	var errs []error
	if runErr != nil {
		if err := os.RemoveAll(l.dir); err != nil {
			errs = append(errs, fmt.Errorf("failed to discard %s: %w", l.dir, err))
		}
		for _, path := range l.tracked {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("failed to discard %s: %w", path, err))
			}
		}
		log.WithError(runErr).Warn("Run failed, discarded output directory")
	}

	m.mu.Lock()
	m.active = false
	m.mu.Unlock()

	if err := m.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("failed to unlock workspace: %w", err))
	}

	log.Debug("Workspace released")
	return errors.Join(errs...)
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

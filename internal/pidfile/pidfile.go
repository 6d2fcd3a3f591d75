// Package pidfile keeps two bot processes from serving the same data
// directory. Two gateways would register duplicate handlers and race on the
// stores.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/focusbot/internal/constants"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrAlreadyRunning means another live bot process owns the pid file.
var ErrAlreadyRunning = errors.New("another focusbot process is already running")

// File is an acquired pid file.
type File struct {
	path string
	pid  int
}

// Path returns the pid file location inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, constants.PIDFileName)
}

// Acquire writes the current pid to dataDir's pid file. A stale file (its
// process gone or not a focusbot binary) is replaced.
func Acquire(dataDir string) (*File, error) {
	path := Path(dataDir)
	if pid, running, err := Status(dataDir); err == nil && running && pid != getpidFunc() {
		return nil, fmt.Errorf("%w (pid %d, %s)", ErrAlreadyRunning, pid, path)
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	pid := getpidFunc()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write pid file: %w", err)
	}
	return &File{path: path, pid: pid}, nil
}

// Release removes the pid file if it still holds this process's pid.
func (f *File) Release() error {
	if f == nil {
		return nil
	}
	pid, err := readPID(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if pid != f.pid {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove pid file: %w", err)
	}
	return nil
}

// Status reads dataDir's pid file and reports whether that process is a
// live focusbot. A missing file is not an error.
func Status(dataDir string) (int, bool, error) {
	pid, err := readPID(Path(dataDir))
	if errors.Is(err, os.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	process, err := findProcessFunc(pid)
	if err != nil || process == nil {
		return pid, false, nil
	}
	if !strings.HasPrefix(process.Executable(), constants.AppName) {
		return pid, false, nil
	}
	return pid, true, nil
}

func readPID(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil || pid <= 0 {
		return 0, errors.New("pid file is malformed")
	}
	return pid, nil
}

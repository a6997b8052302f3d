package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"danmaku/internal/textutil"
)

// DirPrefix starts the name of every artifact directory.
const DirPrefix = "danmaku-"

const (
	defaultExtension = "ass"
	fallbackName     = "danmaku"
	maxCreateTries   = 3
)

// ErrWritten is returned when Write is called on an artifact that already
// holds content.
var ErrWritten = errors.New("artifact already written")

// Manager creates artifacts under BaseDir.
type Manager struct {
	BaseDir string
	// Extension replaces the extension of the name hint. Defaults to "ass".
	Extension string
}

// Artifact is one run's scratch directory and subtitle file.
type Artifact struct {
	dir  string
	path string

	mu      sync.Mutex
	file    *os.File
	written bool

	once       sync.Once
	releaseErr error
}

// Create makes a uniquely named directory and opens a file named after
// nameHint inside it. If the file cannot be created the directory is removed
// before the error is returned.
func (m Manager) Create(nameHint string) (*Artifact, error) {
	base := strings.TrimSpace(m.BaseDir)
	if base == "" {
		base = os.TempDir()
	}

	dir, err := makeUniqueDir(base)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, fileName(nameHint, m.Extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, errors.Join(fmt.Errorf("create artifact file: %w", err), fmt.Errorf("remove artifact directory: %w", rmErr))
		}
		return nil, fmt.Errorf("create artifact file: %w", err)
	}

	return &Artifact{dir: dir, path: path, file: file}, nil
}

func makeUniqueDir(base string) (string, error) {
	var lastErr error
	for range maxCreateTries {
		dir := filepath.Join(base, DirPrefix+uuid.NewString())
		err := os.Mkdir(dir, 0o700)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create artifact directory: %w", err)
		}
		lastErr = err
	}
	return "", fmt.Errorf("create artifact directory: %w", lastErr)
}

// fileName derives the subtitle file name from a hint, replacing any
// extension with ext.
func fileName(hint, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = defaultExtension
	}
	name := textutil.SanitizeFileName(hint)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimRight(name, ". ")
	if name == "" {
		name = fallbackName
	}
	return name + "." + ext
}

// Dir returns the artifact's directory.
func (a *Artifact) Dir() string {
	return a.dir
}

// Path returns the subtitle file path.
func (a *Artifact) Path() string {
	return a.path
}

// Write stores data as the file content and closes the file so the player can
// read it. An artifact can be written once.
func (a *Artifact) Write(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.written {
		return ErrWritten
	}
	if a.file == nil {
		return os.ErrClosed
	}
	a.written = true
	file := a.file
	a.file = nil

	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return nil
}

// Release closes the file if still open and removes the directory tree. Only
// the first call does any work; later calls return its result.
func (a *Artifact) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		a.mu.Lock()
		if a.file != nil {
			_ = a.file.Close()
			a.file = nil
		}
		a.mu.Unlock()
		if err := os.RemoveAll(a.dir); err != nil {
			a.releaseErr = fmt.Errorf("remove artifact directory: %w", err)
		}
	})
	return a.releaseErr
}

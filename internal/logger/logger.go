// Package logger routes the standard logger to stdout and a size-rotated file.
package logger

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Rotator is an io.Writer that starts a new file once MaxSize bytes are
// written, keeping MaxBackups older files as name.1, name.2 and so on.
type Rotator struct {
	Filename   string
	MaxSize    int64 // Bytes
	MaxBackups int
	file       *os.File
	size       int64
	mu         sync.Mutex
}

var debug atomic.Bool

// SetLevel enables Debugf output for "DEBUG" and silences it otherwise.
func SetLevel(level string) {
	debug.Store(strings.EqualFold(strings.TrimSpace(level), "DEBUG"))
}

// DebugEnabled reports whether debug messages are written.
func DebugEnabled() bool {
	return debug.Load()
}

// Debugf logs through the standard logger when the level is DEBUG.
func Debugf(format string, args ...any) {
	if !debug.Load() {
		return
	}
	log.Output(2, "DEBUG: "+fmt.Sprintf(format, args...))
}

// Setup initializes the standard logger to write to both stdout and a rotating file.
// An empty filename logs to stdout only. The returned Rotator is nil in that case.
func Setup(filename string, maxSizeMB int64, maxBackups int) *Rotator {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if filename == "" {
		log.SetOutput(os.Stdout)
		return nil
	}

	rotator := &Rotator{
		Filename:   filename,
		MaxSize:    maxSizeMB * 1024 * 1024,
		MaxBackups: maxBackups,
	}

	if err := rotator.openExistingOrNew(); err != nil {
		log.Printf("Failed to open log file, using stdout only: %v", err)
		return nil
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

// Close releases the current log file.
func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// openExistingOrNew appends to the current log, creating it and its
// directory when missing.
func (r *Rotator) openExistingOrNew() error {
	if dir := filepath.Dir(r.Filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return r.open(os.O_CREATE | os.O_APPEND)
}

func (r *Rotator) openNew() error {
	return r.open(os.O_CREATE | os.O_TRUNC)
}

func (r *Rotator) open(mode int) error {
	f, err := os.OpenFile(r.Filename, os.O_WRONLY|mode, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	r.file, r.size = f, info.Size()
	return nil
}

// Write appends p to the log, rotating first when p would push the file
// past MaxSize. A line longer than MaxSize still lands in a file of its own.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.openExistingOrNew(); err != nil {
			return 0, err
		}
	}

	if r.MaxSize > 0 && r.size > 0 && r.size+int64(len(p)) > r.MaxSize {
		if err := r.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Log rotation failed: %v\n", err)
		}
		if r.file == nil {
			return 0, fmt.Errorf("log file %s unavailable after rotation", r.Filename)
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *Rotator) backup(i int) string {
	return r.Filename + "." + strconv.Itoa(i)
}

// rotate shifts name.N-1 to name.N down to name to name.1, dropping the
// oldest, then starts an empty file. At least one backup is always kept.
func (r *Rotator) rotate() error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	keep := max(r.MaxBackups, 1)
	var firstErr error
	for i := keep; i >= 1; i-- {
		from := r.Filename
		if i > 1 {
			from = r.backup(i - 1)
		}
		err := os.Rename(from, r.backup(i))
		if err != nil && !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}

	if err := r.openNew(); err != nil {
		return err
	}
	return firstErr
}

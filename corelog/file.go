// Copyright 2026 The Outline Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package corelog

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileName is the name of the core log file in the log directory.
const FileName = "core.log"

// DefaultMaxFileSize is the size above which [File] rotates the log on open.
const DefaultMaxFileSize = 10 << 20

// File appends to a log file, which is created on the first Write. If the
// file is larger than MaxSize when opened, it is first renamed with a ".1"
// suffix, replacing any older rotation. Safe for concurrent use.
type File struct {
	path    string
	maxSize int64

	mu sync.Mutex
	f  *os.File
}

// NewFile returns a File for path. A maxSize <= 0 uses [DefaultMaxFileSize].
func NewFile(path string, maxSize int64) *File {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &File{path: path, maxSize: maxSize}
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.f == nil {
		if err := f.openLocked(); err != nil {
			return 0, err
		}
	}
	return f.f.Write(p)
}

func (f *File) openLocked() error {
	if info, err := os.Stat(f.path); err == nil && info.Size() > f.maxSize {
		if err := os.Rename(f.path, f.path+".1"); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	f.f = file
	return nil
}

// Close closes the file. A later Write opens it again.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

// ReadTail returns the last n lines of the file at path, oldest first. A
// missing file has no lines. An n <= 0 uses [DefaultCapacity].
func ReadTail(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b := New(n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		b.Append(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.Lines(), nil
}

// Tail is a log source backed by the last Lines lines of a file.
type Tail struct {
	Path  string
	Lines int
}

// Read returns the last t.Lines lines of the file.
func (t Tail) Read() ([]string, error) {
	return ReadTail(t.Path, t.Lines)
}

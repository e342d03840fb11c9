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

// Package corelog keeps the most recent lines written by the proxy core so the
// GUI can show them.
package corelog

import (
	"bytes"
	"strings"
	"sync"
)

// DefaultCapacity is the number of lines kept when none is given.
const DefaultCapacity = 1000

// Buffer is a bounded ring of log lines. It is an io.Writer so it can be used
// directly as the stdout or stderr of a process. Safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	lines   []string
	start   int
	size    int
	partial []byte
}

// New returns a Buffer that keeps the last capacity lines. A capacity <= 0
// uses [DefaultCapacity].
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{lines: make([]string, capacity)}
}

// Append adds one line, evicting the oldest one when full.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(line)
}

func (b *Buffer) appendLocked(line string) {
	line = strings.TrimRight(line, "\r")
	idx := (b.start + b.size) % len(b.lines)
	b.lines[idx] = line
	if b.size < len(b.lines) {
		b.size++
	} else {
		b.start = (b.start + 1) % len(b.lines)
	}
}

// Write appends every complete line in p. A trailing incomplete line is held
// until the next Write or [Buffer.Flush].
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data := p
	if len(b.partial) > 0 {
		data = append(b.partial, p...)
		b.partial = nil
	}
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		b.appendLocked(string(data[:i]))
		data = data[i+1:]
	}
	if len(data) > 0 {
		b.partial = append([]byte(nil), data...)
	}
	return len(p), nil
}

// Flush appends any incomplete line held by Write.
func (b *Buffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.partial) > 0 {
		b.appendLocked(string(b.partial))
		b.partial = nil
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, b.size)
	for i := range out {
		out[i] = b.lines[(b.start+i)%len(b.lines)]
	}
	return out
}

// Read is [Buffer.Lines] with the signature of [Tail.Read].
func (b *Buffer) Read() ([]string, error) {
	return b.Lines(), nil
}

// Len returns the number of buffered lines.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Reset drops all lines.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start, b.size, b.partial = 0, 0, nil
}

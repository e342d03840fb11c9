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

package core

import (
	"bytes"
	"io"
	"sync"

	"github.com/Jigsaw-Code/corectl/corelog"
)

// maxLineLength bounds a line held while waiting for its newline.
const maxLineLength = 1 << 20

// sink receives complete output lines from every stream of the core.
type sink struct {
	log *corelog.Buffer

	mu  sync.Mutex
	out io.Writer
	err error
}

func (s *sink) line(line string) {
	s.log.Append(line)
	if s.out == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.out, line+"\n")
}

// writeErr returns the first error from the output writer.
func (s *sink) writeErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// lineWriter splits one output stream into lines. Each stream needs its own
// lineWriter so partial lines of stdout and stderr do not mix.
type lineWriter struct {
	sink    *sink
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	data := append(w.partial, p...)
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		w.sink.line(string(bytes.TrimSuffix(data[:i], []byte{'\r'})))
		data = data[i+1:]
	}
	if len(data) > maxLineLength {
		w.sink.line(string(data))
		data = nil
	}
	w.partial = append(w.partial[:0], data...)
	return len(p), nil
}

// flush emits a final line that had no newline.
func (w *lineWriter) flush() {
	if len(w.partial) > 0 {
		w.sink.line(string(w.partial))
		w.partial = nil
	}
}

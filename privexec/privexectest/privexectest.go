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

// Package privexectest provides a recording [privexec.Runner] for tests.
package privexectest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Jigsaw-Code/corectl/privexec"
)

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a space-separated command line.
func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Response is what the [Recorder] returns for a command.
type Response struct {
	Result privexec.Result
	Err    error
}

// Recorder records every call and answers from a table keyed by program
// name. Programs without an entry succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string][]Response
}

var _ privexec.Runner = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{responses: make(map[string][]Response)}
}

// On queues a response for the next call to program name. Multiple queued
// responses are consumed in order; the last one is repeated.
func (r *Recorder) On(name string, res Response) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[name] = append(r.responses[name], res)
	return r
}

// OnStdout is a shortcut for a successful response with the given output.
func (r *Recorder) OnStdout(name, stdout string) *Recorder {
	return r.On(name, Response{Result: privexec.Result{Stdout: []byte(stdout)}})
}

// OnExit is a shortcut for a failed response with the given status and
// standard error.
func (r *Recorder) OnExit(name string, code int, stderr string) *Recorder {
	return r.On(name, Response{Result: privexec.Result{ExitCode: code, Stderr: []byte(stderr)}})
}

func (r *Recorder) Run(ctx context.Context, name string, args ...string) (privexec.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Name: name, Args: append([]string(nil), args...)})
	queue := r.responses[name]
	if len(queue) == 0 {
		return privexec.Result{}, nil
	}
	res := queue[0]
	if len(queue) > 1 {
		r.responses[name] = queue[1:]
	}
	return res.Result, res.Err
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// CallsTo returns the recorded calls to program name.
func (r *Recorder) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// LookPath returns a [privexec.LookPathFunc] that only finds the listed
// programs.
func LookPath(found ...string) privexec.LookPathFunc {
	return func(file string) (string, error) {
		for _, f := range found {
			if f == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", file)
	}
}

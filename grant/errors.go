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

package grant

import (
	"fmt"
)

// Kind classifies a grant failure. A Kind is itself an error so it can be
// used as the target of errors.Is.
type Kind int

const (
	// PathResolution means the core binary could not be located, or its path
	// cannot be safely passed to the privileged command.
	PathResolution Kind = iota + 1
	// UnsupportedPlatform means the OS has no known way to grant the permission.
	UnsupportedPlatform
	// CommandFailed means the privileged command could not be run or exited
	// with a non-zero status.
	CommandFailed
)

func (k Kind) String() string {
	switch k {
	case PathResolution:
		return "path resolution"
	case UnsupportedPlatform:
		return "unsupported platform"
	case CommandFailed:
		return "privileged command failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) Error() string {
	return k.String()
}

// Error is the error returned by [Granter.Grant].
type Error struct {
	Kind Kind
	// Path is the core path, as far as it was resolved.
	Path string
	// Err is the underlying cause, if any.
	Err error
	// ExitCode and Stderr describe a privileged command that ran and failed.
	ExitCode int
	Stderr   string
}

// Error returns the captured standard error of a failed privileged command
// verbatim, so the user sees the message of the tool that failed.
func (e *Error) Error() string {
	if e.Kind == CommandFailed && e.Err == nil {
		if e.Stderr != "" {
			return e.Stderr
		}
		return fmt.Sprintf("privileged command exited with status %d", e.ExitCode)
	}
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

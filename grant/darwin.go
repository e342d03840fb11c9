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
	"slices"

	"github.com/Jigsaw-Code/corectl/privexec"
)

const (
	// adminGID is the gid of the "admin" group on macOS.
	adminGID = 80

	modeSetuid = 0o4000
	modeSetgid = 0o2000
)

// Ownership is the subset of file metadata that the macOS fast path checks.
type Ownership struct {
	UID uint32
	GID uint32
	// Mode holds the raw st_mode bits.
	Mode uint32
}

// IsGranted reports whether a file with the given ownership is already owned
// by root:admin with both the setuid and setgid bits set.
func IsGranted(o Ownership) bool {
	return o.UID == 0 && o.GID == adminGID && o.Mode&modeSetuid != 0 && o.Mode&modeSetgid != 0
}

// DarwinShell returns the shell commands that give path to root:admin and set
// its setuid and setgid bits. Spaces in path are backslash-escaped.
func DarwinShell(path string) string {
	p := privexec.EscapeSpaces(path)
	return "chown root:admin " + p + "\nchmod +sx " + p
}

// DarwinScript returns the AppleScript that runs [DarwinShell] with
// administrator privileges. It fails if path has characters outside the
// allowed set or if the shell text does not tokenize into the two intended
// commands.
func DarwinScript(path string) (string, error) {
	if err := privexec.CheckPathChars(path); err != nil {
		return "", err
	}
	shell := DarwinShell(path)
	cmds, err := privexec.ParseScript(shell)
	if err != nil {
		return "", err
	}
	want := [][]string{
		{"chown", "root:admin", path},
		{"chmod", "+sx", path},
	}
	if !slices.EqualFunc(cmds, want, slices.Equal[[]string]) {
		return "", fmt.Errorf("unexpected tokenization of %q: %q", shell, cmds)
	}
	return privexec.AdminShellScript(shell), nil
}

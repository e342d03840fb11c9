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

// Package opener opens files, directories and web pages with the desktop's
// default handler.
package opener

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"runtime"

	"github.com/Jigsaw-Code/corectl/privexec"
)

// Opener launches the platform's "open" tool.
type Opener struct {
	GOOS   string
	Runner privexec.Runner
}

// New returns an Opener for the current platform.
func New(runner privexec.Runner) *Opener {
	return &Opener{GOOS: runtime.GOOS, Runner: runner}
}

// Command returns the program and arguments that open target.
func Command(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// Open opens a file or directory.
func (o *Opener) Open(ctx context.Context, target string) error {
	if target == "" {
		return errors.New("nothing to open")
	}
	name, args := Command(o.GOOS, target)
	_, err := privexec.Output(ctx, o.Runner, name, args...)
	return err
}

// OpenURL opens an http or https URL in the default browser.
func (o *Opener) OpenURL(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("refusing to open %q: only http and https URLs are allowed", rawURL)
	}
	return o.Open(ctx, u.String())
}

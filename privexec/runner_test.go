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

//go:build unix

package privexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecRunnerCapturesStderr(t *testing.T) {
	var r ExecRunner
	res, err := r.Run(context.Background(), "sh", "-c", "echo out; echo 'permission denied' >&2; exit 3")
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
	require.Equal(t, "out\n", string(res.Stdout))
	require.Equal(t, "permission denied", res.StderrText())
}

func TestExecRunnerStartFailure(t *testing.T) {
	var r ExecRunner
	_, err := r.Run(context.Background(), "/nonexistent/corectl-test-binary")
	require.Error(t, err)
}

func TestOutput(t *testing.T) {
	var r ExecRunner
	out, err := Output(context.Background(), &r, "sh", "-c", "echo '  hello  '")
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	_, err = Output(context.Background(), &r, "sh", "-c", "echo nope >&2; exit 1")
	require.ErrorContains(t, err, "nope")
}

func TestElevator(t *testing.T) {
	found := func(names ...string) LookPathFunc {
		return func(file string) (string, error) {
			for _, n := range names {
				if n == file {
					return "/usr/bin/" + n, nil
				}
			}
			return "", errors.New("not found")
		}
	}
	require.Equal(t, "pkexec", Elevator(found("pkexec", "sudo")))
	require.Equal(t, "sudo", Elevator(found("sudo")))
	require.Equal(t, "sudo", Elevator(found()))
}

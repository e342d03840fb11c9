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

package privexec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckPathChars(t *testing.T) {
	for _, path := range []string{
		"/usr/bin/verge-mihomo",
		"/Applications/Clash Verge.app/Contents/MacOS/verge-mihomo",
		"/home/用户/bin/core_1.2+x@y,z:~",
	} {
		require.NoError(t, CheckPathChars(path), path)
	}
	for _, path := range []string{
		"",
		"/tmp/a\"b",
		"/tmp/a'b",
		"/tmp/$HOME",
		"/tmp/`id`",
		"/tmp/a;rm -rf /",
		"/tmp/a\nb",
		"/tmp/a\\b",
		"/tmp/a&b",
	} {
		require.Error(t, CheckPathChars(path), path)
	}
}

func TestEscapeSpaces(t *testing.T) {
	require.Equal(t, `/a\ b\ \ c`, EscapeSpaces("/a b  c"))
	require.Equal(t, "/abc", EscapeSpaces("/abc"))
}

func TestQuoteAppleScript(t *testing.T) {
	require.Equal(t, `"plain"`, QuoteAppleScript("plain"))
	require.Equal(t, `"a\\ b \"q\""`, QuoteAppleScript(`a\ b "q"`))
}

func TestAdminShellScript(t *testing.T) {
	require.Equal(t,
		`do shell script "chmod +sx /a\\ b" with administrator privileges`,
		AdminShellScript(`chmod +sx /a\ b`))
}

func TestParseScript(t *testing.T) {
	cmds, err := ParseScript("chown root:admin /Apps/Clash\\ Verge.app/core\nchmod +sx /Apps/Clash\\ Verge.app/core")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"chown", "root:admin", "/Apps/Clash Verge.app/core"},
		{"chmod", "+sx", "/Apps/Clash Verge.app/core"},
	}, cmds)

	cmds, err = ParseScript("rm -R '/Applications/A B.app' && cp -R " + QuoteShell("/tmp/it's.app") + " '/Applications/A B.app'")
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"rm", "-R", "/Applications/A B.app"},
		{"cp", "-R", "/tmp/it's.app", "/Applications/A B.app"},
	}, cmds)
}

func TestParseScriptRejects(t *testing.T) {
	for _, script := range []string{
		"echo $HOME",
		"echo `id`",
		"echo $(id)",
		"echo hi > /etc/passwd",
		"echo a | sh",
		"echo a || echo b",
		"sleep 1 &",
		"FOO=bar echo",
		"if true; then echo; fi",
		"echo \"unterminated",
	} {
		_, err := ParseScript(script)
		require.Error(t, err, script)
	}
}

func TestResult(t *testing.T) {
	res := Result{ExitCode: 1, Stderr: []byte("permission denied\n")}
	require.False(t, res.Success())
	require.Equal(t, "permission denied", res.StderrText())
	require.True(t, Result{}.Success())
}

func TestStderrTextTrimsOneNewline(t *testing.T) {
	for stderr, want := range map[string]string{
		"":                     "",
		"denied":               "denied",
		"denied\n":             "denied",
		"denied\n\n":           "denied\n",
		"denied\r\n":           "denied\r",
		"line one\nline two\n": "line one\nline two",
		"  padded  \n":         "  padded  ",
	} {
		require.Equal(t, want, Result{Stderr: []byte(stderr)}.StderrText(), "%q", stderr)
	}
}

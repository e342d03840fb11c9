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
	"fmt"
	"strings"
	"unicode"

	"mvdan.cc/sh/v3/syntax"
)

// pathPunct lists the punctuation allowed in paths that end up in a shell
// string. Letters, digits and the space are allowed in addition.
const pathPunct = "/._-+@,:~"

// CheckPathChars returns an error if path contains a character that is not
// a letter, a digit, a space, or one of "/._-+@,:~".
func CheckPathChars(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}
	for i, r := range path {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || strings.ContainsRune(pathPunct, r) {
			continue
		}
		return fmt.Errorf("path %q has disallowed character %q at offset %d", path, r, i)
	}
	return nil
}

// EscapeSpaces precedes every space in s with a single backslash, so that a
// POSIX shell reads s as one word. Only safe for strings that passed
// [CheckPathChars].
func EscapeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", `\ `)
}

// QuoteShell wraps s in POSIX single quotes.
func QuoteShell(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteAppleScript returns s as an AppleScript string literal, including the
// surrounding double quotes.
func QuoteAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// AdminShellScript returns the AppleScript that runs shell with
// administrator privileges. The user is prompted for credentials.
func AdminShellScript(shell string) string {
	return "do shell script " + QuoteAppleScript(shell) + " with administrator privileges"
}

// ParseScript parses POSIX shell text and returns the words of each simple
// command in order. Commands may be separated by newlines, semicolons or
// "&&". Anything that could make the shell do more than run those literal
// commands is rejected: expansions, substitutions, redirections, pipes,
// background jobs, assignments and compound commands.
func ParseScript(script string) ([][]string, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangPOSIX))
	file, err := parser.Parse(strings.NewReader(script), "")
	if err != nil {
		return nil, fmt.Errorf("invalid shell script: %w", err)
	}
	var cmds [][]string
	for _, stmt := range file.Stmts {
		if cmds, err = appendStmt(cmds, stmt); err != nil {
			return nil, err
		}
	}
	return cmds, nil
}

func appendStmt(cmds [][]string, stmt *syntax.Stmt) ([][]string, error) {
	if stmt.Negated || stmt.Background || stmt.Coprocess || len(stmt.Redirs) > 0 {
		return nil, fmt.Errorf("unsupported statement at %s", stmt.Pos())
	}
	switch cmd := stmt.Cmd.(type) {
	case *syntax.BinaryCmd:
		if cmd.Op != syntax.AndStmt {
			return nil, fmt.Errorf("unsupported operator %q at %s", cmd.Op, cmd.OpPos)
		}
		cmds, err := appendStmt(cmds, cmd.X)
		if err != nil {
			return nil, err
		}
		return appendStmt(cmds, cmd.Y)
	case *syntax.CallExpr:
		if len(cmd.Assigns) > 0 {
			return nil, fmt.Errorf("unsupported assignment at %s", cmd.Pos())
		}
		words := make([]string, 0, len(cmd.Args))
		for _, w := range cmd.Args {
			lit, err := literalWord(w)
			if err != nil {
				return nil, err
			}
			words = append(words, lit)
		}
		return append(cmds, words), nil
	default:
		return nil, fmt.Errorf("unsupported command %T at %s", stmt.Cmd, stmt.Pos())
	}
}

func literalWord(w *syntax.Word) (string, error) {
	var sb strings.Builder
	for _, part := range w.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(unescapeLit(p.Value))
		case *syntax.SglQuoted:
			if p.Dollar {
				return "", fmt.Errorf("unsupported $'' string at %s", p.Pos())
			}
			sb.WriteString(p.Value)
		default:
			return "", fmt.Errorf("unsupported word part %T at %s", part, part.Pos())
		}
	}
	return sb.String(), nil
}

// unescapeLit removes the backslashes of an unquoted literal as the shell
// would.
func unescapeLit(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] == '\n' {
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

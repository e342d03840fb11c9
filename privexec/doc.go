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

/*
Package privexec runs the short-lived OS tools that corectl depends on
(osascript, pkexec, sudo, setcap, networksetup, gsettings) and builds the
command strings that some of them require.

# Running commands

All process execution goes through the [Runner] interface so callers can be
tested without spawning real processes. [ExecRunner] is the real
implementation. A non-zero exit status is not an error: it is reported in
[Result] together with the captured standard error, and the caller decides
what message to surface.

# Command strings

Where an OS API only accepts a single command string (AppleScript's
"do shell script"), use [CheckPathChars], [EscapeSpaces] and
[QuoteAppleScript] to build it, then [ParseScript] to verify that the result
tokenizes into exactly the commands and words that were intended.
*/
package privexec

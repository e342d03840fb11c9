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
Package grant gives a proxy core binary the OS permission it needs to bind
privileged ports and manage network interfaces, so that the GUI that ships it
does not have to run as root.

The core is identified by its file name and must live in the same directory as
the running executable. [Granter.Grant] resolves it and then:

  - on macOS, makes the file owned by root:admin with the setuid and setgid
    bits set, using "do shell script ... with administrator privileges" so the
    user is shown the system credentials prompt;
  - on Linux, adds cap_net_bind_service and cap_net_admin to the file's
    permitted and effective capability sets with setcap, run through pkexec
    when it is installed and sudo otherwise.

Both paths first check whether the permission is already in place and return
without prompting if so. Any other OS returns an error of kind
[UnsupportedPlatform].

The call is synchronous and blocks until the user has answered the prompt and
the child process has exited. Concurrent calls are not coordinated.
*/
package grant

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
Package sysproxy reads and changes the system-wide HTTP proxy settings.

# Platform Support

  - macOS: networksetup on the network service of the default route
  - Linux: GNOME settings through gsettings
  - Windows: the WinINet Internet Settings registry key

Other platforms return [ErrUnsupported].

# Usage

Create a [Manager] with [New] and call [Manager.Get] to read the current
settings. [Manager.Set] points the HTTP, HTTPS (and on Linux, SOCKS) proxies
at a host and port; [Manager.Unset] turns them off again.
*/
package sysproxy

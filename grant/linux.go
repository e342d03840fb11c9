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
	"encoding/binary"
)

// netCaps is the capability set granted on Linux, in setcap syntax.
const netCaps = "cap_net_bind_service,cap_net_admin=+ep"

// LinuxArgs returns the setcap command line, to be run through pkexec or sudo.
func LinuxArgs(path string) []string {
	return []string{"setcap", netCaps, path}
}

// Layout of the security.capability extended attribute (struct vfs_cap_data).
const (
	vfsCapRevisionMask   = 0xFF000000
	vfsCapRevision1      = 0x01000000
	vfsCapRevision2      = 0x02000000
	vfsCapRevision3      = 0x03000000
	vfsCapFlagsEffective = 0x000001

	capNetBindService = 10
	capNetAdmin       = 12
)

// HasNetCaps reports whether raw, the value of a file's security.capability
// attribute, grants CAP_NET_BIND_SERVICE and CAP_NET_ADMIN in the permitted
// set with the effective flag on.
func HasNetCaps(raw []byte) bool {
	if len(raw) < 4 {
		return false
	}
	magic := binary.LittleEndian.Uint32(raw)
	var size int
	switch magic & vfsCapRevisionMask {
	case vfsCapRevision1:
		size = 12
	case vfsCapRevision2:
		size = 20
	case vfsCapRevision3:
		size = 24
	default:
		return false
	}
	if len(raw) < size || magic&vfsCapFlagsEffective == 0 {
		return false
	}
	permitted := binary.LittleEndian.Uint32(raw[4:8])
	want := uint32(1)<<capNetBindService | uint32(1)<<capNetAdmin
	return permitted&want == want
}

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

package grant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatOwnership(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core")
	require.NoError(t, os.WriteFile(path, nil, 0o755))

	own, err := statOwnership(path)
	require.NoError(t, err)
	require.Equal(t, uint32(os.Getuid()), own.UID)
	require.Equal(t, uint32(0o755), own.Mode&0o777)
	require.Zero(t, own.Mode&modeSetuid)

	_, err = statOwnership(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

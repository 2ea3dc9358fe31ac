// mkdir - traced directory creation for the local mirror tree.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import "os"

// EnsureDir creates path (and any missing parents) unless it already
// exists, reporting the decision under the mkdir/mkdir_exist debug
// channels so a -D mkdir,mkdir_exist run traces every directory the
// mirror tree grows.
func EnsureDir(logger *Logger, path string) error {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		logger.Logit(DebugMkdirExist, "directory already exists: %s", path)
		return nil
	}
	logger.Logit(DebugMkdir, "creating directory: %s", path)
	return os.MkdirAll(path, 0775)
}

// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isFatal reports whether an fsnotify error means the watch cannot continue:
// the inotify watch limit (ENOSPC) or a file descriptor limit (EMFILE, ENFILE).
func isFatal(err error) bool {
	for _, errno := range []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"syscall"
)

// Win32 codes after which ReadDirectoryChangesW cannot recover.
var fatalErrnos = []syscall.Errno{
	4, // ERROR_TOO_MANY_OPEN_FILES
	6, // ERROR_INVALID_HANDLE, e.g. the watched directory was removed
	8, // ERROR_NOT_ENOUGH_MEMORY
}

// isFatal reports whether an fsnotify error means the watch cannot continue.
func isFatal(err error) bool {
	for _, errno := range fatalErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

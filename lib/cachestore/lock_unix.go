// Copyright 2026 The Debuginfod Go Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package cachestore

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive blocks until an exclusive advisory lock is held on
// file. The lock is scoped to the open file description: it is
// released by flockUnlock, by closing the file, or by the kernel when
// the holding process dies — which is what makes crashed holders
// detectable for free.
func flockExclusive(file *os.File) error {
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

// flockUnlock releases the advisory lock on file.
func flockUnlock(file *os.File) error {
	return unix.Flock(int(file.Fd()), unix.LOCK_UN)
}

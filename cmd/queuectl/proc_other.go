//go:build !(darwin || dragonfly || freebsd || linux || netbsd || openbsd)

package main

import "syscall"

// lockFile is a no-op where flock is unavailable; concurrent PID file
// updates may race.
func lockFile(string) (func(), error) {
	return func() {}, nil
}

func detachedAttr() *syscall.SysProcAttr {
	return nil
}

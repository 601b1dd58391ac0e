//go:build !windows

// Package util holds small platform helpers for the binary's startup.
package util

// IsRunFromGUI reports whether the binary was started from a file manager
// rather than a shell. Outside Windows it always is a shell.
func IsRunFromGUI() bool {
	return false
}

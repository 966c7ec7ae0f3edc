// ABOUTME: Auto-start stubs for platforms without an implementation.
// ABOUTME: Install and uninstall both report the platform as unsupported.

//go:build !darwin && !linux && !windows

package main

import "fmt"

func InstallAutostart() error {
	return fmt.Errorf("auto-start is not supported on this platform")
}

func UninstallAutostart() error {
	return fmt.Errorf("auto-start is not supported on this platform")
}

func IsAutostartInstalled() bool {
	return false
}

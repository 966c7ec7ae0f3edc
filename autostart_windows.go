// ABOUTME: Login auto-start on Windows via the HKCU registry Run key.
// ABOUTME: Adds and removes the TalkAlert value pointing at the executable.

//go:build windows

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows/registry"
)

const (
	autostartRunKey = `Software\Microsoft\Windows\CurrentVersion\Run`
	autostartValue  = "TalkAlert"
)

// InstallAutostart records the executable under the Run key.
func InstallAutostart() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	key, _, err := registry.CreateKey(registry.CURRENT_USER, autostartRunKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open Run key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue(autostartValue, execPath); err != nil {
		return fmt.Errorf("set Run value: %w", err)
	}
	return nil
}

// UninstallAutostart removes the Run key value.
func UninstallAutostart() error {
	key, err := registry.OpenKey(registry.CURRENT_USER, autostartRunKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("open Run key: %w", err)
	}
	defer key.Close()

	if err := key.DeleteValue(autostartValue); err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("delete Run value: %w", err)
	}
	return nil
}

// IsAutostartInstalled reports whether the Run key value exists.
func IsAutostartInstalled() bool {
	key, err := registry.OpenKey(registry.CURRENT_USER, autostartRunKey, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer key.Close()

	_, _, err = key.GetStringValue(autostartValue)
	return err == nil
}

// ABOUTME: Login auto-start on Linux via a systemd user unit.
// ABOUTME: Writes, enables, and removes talkalert.service under ~/.config.

//go:build linux

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const autostartUnit = "talkalert.service"

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=TalkAlert message stream notifier
After=graphical-session.target

[Service]
Type=simple
ExecStart={{.Exec}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`))

func autostartUnitPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user", autostartUnit), nil
}

// InstallAutostart writes the user unit and enables it for login start.
func InstallAutostart() error {
	unitPath, err := autostartUnitPath()
	if err != nil {
		return err
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("create unit directory: %w", err)
	}

	_ = exec.Command("systemctl", "--user", "stop", autostartUnit).Run()

	f, err := os.Create(unitPath)
	if err != nil {
		return fmt.Errorf("create unit file: %w", err)
	}
	defer f.Close()

	if err := unitTemplate.Execute(f, struct{ Exec string }{Exec: execPath}); err != nil {
		return fmt.Errorf("write unit file: %w", err)
	}

	if err := exec.Command("systemctl", "--user", "daemon-reload").Run(); err != nil {
		return fmt.Errorf("systemd reload: %w", err)
	}
	if err := exec.Command("systemctl", "--user", "enable", autostartUnit).Run(); err != nil {
		return fmt.Errorf("enable unit: %w", err)
	}
	return nil
}

// UninstallAutostart disables and removes the user unit.
func UninstallAutostart() error {
	unitPath, err := autostartUnitPath()
	if err != nil {
		return err
	}

	_ = exec.Command("systemctl", "--user", "stop", autostartUnit).Run()
	_ = exec.Command("systemctl", "--user", "disable", autostartUnit).Run()

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file: %w", err)
	}

	_ = exec.Command("systemctl", "--user", "daemon-reload").Run()
	return nil
}

// IsAutostartInstalled reports whether the user unit exists.
func IsAutostartInstalled() bool {
	unitPath, err := autostartUnitPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(unitPath)
	return err == nil
}

// ABOUTME: Login auto-start on macOS via a LaunchAgent plist.
// ABOUTME: Installs, loads, and removes com.talkalert.daemon.

//go:build darwin

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

const autostartLabel = "com.talkalert.daemon"

var agentTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Exec}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <dict>
        <key>SuccessfulExit</key>
        <false/>
    </dict>
    <key>ProcessType</key>
    <string>Interactive</string>
    <key>StandardOutPath</key>
    <string>{{.Log}}/talkalert.log</string>
    <key>StandardErrorPath</key>
    <string>{{.Log}}/talkalert.log</string>
</dict>
</plist>
`))

func autostartPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", autostartLabel+".plist"), nil
}

// InstallAutostart writes the LaunchAgent plist and loads it.
func InstallAutostart() error {
	plistPath, err := autostartPlistPath()
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

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("create LaunchAgents directory: %w", err)
	}

	_ = exec.Command("launchctl", "unload", plistPath).Run()

	f, err := os.Create(plistPath)
	if err != nil {
		return fmt.Errorf("create plist: %w", err)
	}
	defer f.Close()

	data := struct{ Label, Exec, Log string }{
		Label: autostartLabel,
		Exec:  execPath,
		Log:   filepath.Join(home, "Library", "Logs"),
	}
	if err := agentTemplate.Execute(f, data); err != nil {
		return fmt.Errorf("write plist: %w", err)
	}

	if out, err := exec.Command("launchctl", "load", plistPath).CombinedOutput(); err != nil {
		return fmt.Errorf("load LaunchAgent: %w (output: %s)", err, out)
	}
	return nil
}

// UninstallAutostart unloads and removes the LaunchAgent plist.
func UninstallAutostart() error {
	plistPath, err := autostartPlistPath()
	if err != nil {
		return err
	}

	_ = exec.Command("launchctl", "unload", plistPath).Run()

	if err := os.Remove(plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove plist: %w", err)
	}
	return nil
}

// IsAutostartInstalled reports whether the LaunchAgent plist exists.
func IsAutostartInstalled() bool {
	plistPath, err := autostartPlistPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(plistPath)
	return err == nil
}

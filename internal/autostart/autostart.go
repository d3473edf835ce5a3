// Package autostart starts the server when the user logs in.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"
)

const label = "com.vtouchpad.server"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.ExecutablePath}}</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=Virtual Touchpad
Comment=Control this computer from a touch device
Exec="{{.ExecutablePath}}"
Terminal=false
X-GNOME-Autostart-enabled=true
`

const windowsStartupScript = "@echo off\r\nstart \"\" \"{{.ExecutablePath}}\"\r\n"

// entry returns the file that starts the server at login, and its template.
func entry() (string, string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), macLaunchAgentPlist, nil

	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", "", fmt.Errorf("APPDATA is not set")
		}
		startup := filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs", "Startup")
		return filepath.Join(startup, "vtouchpad.cmd"), windowsStartupScript, nil

	default:
		base := os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", "", err
			}
			base = filepath.Join(home, ".config")
		}
		return filepath.Join(base, "autostart", "vtouchpad.desktop"), xdgDesktopEntry, nil
	}
}

// Enable enables auto-start on login
func Enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	return enable(execPath)
}

func enable(execPath string) error {
	path, text, err := entry()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmpl, err := template.New("autostart").Parse(text)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return tmpl.Execute(f, struct{ Label, ExecutablePath string }{label, execPath})
}

// Disable disables auto-start on login
func Disable() error {
	path, _, err := entry()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	path, _, err := entry()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Apply enables or disables auto-start to match want.
func Apply(want bool) error {
	switch {
	case want && !IsEnabled():
		return Enable()
	case !want && IsEnabled():
		return Disable()
	}
	return nil
}

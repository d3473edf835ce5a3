// Package osutils wraps the few OS integrations of the server: the Windows
// firewall and opening the controller page in a browser.
package osutils

import (
	"os/exec"
	"runtime"

	"github.com/getlantern/golog"
)

var log = golog.LoggerFor("vtouchpad.osutils")

// browserCommand returns the command that opens url in the default browser.
func browserCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}

// OpenBrowser opens url in the default browser without waiting for it.
func OpenBrowser(url string) error {
	name, args := browserCommand(runtime.GOOS, url)
	if err := exec.Command(name, args...).Start(); err != nil {
		log.Errorf("Failed to open browser: %v", err)
		return err
	}
	return nil
}

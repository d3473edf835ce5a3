//go:build !windows

package osutils

// IsAdmin is a stub for non-Windows platforms
func IsAdmin() bool {
	return false
}

// EnsureFirewallRule is a no-op outside Windows
func EnsureFirewallRule(port int) error {
	log.Tracef("Firewall rules are only managed on Windows (port %d)", port)
	return nil
}

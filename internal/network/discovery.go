// Package network provides address helpers for the server.
package network

import (
	"fmt"
	"net"
	"strconv"
)

// GetLocalIP returns the primary local IP address
func GetLocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// GetLocalIPs returns all available local IPv4 addresses
func GetLocalIPs() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 {
			continue // interface down
		}
		if iface.Flags&net.FlagLoopback != 0 {
			continue // loopback interface
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue // not an ipv4 address
			}
			ips = append(ips, ip.String())
		}
	}
	return ips, nil
}

// AdvertisedHost returns the host clients should connect to when the server
// binds address. Wildcard and empty addresses resolve to the LAN address.
func AdvertisedHost(address string) string {
	ip := net.ParseIP(address)
	if address != "" && (ip == nil || !ip.IsUnspecified()) {
		return address
	}
	if local, err := GetLocalIP(); err == nil {
		return local
	}
	if ips, err := GetLocalIPs(); err == nil && len(ips) > 0 {
		return ips[0]
	}
	return "localhost"
}

// URL returns the address clients open in a browser.
func URL(address string, port int) string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(AdvertisedHost(address), strconv.Itoa(port)))
}

// LocalURL returns the address this machine reaches the server at over
// loopback. ok is false when address binds a non-loopback interface only.
func LocalURL(address string, port int) (url string, ok bool) {
	ip := net.ParseIP(address)
	if address != "" && address != "localhost" && (ip == nil || !(ip.IsUnspecified() || ip.IsLoopback())) {
		return "", false
	}
	host := "localhost"
	if ip != nil && ip.IsLoopback() {
		host = ip.String()
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, strconv.Itoa(port))), true
}

// IsLoopback reports whether remoteAddr, a host or host:port, is a loopback
// address.
func IsLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

package tool

import (
	"fmt"
	"net"
	"sort"
)

// GetLocalIPv4Set returns the non-loopback IPv4 addresses of this host.
func GetLocalIPv4Set() map[string]struct{} {
	result := make(map[string]struct{})

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return result
	}

	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipnet.IP
		if ip == nil || ip.IsLoopback() {
			continue
		}

		ipv4 := ip.To4()
		if ipv4 == nil {
			continue
		}

		result[ipv4.String()] = struct{}{}
	}

	return result
}

// ConfigURL builds the URL of the config page for the first local address,
// falling back to localhost.
func ConfigURL(port int) string {
	ips := make([]string, 0)
	for ip := range GetLocalIPv4Set() {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	host := "localhost"
	if len(ips) > 0 {
		host = ips[0]
	}
	return BuildConfigURL(host, port)
}

func BuildConfigURL(host string, port int) string {
	if port == 80 || port == 0 {
		return fmt.Sprintf("http://%s/", host)
	}
	return fmt.Sprintf("http://%s/", net.JoinHostPort(host, fmt.Sprint(port)))
}

package service

import (
	"net/netip"
	"strings"
)

// ipAllowed reports whether clientIP matches the allow-list. Entries
// are exact addresses or CIDR prefixes.
func ipAllowed(clientIP string, allowList []string) bool {
	clientIP = strings.TrimSpace(clientIP)
	addr, addrErr := netip.ParseAddr(clientIP)

	for _, entry := range allowList {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil || addrErr != nil {
				continue
			}
			if prefix.Contains(addr.Unmap()) {
				return true
			}
			continue
		}
		if entry == clientIP {
			return true
		}
	}
	return false
}

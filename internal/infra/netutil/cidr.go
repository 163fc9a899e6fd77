package netutil

import "net"

// ParseCIDRs parses CIDR strings into networks, skipping entries that do not
// parse. A misconfigured allow list then fails closed at the gate rather than
// opening admin endpoints to everyone.
func ParseCIDRs(cidrs []string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, s := range cidrs {
		if _, n, err := net.ParseCIDR(s); err == nil && n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Package privacy masks personal data before it reaches log output.
// Full values may still be stored where a record is required (rate limit
// keys, audit events); log lines only ever see the masked form.
package privacy

import "net/netip"

// AnonymizeIP truncates an IP address to a network prefix so log lines
// cannot single out a host: IPv4 keeps the /24, IPv6 the /48. Accepts bare
// addresses and host:port forms. Anything unparseable is redacted outright.
func AnonymizeIP(raw string) string {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		ap, err := netip.ParseAddrPort(raw)
		if err != nil {
			return "redacted"
		}
		addr = ap.Addr()
	}
	addr = addr.Unmap()

	bits := 24
	if addr.Is6() {
		bits = 48
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "redacted"
	}
	return prefix.String()
}

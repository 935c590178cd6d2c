package ratelimit

import (
	"strconv"
	"strings"

	"github.com/seancfoley/ipaddress-go/ipaddr"
)

// DefaultIPv6PrefixLen groups IPv6 clients by their /64 allocation.
const DefaultIPv6PrefixLen = 64

// ClientIdentifier normalizes a client address into a limiter identifier.
// IPv4 addresses are returned in canonical form; IPv6 addresses collapse to
// their prefix block so one client cannot rotate through its own allocation.
// Unparsable input is returned trimmed.
func ClientIdentifier(ip string, ipv6PrefixLen int) string {
	trimmed := strings.TrimSpace(ip)
	if trimmed == "" {
		return ""
	}
	addr, errParse := ipaddr.NewIPAddressString(trimmed).ToAddress()
	if errParse != nil || addr == nil {
		return trimmed
	}
	if addr.IsIPv4() {
		return addr.ToCanonicalString()
	}
	if ipv6PrefixLen <= 0 || ipv6PrefixLen >= 128 {
		return addr.ToCanonicalString()
	}
	return addr.ToPrefixBlockLen(ipaddr.BitCount(ipv6PrefixLen)).ToCanonicalString()
}

// KeyFor builds a limiter key for the given scope.
func KeyFor(scope Scope, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return ""
	}
	switch scope {
	case ScopeIP:
		return "ip:" + identifier
	case ScopeUser:
		return "u:" + identifier
	case ScopeAPIKey:
		return "k:" + identifier
	default:
		return ""
	}
}

// KeyForUser builds a user-scoped limiter key.
func KeyForUser(userID uint64) string {
	if userID == 0 {
		return ""
	}
	return KeyFor(ScopeUser, strconv.FormatUint(userID, 10))
}

// ParseScope maps a scope name to a Scope.
func ParseScope(name string) Scope {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ip":
		return ScopeIP
	case "user", "u":
		return ScopeUser
	case "api_key", "apikey", "key", "k":
		return ScopeAPIKey
	default:
		return ScopeNone
	}
}

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// UnknownClient is reported when no address or User-Agent can be found.
const UnknownClient = "unknown"

// ClientResolver extracts the caller's address and User-Agent. Forwarding
// headers are honored only when the direct peer is a trusted proxy, since the
// address is half of the lockout key.
type ClientResolver struct {
	trusted []netip.Prefix
}

// NewClientResolver parses trusted proxy addresses or CIDR ranges. With no
// entries, forwarding headers are ignored.
func NewClientResolver(trustedProxies []string) (*ClientResolver, error) {
	r := &ClientResolver{}
	for _, raw := range trustedProxies {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p, err := netip.ParsePrefix(raw)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
			}
			r.trusted = append(r.trusted, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", raw, err)
		}
		addr = addr.Unmap()
		r.trusted = append(r.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return r, nil
}

// IP returns the client address. From a trusted peer, X-Forwarded-For is
// walked right to left and the first hop outside the trusted set wins, then
// X-Real-IP; otherwise the peer address itself is used. It returns
// [UnknownClient] when nothing usable is present.
func (cr *ClientResolver) IP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)

	if cr != nil && cr.isTrusted(peer) {
		if ip, ok := cr.forwardedFor(r.Header.Get("X-Forwarded-For")); ok {
			return ip
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	if peer == "" {
		return UnknownClient
	}
	return peer
}

// forwardedFor picks the client from an X-Forwarded-For chain. Entries left of
// the nearest untrusted hop are client supplied and ignored. A malformed hop
// ends the walk with no result.
func (cr *ClientResolver) forwardedFor(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	hops := strings.Split(header, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			return "", false
		}
		if i == 0 || !cr.isTrusted(hop) {
			return addr.Unmap().String(), true
		}
	}
	return "", false
}

// UserAgent returns the User-Agent header or [UnknownClient].
func UserAgent(r *http.Request) string {
	if ua := r.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return UnknownClient
}

// Middleware stores the resolved address and User-Agent in the request
// context for [goSession.Engine.LoginContext].
func (cr *ClientResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goSession.WithClientIP(r.Context(), cr.IP(r))
		ctx = goSession.WithUserAgent(ctx, UserAgent(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (cr *ClientResolver) isTrusted(peer string) bool {
	if len(cr.trusted) == 0 || peer == "" {
		return false
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range cr.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

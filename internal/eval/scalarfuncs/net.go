package scalarfuncs

import (
	"net"
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// NetAdapter is the interface boundary for NET.* functions (spec §6/
// SPEC_FULL §2), grounded on the adapter shape of
// original_source/scalar_functions/net.rs.
type NetAdapter interface {
	// IPFromString parses a dotted-quad/colon-hex address into BYTES (its
	// network-order octet representation), erroring if s isn't a valid IP.
	IPFromString(s string) ([]byte, error)
	// IPToString renders a network-order octet BYTES value back to text.
	IPToString(b []byte) (string, error)
	// HostFromURL extracts the host component of a URL string.
	HostFromURL(url string) (string, error)
}

type stdlibNetAdapter struct{}

func (stdlibNetAdapter) IPFromString(s string) ([]byte, error) {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "NET.IP_FROM_STRING: invalid IP %q", s)
	}
	if v4 := ip.To4(); v4 != nil {
		return v4, nil
	}
	return ip.To16(), nil
}

func (stdlibNetAdapter) IPToString(b []byte) (string, error) {
	if len(b) != 4 && len(b) != 16 {
		return "", yachtsql.NewError(yachtsql.ErrInvalidQuery, "NET.IP_TO_STRING: expected 4 or 16 bytes, got %d", len(b))
	}
	return net.IP(b).String(), nil
}

func (stdlibNetAdapter) HostFromURL(rawurl string) (string, error) {
	rest := rawurl
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if rest == "" {
		return "", yachtsql.NewError(yachtsql.ErrInvalidQuery, "NET.HOST: could not extract host from %q", rawurl)
	}
	return rest, nil
}

// DefaultNetAdapter is the adapter New() installs; New reads this variable
// each time it is called.
var DefaultNetAdapter NetAdapter = stdlibNetAdapter{}

func registerNetFuncs(r *Registry, adapter NetAdapter) {
	r.Register("NET.IP_FROM_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		b, err := adapter.IPFromString(args[0].String_())
		if err != nil {
			return yachtsql.Null, err
		}
		return yachtsql.NewBytes(b), nil
	})
	r.Register("NET.IP_TO_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		s, err := adapter.IPToString(args[0].Bytes())
		if err != nil {
			return yachtsql.Null, err
		}
		return yachtsql.NewString(s), nil
	})
	r.Register("NET.HOST", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		h, err := adapter.HostFromURL(args[0].String_())
		if err != nil {
			return yachtsql.Null, err
		}
		return yachtsql.NewString(h), nil
	})
	r.Register("NET.SAFE_IP_FROM_STRING", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		b, err := adapter.IPFromString(args[0].String_())
		if err != nil {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBytes(b), nil
	})
}

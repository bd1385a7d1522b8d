package scalarfuncs

import (
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
)

// GeoAdapter is the interface boundary for ST_* geography functions (spec
// §6 "Geography"/SPEC_FULL §2: "specified only at their interface
// boundary"). Grounded on the adapter shape of
// original_source/scalar_functions/geo/transformations.rs, which calls out
// to a small transformation interface rather than inlining geometric math.
type GeoAdapter interface {
	// Parse validates and canonicalizes a WKT string, returning an error if
	// it is not well-formed WKT.
	Parse(wkt string) (string, error)
	// Equals reports whether two WKT geographies denote the same geometry.
	Equals(a, b string) bool
}

// passthroughGeoAdapter is the default GeoAdapter: it accepts any
// non-empty WKT text unexamined and compares geographies by exact string
// equality. Real geometric predicates (ST_CONTAINS, ST_DISTANCE, ...) are
// out of scope at this boundary and return ErrUnsupported.
type passthroughGeoAdapter struct{}

func (passthroughGeoAdapter) Parse(wkt string) (string, error) {
	if strings.TrimSpace(wkt) == "" {
		return "", yachtsql.NewError(yachtsql.ErrInvalidQuery, "ST_GEOGFROMTEXT: empty WKT")
	}
	return strings.TrimSpace(wkt), nil
}

func (passthroughGeoAdapter) Equals(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// DefaultGeoAdapter is the adapter New() installs; New reads this variable
// each time it is called.
var DefaultGeoAdapter GeoAdapter = passthroughGeoAdapter{}

func registerGeoFuncs(r *Registry, adapter GeoAdapter) {
	r.Register("ST_GEOGFROMTEXT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		canon, err := adapter.Parse(args[0].String_())
		if err != nil {
			return yachtsql.Null, err
		}
		return yachtsql.NewGeography(canon), nil
	})
	r.Register("ST_ASTEXT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if args[0].IsNull() {
			return yachtsql.Null, nil
		}
		return yachtsql.NewString(args[0].String_()), nil
	})
	r.Register("ST_EQUALS", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if anyNull(args) {
			return yachtsql.Null, nil
		}
		return yachtsql.NewBool(adapter.Equals(args[0].String_(), args[1].String_())), nil
	})
	r.Register("ST_CONTAINS", unsupportedGeoPredicate("ST_CONTAINS"))
	r.Register("ST_DISTANCE", unsupportedGeoPredicate("ST_DISTANCE"))
	r.Register("ST_INTERSECTS", unsupportedGeoPredicate("ST_INTERSECTS"))
}

func unsupportedGeoPredicate(name string) Handler {
	return func(args []yachtsql.Value) (yachtsql.Value, error) {
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrUnsupported,
			"%s requires real geometric predicates, which are out of scope at the GeoAdapter boundary", name)
	}
}

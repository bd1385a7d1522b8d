package scalarfuncs

import (
	"encoding/json"
	"strconv"
	"strings"

	yachtsql "github.com/lychee-technology/yachtsql"
)

func registerJSONFuncs(r *Registry) {
	r.Register("JSON_QUERY", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("JSON_QUERY", 2, len(args))
		}
		return jsonExtract(args[0], args[1], false)
	})
	r.Register("JSON_VALUE", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("JSON_VALUE", 2, len(args))
		}
		return jsonExtract(args[0], args[1], true)
	})
	r.Register("JSON_EXTRACT", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("JSON_EXTRACT", 2, len(args))
		}
		return jsonExtract(args[0], args[1], false)
	})
	r.Register("JSON_EXTRACT_SCALAR", func(args []yachtsql.Value) (yachtsql.Value, error) {
		if len(args) != 2 {
			return yachtsql.Null, arityError("JSON_EXTRACT_SCALAR", 2, len(args))
		}
		return jsonExtract(args[0], args[1], true)
	})
}

// jsonExtract navigates a "$.a.b[0]" style path within the JSON text held in
// doc, returning re-serialized JSON (JSON_QUERY) or an unquoted scalar
// (JSON_VALUE/asText) at that location, or NULL if any segment is absent.
func jsonExtract(doc, pathVal yachtsql.Value, asText bool) (yachtsql.Value, error) {
	if anyNull([]yachtsql.Value{doc, pathVal}) {
		return yachtsql.Null, nil
	}
	var node any
	if err := json.Unmarshal([]byte(doc.String_()), &node); err != nil {
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInvalidQuery, "invalid JSON document: %v", err)
	}
	segments, err := parseJSONPath(pathVal.String_())
	if err != nil {
		return yachtsql.Null, err
	}
	for _, seg := range segments {
		if seg.isIndex {
			arr, ok := node.([]any)
			if !ok || seg.index < 0 || seg.index >= len(arr) {
				return yachtsql.Null, nil
			}
			node = arr[seg.index]
			continue
		}
		obj, ok := node.(map[string]any)
		if !ok {
			return yachtsql.Null, nil
		}
		v, present := obj[seg.key]
		if !present {
			return yachtsql.Null, nil
		}
		node = v
	}
	if asText {
		if s, ok := node.(string); ok {
			return yachtsql.NewString(s), nil
		}
		if node == nil {
			return yachtsql.Null, nil
		}
	}
	b, err := json.Marshal(node)
	if err != nil {
		return yachtsql.Null, yachtsql.NewError(yachtsql.ErrInternal, "re-encoding JSON: %v", err)
	}
	if asText {
		return yachtsql.NewString(string(b)), nil
	}
	return yachtsql.NewJSON(string(b)), nil
}

type jsonPathSegment struct {
	key     string
	index   int
	isIndex bool
}

// parseJSONPath parses BigQuery's JSONPath dialect ("$", "$.a.b", "$[0]",
// "$.a[2].b") into an ordered list of field/index segments.
func parseJSONPath(path string) ([]jsonPathSegment, error) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	var segments []jsonPathSegment
	i := 0
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
			start := i
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			if i == start {
				return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "invalid JSON path %q", path)
			}
			segments = append(segments, jsonPathSegment{key: path[start:i]})
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "invalid JSON path %q", path)
			}
			idxStr := path[i+1 : i+end]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "invalid JSON path array index %q", idxStr)
			}
			segments = append(segments, jsonPathSegment{index: idx, isIndex: true})
			i += end + 1
		default:
			return nil, yachtsql.NewError(yachtsql.ErrInvalidQuery, "invalid JSON path %q", path)
		}
	}
	return segments, nil
}

package hashing

import (
	"errors"
	"sort"
	"strings"
)

// ErrInvalidHashString is returned when a persisted hash record cannot be split into its fields.
var ErrInvalidHashString = errors.New("invalid hash string format")

// HashString is the persisted form of a credential hash:
//
//	$<id>$<k>=<v>,...$<salt>$<hash>
//
// Only ID, Params and Salt are read when deriving; Hash is the value being compared against.
type HashString struct {
	ID     string
	Params map[string]string
	Salt   string
	Hash   string
}

// ParseHashString splits a persisted hash record. The leading "$" is optional and
// the parameter field may be omitted entirely ("id$salt$hash").
func ParseHashString(encoded string) (HashString, error) {
	encoded = strings.TrimPrefix(strings.TrimSpace(encoded), "$")
	parts := strings.Split(encoded, "$")

	var hs HashString
	switch len(parts) {
	case 3:
		hs = HashString{ID: parts[0], Salt: parts[1], Hash: parts[2]}
	case 4:
		hs = HashString{ID: parts[0], Params: parseParams(parts[1]), Salt: parts[2], Hash: parts[3]}
	default:
		return HashString{}, ErrInvalidHashString
	}

	if hs.ID == "" {
		return HashString{}, ErrInvalidHashString
	}

	return hs, nil
}

// String renders the record with parameters sorted by key.
func (h HashString) String() string {
	var b strings.Builder
	b.WriteByte('$')
	b.WriteString(h.ID)
	if params := formatParams(h.Params); params != "" {
		b.WriteByte('$')
		b.WriteString(params)
	}
	b.WriteByte('$')
	b.WriteString(h.Salt)
	b.WriteByte('$')
	b.WriteString(h.Hash)
	return b.String()
}

// Equal reports whether h and other describe the same record, regardless of
// how either was formatted when stored.
func (h HashString) Equal(other HashString) bool {
	if h.ID != other.ID || h.Salt != other.Salt || h.Hash != other.Hash {
		return false
	}
	if len(h.Params) != len(other.Params) {
		return false
	}
	for k, v := range h.Params {
		if ov, ok := other.Params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Param returns a parameter value and whether it was present.
func (h HashString) Param(key string) (string, bool) {
	if h.Params == nil {
		return "", false
	}
	v, ok := h.Params[key]
	return v, ok
}

func parseParams(part string) map[string]string {
	params := make(map[string]string)
	if strings.TrimSpace(part) == "" {
		return params
	}

	for _, pair := range strings.Split(part, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		if key == "" {
			continue
		}
		params[key] = strings.TrimSpace(kv[1])
	}

	return params
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, ",")
}

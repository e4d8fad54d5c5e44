package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// GenerateKey derives a deterministic cache key from request parameters.
// Keys are sorted before hashing so permutations of the same parameter map
// produce the same key.
func GenerateKey(params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+canonicalize(params[k]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// canonicalize renders a parameter value in a stable form. Everything goes
// through the std-compatible sonic config, which sorts map keys; strings come
// out quoted and escaped, so the "="/"|" separators above stay unambiguous
// even when a value contains them.
func canonicalize(v interface{}) string {
	if v == nil {
		return "null"
	}

	data, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprintf("%v", v))
	}
	return string(data)
}

// Package canon normalizes article URLs for deduplication.
package canon

import "strings"

const trackingPrefix = "utm_"

// URL drops every query parameter whose key starts with "utm_" and strips
// trailing '&' characters. Fragment and the order of the remaining parameters
// are preserved. Empty input is returned unchanged.
func URL(raw string) string {
	if raw == "" {
		return raw
	}

	base, fragment, hasFragment := strings.Cut(raw, "#")
	path, query, hasQuery := strings.Cut(base, "?")

	if hasQuery {
		kept := make([]string, 0, 4)
		for _, param := range strings.Split(query, "&") {
			if param == "" || strings.HasPrefix(param, trackingPrefix) {
				continue
			}
			kept = append(kept, param)
		}
		base = path
		if len(kept) > 0 {
			base = path + "?" + strings.Join(kept, "&")
		}
	}

	base = strings.TrimRight(base, "&")
	if hasFragment {
		return base + "#" + fragment
	}
	return base
}

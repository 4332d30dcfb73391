// Package shop resolves raw shop identifiers into canonical shop domains.
package shop

import "strings"

// Suffix is the canonical domain suffix every shop domain ends with.
const Suffix = ".myshopify.com"

// Normalize turns a raw shop identifier ("foo", "foo.myshopify.com/admin",
// "https://foo.myshopify.com") into its canonical domain form. An empty
// result means the input carried no shop at all.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, scheme := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, scheme)
	}
	s = strings.TrimSuffix(s, "/")
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "/"); i >= 0 {
		s = s[:i]
	}
	if s == "" || strings.HasSuffix(s, Suffix) {
		return s
	}
	return s + Suffix
}

// Handle returns the shop name without the canonical suffix (foo for
// foo.myshopify.com).
func Handle(domain string) string {
	return strings.TrimSuffix(Normalize(domain), Suffix)
}

// Equal compares two identifiers on their canonical form.
func Equal(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

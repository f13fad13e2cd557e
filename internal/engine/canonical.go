package engine

import "net/url"

// CanonicalURL reduces raw to scheme://host/path, dropping query and
// fragment. Empty or unparseable input (or input without scheme or host)
// yields "".
func CanonicalURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + u.EscapedPath()
}

package sigv4

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// IsRFC3986Unreserved indicates whether the specified byte falls in the
// RFC 3986 range of unreserved characters: %2D ('-'), %2E ('.'),
// %30-%39 ('0'-'9'), %41-%5A ('A'-'Z'), %5F ('_'), %61-%7A ('a'-'z'),
// %7E ('~').
func IsRFC3986Unreserved(c byte) bool {
	return ((c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		c == '-' ||
		c == '.' ||
		c == '_' ||
		c == '~')
}

// uriEncode percent-encodes s at the component level: every byte
// outside the RFC 3986 unreserved set becomes an upper-cased %XX
// escape, including '/', space, and each byte of a multi-byte UTF-8
// sequence. This is not form encoding; space is %20, never '+'.
func uriEncode(s string) string {
	result := strings.Builder{}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if IsRFC3986Unreserved(c) {
			result.WriteByte(c)
		} else {
			result.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}

	return result.String()
}

// canonicalQueryString builds the canonical query string from the query
// parameters of u: each key and value is percent-encoded, pairs are
// sorted lexicographically by encoded key, then joined with '&' as
// key=value.
//
// Duplicate keys are not supported: a later occurrence silently
// overwrites an earlier one. This is a documented limitation carried
// for compatibility, not multi-value semantics.
func canonicalQueryString(u *url.URL) string {
	qs := make(map[string]string)

	for key, values := range u.Query() {
		qs[uriEncode(key)] = uriEncode(values[len(values)-1])
	}

	keys := make([]string, 0, len(qs))
	for key := range qs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+qs[key])
	}

	return strings.Join(pairs, "&")
}

// signingHeaderKeys returns the ascending list of header names that
// participate in signing: "host" and anything starting with "x-amz-",
// lower-cased. All other headers are ignored even if present.
func signingHeaderKeys(headers Headers) []string {
	keys := make([]string, 0, len(headers))

	for key := range headers {
		lower := strings.ToLower(key)
		if lower == keyHost || strings.HasPrefix(lower, keyXAmzPrefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys
}

// canonicalHeaderString builds the canonical header block: one
// "lowercased-name:trimmed-value" line per signing header, joined with
// '\n' in ascending key order.
func canonicalHeaderString(headers Headers) string {
	lines := make([]string, 0, len(headers))

	for _, key := range signingHeaderKeys(headers) {
		lines = append(lines, strings.ToLower(key)+":"+strings.TrimSpace(headers[key]))
	}

	return strings.Join(lines, "\n")
}

// signedHeaderString builds the signed-header-name list: the signing
// header names, lower-cased, joined with ';' in ascending order.
func signedHeaderString(headers Headers) string {
	keys := signingHeaderKeys(headers)

	for i, key := range keys {
		keys[i] = strings.ToLower(key)
	}

	return strings.Join(keys, ";")
}

// canonicalPath returns the canonical form of the escaped URL path. The
// path is lower-cased in its entirety, percent-escapes included. This
// diverges from strict SigV4 for mixed-case paths and is required for
// compatibility with the S3 deployments this package targets.
func canonicalPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.ToLower(path)
}

// canonicalRequest builds the canonical request string:
//
//	METHOD + '\n' +
//	lowercased-url-path + '\n' +
//	canonical-query-string + '\n' +
//	canonical-header-block + '\n' +
//	'\n' +
//	signed-header-names + '\n' +
//	payload-hash-token
//
// The method is upper-cased; the payload hash is taken verbatim.
func canonicalRequest(method string, u *url.URL, headers Headers, payloadHash string) string {
	return strings.ToUpper(method) + "\n" +
		canonicalPath(u) + "\n" +
		canonicalQueryString(u) + "\n" +
		canonicalHeaderString(headers) + "\n" +
		"\n" +
		signedHeaderString(headers) + "\n" +
		payloadHash
}

package sigv4

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u
}

func TestURIEncode(t *testing.T) {
	// Unreserved bytes pass through untouched.
	unreserved := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"
	assert.Equal(t, unreserved, uriEncode(unreserved))

	// Component-level encoding: slash, space, and multi-byte UTF-8 all
	// become upper-cased percent escapes; space is never '+'.
	assert.Equal(t, "a%2Fb", uriEncode("a/b"))
	assert.Equal(t, "a%20b", uriEncode("a b"))
	assert.Equal(t, "a%3Db%26c", uriEncode("a=b&c"))
	assert.Equal(t, "%E1%88%B4", uriEncode("ሴ"))
}

func TestCanonicalQueryStringOrdering(t *testing.T) {
	// Two query strings differing only in parameter order canonicalize
	// identically.
	first := canonicalQueryString(mustParse(t, "https://example.com/?b=2&a=1&c=3"))
	second := canonicalQueryString(mustParse(t, "https://example.com/?c=3&a=1&b=2"))

	assert.Equal(t, "a=1&b=2&c=3", first)
	assert.Equal(t, first, second)
}

func TestCanonicalQueryStringEncoding(t *testing.T) {
	u := mustParse(t, "https://example.com/?prefix=logs%2F2022&marker=a%20b")
	assert.Equal(t, "marker=a%20b&prefix=logs%2F2022", canonicalQueryString(u))

	assert.Equal(t, "", canonicalQueryString(mustParse(t, "https://example.com/bucket/key")))
}

// Duplicate query keys collapse to the last occurrence. This pins a
// documented limitation of the canonical form, not multi-value
// semantics to be fixed.
func TestCanonicalQueryStringDuplicateKeysLastWins(t *testing.T) {
	u := mustParse(t, "https://example.com/?k=first&k=second")
	assert.Equal(t, "k=second", canonicalQueryString(u))
}

func TestHeaderFiltering(t *testing.T) {
	headers := Headers{
		"host":                 "example.com",
		"x-amz-date":           "20220202T000000Z",
		"x-amz-content-sha256": UnsignedPayload,
		"content-type":         "application/octet-stream",
		"authorization":        "should-never-be-signed",
		"range":                "bytes=0-1023",
	}

	assert.Equal(t,
		"host:example.com\n"+
			"x-amz-content-sha256:UNSIGNED-PAYLOAD\n"+
			"x-amz-date:20220202T000000Z",
		canonicalHeaderString(headers))
	assert.Equal(t, "host;x-amz-content-sha256;x-amz-date", signedHeaderString(headers))
}

func TestHeaderValuesTrimmed(t *testing.T) {
	headers := Headers{"host": "  example.com \t"}
	assert.Equal(t, "host:example.com", canonicalHeaderString(headers))
}

func TestCanonicalPath(t *testing.T) {
	// The whole escaped path is lower-cased, percent escapes included.
	// This is an intentional divergence from strict SigV4 for
	// mixed-case paths.
	assert.Equal(t, "/bucket/key", canonicalPath(mustParse(t, "https://example.com/Bucket/KEY")))
	assert.Equal(t, "/bucket/a%2fb", canonicalPath(mustParse(t, "https://example.com/Bucket/a%2Fb")))
	assert.Equal(t, "/", canonicalPath(mustParse(t, "https://example.com")))
}

func TestCanonicalRequestShape(t *testing.T) {
	headers := Headers{
		"host":                 "aws.com",
		"x-amz-content-sha256": UnsignedPayload,
	}
	u := mustParse(t, "https://play.min.io/bucket/key")

	expected := "PUT\n" +
		"/bucket/key\n" +
		"\n" +
		"host:aws.com\n" +
		"x-amz-content-sha256:UNSIGNED-PAYLOAD\n" +
		"\n" +
		"host;x-amz-content-sha256\n" +
		"UNSIGNED-PAYLOAD"

	assert.Equal(t, expected, canonicalRequest("PUT", u, headers, UnsignedPayload))

	// The method is upper-cased on the way in.
	assert.Equal(t, expected, canonicalRequest("put", u, headers, UnsignedPayload))
}

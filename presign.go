package sigv4

import (
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/s3lite/sigv4/timeutil"
)

// PresignedURL derives a pre-signed URL for a request to u at tm,
// valid for expires seconds from the embedded X-Amz-Date. The result
// is a complete, self-contained request authorization: no additional
// header is required by the caller.
//
// The five fixed parameters (X-Amz-Algorithm, X-Amz-Credential,
// X-Amz-Date, X-Amz-Expires, X-Amz-SignedHeaders) are merged with any
// query parameters already present on u; on a name collision the fixed
// value wins. The canonical request signs host as the only header
// regardless of method, since a pre-signed URL authenticates via the
// query string alone.
//
// An expiration of 0 is accepted and produces a structurally valid,
// immediately expired URL; range validation is a caller concern.
func (s *Signer) PresignedURL(u *url.URL, method string, payloadHash string, expires uint64, tm time.Time) (string, error) {
	host, err := hostPort(u)
	if err != nil {
		return "", stacktrace.Propagate(err, "Unable to pre-sign URL")
	}

	tm = tm.UTC()

	params := map[string]string{
		keyXAmzAlgorithm:     keyAWS4HMACSHA256,
		keyXAmzCredential:    s.AccessKey + "/" + scope(tm, s.Region, s.Service),
		keyXAmzDate:          tm.Format(timeutil.ISO8601CompactFormat),
		keyXAmzExpires:       strconv.FormatUint(expires, 10),
		keyXAmzSignedHeaders: keyHost,
	}

	// Caller parameters join the same sorted map; the fixed keys were
	// inserted first and the merge never overwrites an existing key.
	// Duplicate caller keys collapse last-wins as in canonicalQueryString.
	for key, values := range u.Query() {
		if _, fixed := params[key]; fixed {
			continue
		}
		params[key] = values[len(values)-1]
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, uriEncode(key)+"="+uriEncode(params[key]))
	}
	queryString := strings.Join(pairs, "&")

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	canonicalReq := strings.ToUpper(method) + "\n" +
		path + "\n" +
		queryString + "\n" +
		keyHost + ":" + host + "\n" +
		"\n" +
		keyHost + "\n" +
		payloadHash

	key, err := signingKey(tm, s.SecretKey, s.Region, s.Service)
	if err != nil {
		return "", stacktrace.Propagate(err, "Unable to pre-sign URL")
	}

	signature, err := hmacSHA256(key, []byte(stringToSign(tm, s.Region, s.Service, canonicalReq)))
	if err != nil {
		return "", stacktrace.Propagate(err, "Unable to pre-sign URL: failed to hash string to sign")
	}

	// Caller parameters already live in the canonical query string, so
	// the base is the URL stripped of its query and fragment.
	base := *u
	base.RawQuery = ""
	base.ForceQuery = false
	base.Fragment = ""

	return base.String() + "?" + queryString + "&" + keyXAmzSignature + "=" + hex.EncodeToString(signature), nil
}

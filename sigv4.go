// Package sigv4 computes AWS Signature Version 4 authentication values
// for HTTP requests directed at S3-compatible object storage.
//
// This is essentially a lightweight, transport-free alternative to
// github.com/aws/aws-sdk-go-v2/aws/signer/v4: it produces the
// Authorization header and the pre-signed URL query string, and leaves
// sending the request to the caller.
//
// The algorithm is described at
// http://docs.aws.amazon.com/general/latest/gr/signature-version-4.html and
// https://docs.aws.amazon.com/AmazonS3/latest/API/sigv4-query-string-auth.html
//
// Two deliberate divergences from a general-purpose SigV4 signer, kept
// for bit-exact compatibility with the S3 deployments this package
// targets: the canonical URL path is lower-cased in its entirety, and
// only the host and x-amz-* headers ever participate in signing.
package sigv4

import (
	"net/url"
	"strings"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/s3lite/sigv4/timeutil"
)

const (
	// UnsignedPayload is the sentinel payload-hash token used when the
	// request body hash is not part of the signature.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	keyAWS4              = "AWS4"
	keyAWS4HMACSHA256    = "AWS4-HMAC-SHA256"
	keyAWS4Request       = "aws4_request"
	keyCredential        = "Credential"
	keyHost              = "host"
	keySignature         = "Signature"
	keySignedHeaders     = "SignedHeaders"
	keyXAmzAlgorithm     = "X-Amz-Algorithm"
	keyXAmzContentSHA256 = "x-amz-content-sha256"
	keyXAmzCredential    = "X-Amz-Credential"
	keyXAmzDate          = "X-Amz-Date"
	keyXAmzDateLower     = "x-amz-date"
	keyXAmzExpires       = "X-Amz-Expires"
	keyXAmzPrefix        = "x-amz-"
	keyXAmzSignature     = "X-Amz-Signature"
	keyXAmzSignedHeaders = "X-Amz-SignedHeaders"
)

// Headers maps lower-cased header names to their values. Values are
// trimmed during canonicalization. Only the "host" header and headers
// starting with "x-amz-" participate in signing; anything else may be
// present but is ignored by the signature calculation.
type Headers map[string]string

// Signature pairs the Authorization header value with the x-amz-date
// timestamp used to compute it. The caller must attach both to the
// outgoing request; the authorization alone is rejected without the
// matching date header.
type Signature struct {
	AuthHeader string
	DateTime   string
}

// Signer computes signatures and pre-signed URLs for a fixed
// credential/region/service tuple. The zero value is not usable; all
// four identity fields must be set. Signer is stateless and safe for
// concurrent use.
type Signer struct {
	// AccessKey and SecretKey are the credential pair. The caller is
	// responsible for resolving these; the signer never loads
	// credentials itself.
	AccessKey string
	SecretKey string

	// Region must match the region of the target service endpoint. A
	// mismatch produces a signature the service rejects; this is a
	// caller contract, not validated here.
	Region string

	// Service is the signing service name, "s3" for object storage.
	Service string

	// Now returns the current time for calls that do not take an
	// explicit timestamp. Defaults to time.Now.
	Now func() time.Time
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Signature computes the Authorization header for a request to u using
// the current UTC time. The signed header set is the minimum required
// trio: host (with an explicit :port suffix only when the URL carries
// one), x-amz-content-sha256 set to payloadHash, and x-amz-date. The
// caller must send all three headers with the values embedded here.
//
// payloadHash is either the lowercase hex SHA-256 of the request body
// or UnsignedPayload; it is never computed here.
func (s *Signer) Signature(u *url.URL, method string, payloadHash string) (*Signature, error) {
	hostPort, err := hostPort(u)
	if err != nil {
		return nil, stacktrace.Propagate(err, "Unable to sign request")
	}

	// The clock is read exactly once so the header timestamp and the
	// signed timestamp cannot disagree.
	tm := s.now().UTC()
	dateTime := tm.Format(timeutil.ISO8601CompactFormat)

	headers := Headers{
		keyHost:              hostPort,
		keyXAmzContentSHA256: payloadHash,
		keyXAmzDateLower:     dateTime,
	}

	rawURL := strings.TrimRight(u.String(), "/")
	signature, err := Sign(strings.ToUpper(method), payloadHash, rawURL, headers, tm, s.SecretKey, s.Region, s.Service)
	if err != nil {
		return nil, stacktrace.Propagate(err, "Unable to sign request")
	}

	return &Signature{
		AuthHeader: authorizationHeader(s.AccessKey, tm, s.Region, s.Service, signedHeaderString(headers), signature),
		DateTime:   dateTime,
	}, nil
}

// hostPort returns the host header value for u: the hostname, with an
// explicit ":port" suffix only if the URL specifies one.
func hostPort(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", stacktrace.NewError("URL has no host: %#v", u.String())
	}

	if port := u.Port(); port != "" {
		host += ":" + port
	}

	return host, nil
}

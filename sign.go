package sigv4

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/palantir/stacktrace"
	"github.com/s3lite/sigv4/timeutil"
)

// scope returns the credential scope string,
// {short-date}/{region}/{service}/aws4_request. The scope embedded in
// the Credential parameter must match the one used for key derivation
// or the service rejects the signature.
func scope(tm time.Time, region string, service string) string {
	return tm.UTC().Format(timeutil.ShortDateFormat) + "/" + region + "/" + service + "/" + keyAWS4Request
}

// stringToSign returns the value the derived key is applied to:
//
//	AWS4-HMAC-SHA256 + '\n' +
//	long-timestamp + '\n' +
//	scope + '\n' +
//	hex(sha256(canonical-request))
func stringToSign(tm time.Time, region string, service string, canonicalReq string) string {
	creqSum := sha256.Sum256([]byte(canonicalReq))

	return keyAWS4HMACSHA256 + "\n" +
		tm.UTC().Format(timeutil.ISO8601CompactFormat) + "\n" +
		scope(tm, region, service) + "\n" +
		hex.EncodeToString(creqSum[:])
}

// hmacSHA256 computes HMAC-SHA256 over data. SHA-256 accepts keys of
// any length, so a failure here should be unreachable, but the write
// error is surfaced rather than ignored per the hash.Hash contract.
func hmacSHA256(key []byte, data []byte) ([]byte, error) {
	mac := hmac.New(sha256.New, key)

	if _, err := mac.Write(data); err != nil {
		return nil, stacktrace.Propagate(err, "Failed to write %d bytes to HMAC-SHA256", len(data))
	}

	return mac.Sum(nil), nil
}

// signingKey derives the 32-byte scoped signing key through four
// chained HMAC-SHA256 stages over short-date, region, service, and the
// literal "aws4_request". Each stage keys on the previous stage's raw
// output bytes. The key depends only on the (date, region, service,
// secret) tuple and is safe to reuse across requests sharing that
// tuple within the same UTC day.
func signingKey(tm time.Time, secret string, region string, service string) ([]byte, error) {
	kDate, err := hmacSHA256([]byte(keyAWS4+secret), []byte(tm.UTC().Format(timeutil.ShortDateFormat)))
	if err != nil {
		return nil, stacktrace.Propagate(err, "Unable to derive signing key: failed to hash short date")
	}

	kRegion, err := hmacSHA256(kDate, []byte(region))
	if err != nil {
		return nil, stacktrace.Propagate(err, "Unable to derive signing key: failed to hash region")
	}

	kService, err := hmacSHA256(kRegion, []byte(service))
	if err != nil {
		return nil, stacktrace.Propagate(err, "Unable to derive signing key: failed to hash service")
	}

	kSigning, err := hmacSHA256(kService, []byte(keyAWS4Request))
	if err != nil {
		return nil, stacktrace.Propagate(err, "Unable to derive signing key: failed to hash request type")
	}

	return kSigning, nil
}

// authorizationHeader assembles the Authorization header value:
// AWS4-HMAC-SHA256 Credential={access}/{scope},SignedHeaders={signed},Signature={signature}
func authorizationHeader(accessKey string, tm time.Time, region string, service string, signedHeaders string, signature string) string {
	return keyAWS4HMACSHA256 + " " +
		keyCredential + "=" + accessKey + "/" + scope(tm, region, service) + "," +
		keySignedHeaders + "=" + signedHeaders + "," +
		keySignature + "=" + signature
}

// Sign computes the hex SigV4 signature for the described request at
// tm. The headers must already contain every header that should be
// signed (only host and x-amz-* entries participate); payloadHash is
// taken verbatim, UnsignedPayload included.
//
// Sign is a pure function of its inputs: identical arguments yield a
// byte-identical signature.
func Sign(method string, payloadHash string, rawURL string, headers Headers, tm time.Time, secret string, region string, service string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", stacktrace.Propagate(err, "Unable to sign request: failed to parse URL %#v", rawURL)
	}

	canonicalReq := canonicalRequest(method, u, headers, payloadHash)

	key, err := signingKey(tm, secret, region, service)
	if err != nil {
		return "", stacktrace.Propagate(err, "Unable to sign request")
	}

	signature, err := hmacSHA256(key, []byte(stringToSign(tm, region, service, canonicalReq)))
	if err != nil {
		return "", stacktrace.Propagate(err, "Unable to sign request: failed to hash string to sign")
	}

	return hex.EncodeToString(signature), nil
}

package policy

import "net/url"

// RoundTrip performs a transport encode/decode cycle on a candidate that has
// already been classified as Allow.
//
// Encoding then decoding normalizes how reserved and non-ASCII characters
// travel on the wire and is the identity on well-formed input, so re-running
// classification on the result yields the same verdict. RoundTrip is not a
// validation step and must only be applied after an Allow verdict.
func RoundTrip(candidate string) string {
	decoded, err := url.QueryUnescape(url.QueryEscape(candidate))
	if err != nil {
		// QueryEscape output is always decodable; keep the original if
		// that ever stops holding.
		return candidate
	}
	return decoded
}

package fastparser

import (
	"fmt"
	"net/url"
	"strings"
)

// DecodePercent reverses URL escaping: '+' becomes a space and %XX becomes
// the byte with hex value XX. For example "an+example%20string" decodes to
// "an example string". Malformed escapes are reported as ErrBadRequest.
func DecodePercent(s string) (string, error) {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return "", fmt.Errorf("%w: bad percent-encoding: %v", ErrBadRequest, err)
	}
	return out, nil
}

// DecodeParams decodes "name=Jack%20Daniels&pass=Single%20Malt" into into.
// Pairs without '=' are skipped. Keys are trimmed after decoding and a later
// pair overwrites an earlier one with the same key.
func DecodeParams(s string, into map[string]string) error {
	for _, pair := range strings.Split(s, "&") {
		sep := strings.IndexByte(pair, '=')
		if sep < 0 {
			continue
		}
		key, err := DecodePercent(pair[:sep])
		if err != nil {
			return err
		}
		value, err := DecodePercent(pair[sep+1:])
		if err != nil {
			return err
		}
		into[strings.TrimSpace(key)] = value
	}
	return nil
}

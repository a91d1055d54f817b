package gateways

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// verifySharedSecret authenticates a webhook body against an HMAC-SHA256 hex
// signature carried in one of the candidate headers. A header holding the
// literal secret is also accepted, since some gateways echo the configured
// token instead of signing the payload. An empty secret accepts everything.
func verifySharedSecret(header http.Header, body []byte, secret string, candidates []string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}

	for _, name := range candidates {
		value := strings.TrimSpace(header.Get(name))
		if value == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(value), []byte(secret)) == 1 {
			return nil
		}
		if matchesHMACHex(value, body, secret) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func matchesHMACHex(signature string, body []byte, secret string) bool {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

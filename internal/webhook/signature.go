// Package webhook implements the HMAC manifest scheme shared by the inbound
// payment webhook and the outbound dispatcher.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"loja-core/internal/model"
)

// Header names used with the signature scheme.
const (
	HeaderSignature = "X-Signature"
	HeaderRequestID = "X-Request-Id"
)

// Manifest builds the signed string for a notification:
// "id:{paymentId};request-id:{requestId};ts:{timestamp};".
func Manifest(id, requestID string, ts int64) string {
	return fmt.Sprintf("id:%s;request-id:%s;ts:%d;", id, requestID, ts)
}

// Sign computes the hex HMAC-SHA256 of the manifest under the secret.
func Sign(secret, id, requestID string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(id, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader formats a complete `ts=...,v1=...` header value.
func SignatureHeader(secret, id, requestID string, ts int64) string {
	return fmt.Sprintf("ts=%d,v1=%s", ts, Sign(secret, id, requestID, ts))
}

// parseHeader splits a `ts=<unix>,v1=<hex>` header into its parts.
func parseHeader(header string) (ts int64, v1 string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "ts":
			ts, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("invalid ts in signature header: %w", err)
			}
		case "v1":
			v1 = value
		}
	}
	if ts == 0 || v1 == "" {
		return 0, "", fmt.Errorf("signature header missing ts or v1")
	}
	return ts, v1, nil
}

// Verify checks the signature header against the expected HMAC for the given
// payment id and request id. The comparison is constant time. A failure
// returns model.ErrUnauthorized.
func Verify(secret, header, id, requestID string) error {
	if header == "" {
		return model.ErrUnauthorized
	}

	ts, v1, err := parseHeader(header)
	if err != nil {
		return model.ErrUnauthorized
	}

	expected := Sign(secret, id, requestID, ts)
	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return model.ErrUnauthorized
	}

	return nil
}

package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
)

const SignatureHeader = "X-Signature"

func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks a hex HMAC-SHA256 of body, optionally prefixed with
// "sha256=".
func VerifyHMAC(secret string, body []byte, signature string) error {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", errs.ErrInvalidSignature, SignatureHeader)
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", errs.ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return errs.ErrInvalidSignature
	}

	return nil
}

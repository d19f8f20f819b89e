package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	pkgError "github.com/AzielCF/az-pilot/pkg/error"
)

func PanicIfNeeded(err any, message ...string) {
	if err != nil {
		if err == "record not found" && len(message) > 0 {
			panic(pkgError.NotFoundError(message[0]))
		} else {
			panic(err)
		}
	}
}

// GetMessageDigestOrSignature signs the message with HMAC-SHA256 and returns
// the hex digest.
func GetMessageDigestOrSignature(message, key []byte) (string, error) {
	mac := hmac.New(sha256.New, key)
	if _, err := mac.Write(message); err != nil {
		return "", err
	}
	return hex.EncodeToString(mac.Sum(nil)), nil
}

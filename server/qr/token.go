package qr

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// TOKEN_BYTES of entropy, hex encoded into a 64 character token.
const TOKEN_BYTES = 32

func GenerateToken() (string, error) {
	buf := make([]byte, TOKEN_BYTES)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("GenerateToken: %v", err)
	}
	return hex.EncodeToString(buf), nil
}

// EmergencyURL is the public page a printed code points at.
func EmergencyURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/e/" + token
}

func ObjectKey(token string) string {
	return token + ".png"
}

package crypto

import (
	"encoding/base64"
	"strings"
)

// Sealed payloads travel inside URL query components. The standard base64
// alphabet is remapped reversibly: '+' -> '-', '/' -> '_', '=' -> '*'.
var (
	toURLSafe   = strings.NewReplacer("+", "-", "/", "_", "=", "*")
	fromURLSafe = strings.NewReplacer("-", "+", "_", "/", "*", "=")
)

func EncodeSealed(b []byte) string {
	return toURLSafe.Replace(base64.StdEncoding.EncodeToString(b))
}

func DecodeSealed(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(fromURLSafe.Replace(s))
}

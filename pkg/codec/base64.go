package codec

import (
	"encoding/base64"
	"fmt"
)

// EncodeBase64 encodes data with the standard base64 alphabet and padding.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes standard base64 text.
func DecodeBase64(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("codec: decode base64: %w", err)
	}
	return data, nil
}

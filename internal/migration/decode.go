package migration

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errEmptyImage = errors.New("empty image data")

// decodeImage turns an inline image into bytes. It accepts data URIs with
// base64 or percent-encoded payloads, and bare base64.
func decodeImage(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyImage
	}

	if !strings.HasPrefix(s, "data:") {
		return decodeBase64(s)
	}

	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI: missing comma")
	}
	if payload == "" {
		return nil, errEmptyImage
	}
	if strings.HasSuffix(meta, ";base64") {
		return decodeBase64(payload)
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("unescaping data URI: %w", err)
	}
	return []byte(data), nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, s)

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// Some encoders drop the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding base64: %w", err)
	}
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	return data, nil
}

package utils

import (
	"bytes"

	"github.com/mogaika/assetrename/config"

	"github.com/pkg/errors"
	"golang.org/x/text/transform"
)

// DecodeString converts raw file bytes to a Go string using the configured
// charset. Bytes after the first zero are ignored.
func DecodeString(bs []byte) (string, error) {
	n := bytes.IndexByte(bs, 0)
	if n < 0 {
		n = len(bs)
	}

	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs[0:n])
	if err != nil {
		return "", errors.Wrapf(err, "Cannot decode string %q", bs[0:n])
	}
	return string(s), nil
}

// EncodeString is the inverse of DecodeString. Runes that the charset
// cannot represent are an error.
func EncodeString(s string) ([]byte, error) {
	bs, _, err := transform.Bytes(config.GetEncoding().NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot encode string %q with %v", s, config.GetEncoding())
	}
	return bs, nil
}

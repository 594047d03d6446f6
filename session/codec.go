package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// TokenCodec converts between opaque tokens and claims.
type TokenCodec interface {
	Encode(c Claims) (string, error)
	Decode(token string) (Claims, error)
}

// Base64JSONCodec is the login surface's token format: standard base64 over
// a JSON claims object.
type Base64JSONCodec struct{}

func (Base64JSONCodec) Encode(c Claims) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func (Base64JSONCodec) Decode(token string) (Claims, error) {
	var c Claims

	token = strings.TrimSpace(token)
	if token == "" {
		return c, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(token)
		if err != nil {
			return c, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return c, nil
}

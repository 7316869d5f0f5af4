package resolver

// signer.go: HMAC-SHA256 request signing for authenticated venue routes.
//
// signature = base64(HMAC_SHA256(secret, timestamp + METHOD + requestPath + body))
//
// The headers are sent twice (X-API-* and POLY_*) because deployments disagree
// on the names they read.

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/alejandrodnm/polyledger/internal/domain"
)

// Credentials is the API key triple issued by the venue.
type Credentials struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

// Complete reports whether all three fields are set.
func (c Credentials) Complete() bool {
	return c.APIKey != "" && c.Secret != "" && c.Passphrase != ""
}

// Signer signs requests with a decoded secret.
type Signer struct {
	creds   Credentials
	address string
	secret  []byte
}

// NewSigner validates the credentials and decodes the secret once.
// address is optional and, when set, is sent as POLY_ADDRESS.
func NewSigner(creds Credentials, address string) (*Signer, error) {
	switch {
	case creds.APIKey == "":
		return nil, &domain.ConfigurationError{Field: "api_key", Msg: "missing API key"}
	case creds.Secret == "":
		return nil, &domain.ConfigurationError{Field: "api_secret", Msg: "missing API secret"}
	case creds.Passphrase == "":
		return nil, &domain.ConfigurationError{Field: "api_passphrase", Msg: "missing API passphrase"}
	}
	secret, err := DecodeSecret(creds.Secret)
	if err != nil {
		return nil, err
	}
	return &Signer{creds: creds, address: address, secret: secret}, nil
}

// DecodeSecret tries standard base64, then URL-safe base64, then hex.
func DecodeSecret(secret string) ([]byte, error) {
	s := strings.TrimSpace(secret)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}

	urlSafe := strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if rem := len(urlSafe) % 4; rem != 0 {
		urlSafe += strings.Repeat("=", 4-rem)
	}
	if b, err := base64.StdEncoding.DecodeString(urlSafe); err == nil {
		return b, nil
	}

	if b, err := hex.DecodeString(s); err == nil {
		return b, nil
	}
	return nil, &domain.ConfigurationError{
		Field: "api_secret",
		Msg:   "secret is neither base64, url-safe base64 nor hex",
	}
}

// Sign returns the base64 HMAC for one request.
func (s *Signer) Sign(timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(timestamp + strings.ToUpper(method) + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers in both naming schemes.
func (s *Signer) Headers(timestamp, method, requestPath, body string) map[string]string {
	sig := s.Sign(timestamp, method, requestPath, body)
	h := map[string]string{
		"X-API-KEY":        s.creds.APIKey,
		"X-API-SIGNATURE":  sig,
		"X-API-TIMESTAMP":  timestamp,
		"X-API-PASSPHRASE": s.creds.Passphrase,
		"POLY_API_KEY":     s.creds.APIKey,
		"POLY_SIGNATURE":   sig,
		"POLY_TIMESTAMP":   timestamp,
		"POLY_PASSPHRASE":  s.creds.Passphrase,
	}
	if s.address != "" {
		h["POLY_ADDRESS"] = s.address
	}
	return h
}

// APIKey is used by venues that echo the key in request bodies (order owner).
func (s *Signer) APIKey() string { return s.creds.APIKey }

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// Verifier parses bearer tokens issued by the identity provider into a user id.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
	skew     time.Duration
	now      func() time.Time
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// NewVerifier constructs an HS256 Verifier.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: secret is required")
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 30 * time.Second
	}
	return &Verifier{
		secret:   []byte(cfg.Secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		skew:     skew,
		now:      time.Now,
	}, nil
}

// WithNow overrides the clock used for expiry checks.
func (v *Verifier) WithNow(now func() time.Time) {
	if now != nil {
		v.now = now
	}
}

// ParseAccessToken validates token and returns its subject.
func (v *Verifier) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != jwa.HS256 {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if err := v.validateClaims(parsed); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return parsed.Subject(), nil
}

// validateClaims checks expiry with the configured skew, the issuer and audience when
// set, and that a subject is present.
func (v *Verifier) validateClaims(tok jwt.Token) error {
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(v.now)),
		jwt.WithAcceptableSkew(v.skew),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	if err := jwt.Validate(tok, options...); err != nil {
		return err
	}
	if strings.TrimSpace(tok.Subject()) == "" {
		return errors.New("auth: token has no subject")
	}
	return nil
}

// Issue signs a token for userID. It is used by local tooling and tests; production
// tokens come from the identity provider.
func (v *Verifier) Issue(userID string, ttl time.Duration) (string, error) {
	now := v.now()
	builder := jwt.NewBuilder().
		Subject(userID).
		IssuedAt(now).
		NotBefore(now.Add(-v.skew)).
		Expiration(now.Add(ttl))
	if v.issuer != "" {
		builder = builder.Issuer(v.issuer)
	}
	if v.audience != "" {
		builder = builder.Audience([]string{v.audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

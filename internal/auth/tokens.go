package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenValidator validates structural and contextual properties of JWT tokens.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// Validate ensures the supplied token satisfies issuer, audience, expiry, and algorithm requirements.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	if algorithm == "" {
		return errors.New("auth: token missing algorithm")
	}
	if v.Algorithm != "" && algorithm != v.Algorithm {
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	}
	if v.ClockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.ClockSkew))
	}
	if v.Issuer != "" {
		options = append(options, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		options = append(options, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, options...)
}

// signAccessToken issues a signed HS256 access token for the user.
func (s *Service) signAccessToken(userID string) (string, time.Time, error) {
	now := s.now()
	expiry := now.Add(s.accessTTL)
	builder := jwt.NewBuilder().
		Subject(userID).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		Expiration(expiry)
	tok, err := builder.Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiry, nil
}

// ParseAccessToken verifies a signed token and returns the subject user id.
func (s *Service) ParseAccessToken(raw string) (string, error) {
	if s == nil {
		return "", errors.New("auth: service not configured")
	}
	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return "", fmt.Errorf("auth: parse token: %w", err)
	}
	var alg jwa.SignatureAlgorithm
	if sigs := msg.Signatures(); len(sigs) > 0 {
		alg = sigs[0].ProtectedHeaders().Algorithm()
	}

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithValidate(false),
	)
	if err != nil {
		return "", fmt.Errorf("auth: verify token: %w", err)
	}
	if err := s.validator.Validate(tok, alg, s.now()); err != nil {
		return "", err
	}
	sub := tok.Subject()
	if sub == "" {
		return "", errors.New("auth: token missing subject")
	}
	return sub, nil
}

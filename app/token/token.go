// Package token issues and verifies signed bearer tokens identifying a user.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/uuid"
)

// Issuer is set as "iss" of every token and required on verification
const Issuer = "jobboard"

// DefaultTTL used when Params.TTL is not set
const DefaultTTL = 24 * time.Hour

// ErrInvalid returned for tokens failing signature, issuer, expiry or subject checks
var ErrInvalid = errors.New("invalid token")

// Params configures Service
type Params struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time // defaults to time.Now
}

// Service signs and verifies HS256 JWTs
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	signer jose.Signer
}

// New makes token service, secret must not be empty
func New(p Params) (*Service, error) {
	if p.Secret == "" {
		return nil, errors.New("empty token secret")
	}
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte(p.Secret)},
		(&jose.SignerOptions{}).WithType("JWT"))
	if err != nil {
		return nil, fmt.Errorf("failed to make signer: %w", err)
	}
	return &Service{secret: []byte(p.Secret), ttl: p.TTL, now: p.Now, signer: sig}, nil
}

// Issue returns a signed token for the user
func (s *Service) Issue(userID int64) (string, error) {
	now := s.now()
	cl := jwt.Claims{
		Issuer:   Issuer,
		Subject:  strconv.FormatInt(userID, 10),
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(s.ttl)),
	}
	raw, err := jwt.Signed(s.signer).Claims(cl).CompactSerialize()
	if err != nil {
		return "", fmt.Errorf("failed to sign token for user %d: %w", userID, err)
	}
	return raw, nil
}

// Verify checks the token and returns the user id from its subject
func (s *Service) Verify(raw string) (int64, error) {
	tok, err := jwt.ParseSigned(raw)
	if err != nil {
		return 0, ErrInvalid
	}
	if len(tok.Headers) != 1 || tok.Headers[0].Algorithm != string(jose.HS256) {
		return 0, ErrInvalid
	}

	var cl jwt.Claims
	if err = tok.Claims(s.secret, &cl); err != nil {
		return 0, ErrInvalid
	}
	if cl.Expiry == nil {
		return 0, ErrInvalid
	}
	if err = cl.ValidateWithLeeway(jwt.Expected{Issuer: Issuer, Time: s.now()}, 0); err != nil {
		return 0, ErrInvalid
	}

	id, err := strconv.ParseInt(cl.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalid
	}
	return id, nil
}

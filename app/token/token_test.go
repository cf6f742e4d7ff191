package token

import (
	"strconv"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New(Params{})
	require.Error(t, err)

	s, err := New(Params{Secret: "secret"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, s.ttl)
}

func TestService_IssueVerify(t *testing.T) {
	s, err := New(Params{Secret: "secret", TTL: time.Hour})
	require.NoError(t, err)

	raw, err := s.Issue(42)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)

	id, err := s.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	raw2, err := s.Issue(42)
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2, "each token has its own id")
}

func TestService_VerifyRejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	s, err := New(Params{Secret: "secret", TTL: time.Hour, Now: func() time.Time { return clock }})
	require.NoError(t, err)
	good, err := s.Issue(7)
	require.NoError(t, err)

	other, err := New(Params{Secret: "other", Now: func() time.Time { return now }})
	require.NoError(t, err)
	foreign, err := other.Issue(7)
	require.NoError(t, err)

	sign := func(cl jwt.Claims) string {
		sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: []byte("secret")}, nil)
		require.NoError(t, err)
		raw, err := jwt.Signed(sig).Claims(cl).CompactSerialize()
		require.NoError(t, err)
		return raw
	}
	exp := jwt.NewNumericDate(now.Add(time.Hour))

	tests := []struct {
		name string
		raw  string
	}{
		{name: "garbage", raw: "not-a-token"},
		{name: "empty", raw: ""},
		{name: "wrong secret", raw: foreign},
		{name: "tampered", raw: good[:len(good)-2] + "xx"},
		{name: "wrong issuer", raw: sign(jwt.Claims{Issuer: "other", Subject: "7", Expiry: exp})},
		{name: "no expiry", raw: sign(jwt.Claims{Issuer: Issuer, Subject: "7"})},
		{name: "bad subject", raw: sign(jwt.Claims{Issuer: Issuer, Subject: "abc", Expiry: exp})},
		{name: "zero subject", raw: sign(jwt.Claims{Issuer: Issuer, Subject: strconv.Itoa(0), Expiry: exp})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Verify(tt.raw)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	t.Run("expired", func(t *testing.T) {
		clock = now.Add(2 * time.Hour)
		defer func() { clock = now }()
		_, err := s.Verify(good)
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

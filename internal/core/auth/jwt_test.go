package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTer() *JWTer {
	return &JWTer{Secret: []byte("super-secret"), Issuer: "team-directory", TTL: time.Hour}
}

func TestJWTer_IssueAndParse(t *testing.T) {
	j := newJWTer()
	tok, err := j.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Subject)
	assert.Equal(t, RoleAdmin, c.Role)
	assert.Equal(t, "team-directory", c.Issuer)
}

func TestJWTer_Expired(t *testing.T) {
	j := newJWTer()
	tok, err := j.Issue("admin", RoleAdmin)
	require.NoError(t, err)

	j.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = j.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTer_WrongSecretOrIssuer(t *testing.T) {
	tok, err := newJWTer().Issue("admin", RoleAdmin)
	require.NoError(t, err)

	other := newJWTer()
	other.Secret = []byte("other")
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other = newJWTer()
	other.Issuer = "someone-else"
	_, err = other.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTer_NoSecret(t *testing.T) {
	_, err := (&JWTer{Issuer: "x", TTL: time.Minute}).Issue("a", RoleAdmin)
	assert.Error(t, err)
}

func TestJWTer_Garbage(t *testing.T) {
	_, err := newJWTer().Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

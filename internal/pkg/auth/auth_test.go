package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettracer/assettracer/app/repository"
	"github.com/assettracer/assettracer/internal/pkg/testutil"
)

func TestTokenVerifier(t *testing.T) {
	v := NewTokenVerifier("super-secret", "authenticated")
	now := time.Now()

	token, err := v.Sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7c0f6a9e-1111-2222-3333-444455556666",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email:        "jane@example.com",
		UserMetadata: map[string]interface{}{"full_name": "Jane Doe"},
	})
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", claims.Email)
	assert.Equal(t, "Jane Doe", claims.Name())

	_, err = NewTokenVerifier("other-secret", "").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenVerifier("super-secret", "service_role").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "abc",
		Audience:  jwt.ClaimStrings{"authenticated"},
		ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
	}})
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp, err := v.Sign(Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "abc", Audience: jwt.ClaimStrings{"authenticated"}}})
	require.NoError(t, err)
	_, err = v.Verify(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewTokenVerifier("", "").Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenVerifierRejectsNoneAlgorithm(t *testing.T) {
	v := NewTokenVerifier("super-secret", "")
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "abc",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityResolveCreatesUserAndOrganization(t *testing.T) {
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	svc := NewIdentityService(repos.User, repos.Organization)

	id := ExternalIdentity{Provider: "github", ProviderUserID: "1001", Email: "Dev@Example.com", Name: "Dev"}
	user, err := svc.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email)

	orgs, err := repos.Organization.ListForUser(user.ID)
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "free", orgs[0].Tier)

	again, err := svc.Resolve(id)
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	// a second provider with the same email links to the same user
	google, err := svc.Resolve(ExternalIdentity{Provider: "google", ProviderUserID: "g-1", Email: "dev@example.com"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, google.ID)

	orgs, err = repos.Organization.ListForUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
}

func TestIdentityResolveWithoutEmail(t *testing.T) {
	db := testutil.NewDB(t)
	repos := repository.NewRepositories(db)
	svc := NewIdentityService(repos.User, repos.Organization)

	user, err := svc.Resolve(ExternalIdentity{Provider: ProviderSupabase, ProviderUserID: "uuid-1"})
	require.NoError(t, err)
	assert.Equal(t, "supabase_uuid-1@supabase.oauth.local", user.Email)
}

package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notely/internal/apperr"
	"notely/internal/models"
)

const testSecret = "test-secret-0123456789"

type fakeUsers map[string]*models.User

func (f fakeUsers) Get(_ context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("User not found")
}

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, nil)
	token, exp := issuer.Issue(models.Actor{ID: "u1", Role: models.RoleAdmin})

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.TokenID)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, nil)
	token, _ := issuer.Issue(models.Actor{ID: "u1", Role: models.RoleMember})

	other := NewIssuer("another-secret-0123456789", time.Hour, nil)
	_, err := other.Verify(token)
	assert.ErrorContains(t, err, "invalid signature")

	_, err = issuer.Verify("not base64!")
	assert.Error(t, err)

	forged := base64.URLEncoding.EncodeToString([]byte("id.u1.admin.9999999999.sig"))
	_, err = issuer.Verify(forged)
	assert.ErrorContains(t, err, "invalid signature")
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour, nil)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _ := issuer.Issue(models.Actor{ID: "u1", Role: models.RoleMember})

	issuer.now = time.Now
	_, err := issuer.Verify(token)
	assert.ErrorContains(t, err, "expired")
}

func TestRevoke(t *testing.T) {
	revoked := NewRevocations()
	issuer := NewIssuer(testSecret, time.Hour, revoked)
	token, _ := issuer.Issue(models.Actor{ID: "u1", Role: models.RoleMember})

	issuer.Revoke(token)
	_, err := issuer.Verify(token)
	assert.ErrorContains(t, err, "revoked")
	assert.Equal(t, 1, revoked.Len())

	issuer.Revoke("garbage")
	assert.Equal(t, 1, revoked.Len())
}

func TestResolverReadsCurrentRole(t *testing.T) {
	users := fakeUsers{"u1": {ID: "u1", Role: models.RoleAdmin}}
	issuer := NewIssuer(testSecret, time.Hour, nil)
	resolver := NewResolver(issuer, users)
	token, _ := issuer.Issue(models.Actor{ID: "u1", Role: models.RoleMember})

	actor, err := resolver.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{ID: "u1", Role: models.RoleAdmin}, actor)

	_, err = resolver.Resolve(context.Background(), "")
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	ghost, _ := issuer.Issue(models.Actor{ID: "ghost", Role: models.RoleMember})
	_, err = resolver.Resolve(context.Background(), ghost)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "fromcookie"})
	assert.Equal(t, "fromcookie", TokenFromRequest(r))
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), models.Actor{ID: "u1"})
	actor, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", actor.ID)
}

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"notely/internal/apperr"
	"notely/internal/models"
)

// Context key for the resolved actor
type contextKey string

const actorKey contextKey = "actor"

// CookieName is the cookie carrying the identity token.
const CookieName = "token"

// Claims is the content of a verified token.
type Claims struct {
	TokenID   string
	UserID    string
	Role      models.Role
	ExpiresAt time.Time
}

// Issuer signs and verifies identity tokens with an HMAC secret.
type Issuer struct {
	secret  []byte
	ttl     time.Duration
	revoked *Revocations
	now     func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, revoked *Revocations) *Issuer {
	if revoked == nil {
		revoked = NewRevocations()
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, revoked: revoked, now: time.Now}
}

// Issue creates a signed token for the actor.
// Token format: base64(tokenID.userID.role.expiration.signature)
func (i *Issuer) Issue(actor models.Actor) (string, time.Time) {
	expiresAt := i.now().Add(i.ttl)
	data := fmt.Sprintf("%s.%s.%s.%d", uuid.NewString(), actor.ID, actor.Role, expiresAt.Unix())
	signature := i.sign(data)
	token := base64.URLEncoding.EncodeToString([]byte(data + "." + signature))
	return token, expiresAt
}

// Verify validates the token and returns its claims.
func (i *Issuer) Verify(token string) (Claims, error) {
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token encoding")
	}

	parts := strings.Split(string(decoded), ".")
	if len(parts) != 5 {
		return Claims{}, fmt.Errorf("invalid token format")
	}

	tokenID, userID, role, expirationStr, signature := parts[0], parts[1], parts[2], parts[3], parts[4]

	data := strings.Join(parts[:4], ".")
	if !hmac.Equal([]byte(i.sign(data)), []byte(signature)) {
		return Claims{}, fmt.Errorf("invalid signature")
	}

	expiration, err := strconv.ParseInt(expirationStr, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid expiration")
	}
	expiresAt := time.Unix(expiration, 0)
	if !i.now().Before(expiresAt) {
		return Claims{}, fmt.Errorf("token expired")
	}
	if userID == "" {
		return Claims{}, fmt.Errorf("invalid user ID")
	}
	if i.revoked.IsRevoked(tokenID) {
		return Claims{}, fmt.Errorf("token revoked")
	}

	return Claims{TokenID: tokenID, UserID: userID, Role: models.Role(role), ExpiresAt: expiresAt}, nil
}

// Revoke invalidates a token before it expires. Invalid tokens are ignored.
func (i *Issuer) Revoke(token string) {
	claims, err := i.Verify(token)
	if err != nil {
		return
	}
	i.revoked.Revoke(claims.TokenID, claims.ExpiresAt)
}

func (i *Issuer) sign(data string) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

// UserLookup loads the current user record for a verified token.
type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// Resolver turns a request credential into an Actor. The role is read from
// the user record so that promotions apply to already issued tokens.
type Resolver struct {
	issuer *Issuer
	users  UserLookup
}

func NewResolver(issuer *Issuer, users UserLookup) *Resolver {
	return &Resolver{issuer: issuer, users: users}
}

func (r *Resolver) Resolve(ctx context.Context, token string) (models.Actor, error) {
	if token == "" {
		return models.Actor{}, apperr.Unauthenticated("Unauthorized")
	}
	claims, err := r.issuer.Verify(token)
	if err != nil {
		return models.Actor{}, &apperr.Error{Kind: apperr.KindUnauthenticated, Message: "Invalid token", Err: err}
	}
	user, err := r.users.Get(ctx, claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return models.Actor{}, apperr.Unauthenticated("User not found")
		}
		return models.Actor{}, err
	}
	return models.ActorOf(user), nil
}

// TokenFromRequest reads the token cookie, falling back to a bearer header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if len(h) > len(bearerPrefix) && strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return h[len(bearerPrefix):]
	}
	return ""
}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the actor from the request context
func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(models.Actor)
	return actor, ok
}

// SetAuthCookie sets the signed auth cookie on the response
func SetAuthCookie(w http.ResponseWriter, token string, expiresAt time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAuthCookie clears the auth cookie
func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

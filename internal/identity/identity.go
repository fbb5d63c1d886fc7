// Package identity turns a request into a domain.Identity: a verified JWT
// for registered players, or a guest id for everyone else.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quiz-arena/internal/domain"
)

const guestPrefix = "guest-"

// Claims is the token body: sub is the user id, name the display name.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 tokens.
type Service struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	allowGuests bool
	now         func() time.Time
}

func NewService(secret, issuer string, ttl time.Duration, allowGuests bool) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret:      []byte(secret),
		issuer:      issuer,
		ttl:         ttl,
		allowGuests: allowGuests,
		now:         time.Now,
	}
}

// Issue signs a token for userID.
func (s *Service) Issue(userID, name string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := s.now()
	claims := Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify validates token and returns the registered identity it names.
func (s *Service) Verify(token string) (domain.Identity, error) {
	if len(s.secret) == 0 {
		return domain.Identity{}, fmt.Errorf("%w: token auth disabled", domain.ErrUnauthenticated)
	}
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if claims.Subject == "" || strings.HasPrefix(claims.Subject, guestPrefix) {
		return domain.Identity{}, fmt.Errorf("%w: token without subject", domain.ErrUnauthenticated)
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	return domain.Identity{UserID: claims.Subject, DisplayName: name}, nil
}

// Guest returns a guest identity. A client supplied guest id is kept so a
// reconnecting guest gets their seat back; otherwise a new one is minted.
func (s *Service) Guest(guestID, name string) (domain.Identity, error) {
	if !s.allowGuests {
		return domain.Identity{}, fmt.Errorf("%w: guests not allowed", domain.ErrUnauthenticated)
	}
	if guestID == "" {
		guestID = guestPrefix + uuid.NewString()
	} else if !strings.HasPrefix(guestID, guestPrefix) {
		return domain.Identity{}, fmt.Errorf("%w: invalid guest id", domain.ErrUnauthenticated)
	} else if _, err := uuid.Parse(strings.TrimPrefix(guestID, guestPrefix)); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: invalid guest id", domain.ErrUnauthenticated)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Guest " + strings.TrimPrefix(guestID, guestPrefix)[:4]
	}
	return domain.Identity{UserID: guestID, DisplayName: name, Guest: true}, nil
}

// FromRequest reads a bearer token from the Authorization header or the
// token query parameter, falling back to a guest identity from guestId/name.
func (s *Service) FromRequest(r *http.Request) (domain.Identity, error) {
	token := bearer(r.Header.Get("Authorization"))
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token != "" {
		return s.Verify(token)
	}
	q := r.URL.Query()
	return s.Guest(q.Get("guestId"), q.Get("name"))
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

type contextKey struct{}

// Middleware resolves the identity once and stores it on the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.FromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// WithIdentity stores id on ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(domain.Identity)
	return id, ok
}

package websocket

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/commune-hq/realtime/internal/entity"
	user_repo "github.com/commune-hq/realtime/internal/repo/user"
	"github.com/commune-hq/realtime/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// identityCacheTTL bounds how long a disabled account can still open new
// connections after the cache was primed.
const identityCacheTTL = 30 * time.Second

// Identity is everything the realtime layer needs to know about the
// connection's owner. It is resolved once, before the upgrade.
type Identity struct {
	UserID      string
	Username    string
	DisplayName string
	Role        string
}

type AuthenticatorFunc func(r *http.Request) (Identity, error)

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// JWTWebSocketAuth verifies the bearer token and resolves the owner against
// the user directory. The role on the identity comes from the stored user,
// not the token, so a stale token never grants admin fan-out. Directory
// lookups are cached briefly in redis since reconnect storms hit this path
// once per connection.
func JWTWebSocketAuth(publicKey *rsa.PublicKey, rdb *redis.Client, users user_repo.UserRepoContract) AuthenticatorFunc {
	return func(r *http.Request) (Identity, error) {
		token := getTokenFromRequest(r)
		if token == "" {
			return Identity{}, &AuthError{Message: "missing access token"}
		}

		claims, err := utils.ParseAndVerifySign(token, publicKey)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				// The handshake can't set cookies, so a refresh must happen
				// over HTTP before reconnecting.
				return Identity{}, &AuthError{Message: "token expired, please refresh and reconnect"}
			}
			return Identity{}, &AuthError{Message: "invalid token"}
		}

		user, err := resolveUser(r, rdb, users, claims.Sub)
		if err != nil {
			return Identity{}, err
		}
		if !user.IsActive {
			return Identity{}, &AuthError{Message: "account disabled"}
		}

		return Identity{
			UserID:      user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Role:        user.Role,
		}, nil
	}
}

func resolveUser(r *http.Request, rdb *redis.Client, users user_repo.UserRepoContract, userID string) (*entity.User, error) {
	ctx := r.Context()
	cacheKey := fmt.Sprintf("ws:identity:%s", userID)

	cached, cacheErr := utils.GetCacheData[entity.User](ctx, rdb, cacheKey)
	if cacheErr != nil {
		log.Warn().Str("userID", userID).Msg("ws auth: identity cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	user, appErr := users.FindUserByID(ctx, userID)
	if appErr != nil {
		return nil, &AuthError{Message: "unknown user"}
	}

	if err := utils.SetCacheData(ctx, rdb, cacheKey, user, identityCacheTTL); err != nil {
		log.Warn().Str("userID", userID).Msg("ws auth: identity cache write failed")
	}

	return user, nil
}

func getTokenFromRequest(r *http.Request) string {
	// Option 1: Authorization header
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// Option 2: Query parameter
	token := r.URL.Query().Get("token")
	if token != "" {
		return token
	}

	// Option 3: Cookie
	cookie, err := r.Cookie("access_token")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

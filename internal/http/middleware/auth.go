package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/tenantsearch-backend/internal/http/response"
	"github.com/yungbote/tenantsearch-backend/internal/platform/apierr"
	"github.com/yungbote/tenantsearch-backend/internal/platform/ctxutil"
	"github.com/yungbote/tenantsearch-backend/internal/platform/logger"
)

// Claims is the HS256 token body. tenant_id binds every tenant route; admin
// unlocks the cross-tenant admin routes.
type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), secret: []byte(secret)}
}

// RequireAuth resolves the caller from the bearer token and attaches
// ctxutil.AuthData.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			response.RespondError(c, apierr.Unauthorized(errors.New("missing or invalid token")))
			return
		}
		ad, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.RespondError(c, apierr.Unauthorized(errors.New("invalid token")))
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithAuthData(c.Request.Context(), ad))
		c.Next()
	}
}

// RequireTenant rejects callers whose token carries no tenant.
func (am *AuthMiddleware) RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctxutil.TenantID(c.Request.Context()) == uuid.Nil {
			response.RespondError(c, apierr.Forbidden("isolation_violation", errors.New("token is not bound to a tenant")))
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		ad := ctxutil.GetAuthData(c.Request.Context())
		if ad == nil || !ad.Admin {
			response.RespondError(c, apierr.Forbidden("forbidden", errors.New("admin token required")))
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.AuthData, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	ad := &ctxutil.AuthData{Subject: claims.Subject, Admin: claims.Admin}
	if raw := strings.TrimSpace(claims.TenantID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.New("malformed tenant_id claim")
		}
		ad.TenantID = id
	}
	return ad, nil
}

// IssueToken signs an HS256 token. A zero ttl issues a token without expiry.
func IssueToken(secret string, subject string, tenantID uuid.UUID, admin bool, ttl time.Duration) (string, error) {
	claims := Claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	if tenantID != uuid.Nil {
		claims.TenantID = tenantID.String()
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/SnippetFactory/internal/models"
	"github.com/router-for-me/SnippetFactory/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Header and context keys used by the auth middleware.
const (
	APIKeyHeader = "X-API-Key"

	contextUserKey      = "user"
	contextAPIKeyIDKey  = "apiKeyID"
	contextAuthErrorKey = "authError"
)

// Authenticator resolves the caller from a bearer token or an API key.
type Authenticator struct {
	db        *gorm.DB
	jwtSecret string
	nowFn     func() time.Time
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(db *gorm.DB, jwtSecret string) *Authenticator {
	return &Authenticator{db: db, jwtSecret: jwtSecret, nowFn: time.Now}
}

// Identify attaches the caller to the context when credentials are present.
// Requests without credentials pass through. Bad credentials are recorded and
// rejected later by RejectInvalidCredentials, so the rate limiter still
// counts them against the client address.
func (a *Authenticator) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey := strings.TrimSpace(c.GetHeader(APIKeyHeader)); apiKey != "" {
			user, keyID, errKey := a.userForAPIKey(c, apiKey)
			if errKey != nil {
				markInvalidCredentials(c, "invalid api key")
				return
			}
			SetCurrentUser(c, user)
			c.Set(contextAPIKeyIDKey, keyID)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			markInvalidCredentials(c, "invalid authorization format")
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			markInvalidCredentials(c, "empty token")
			return
		}
		claims, errJWT := security.ParseUserToken(a.jwtSecret, token)
		if errJWT != nil {
			markInvalidCredentials(c, "invalid token")
			return
		}
		user, errUpsert := a.upsertUser(c, claims)
		if errUpsert != nil {
			log.WithError(errUpsert).Error("auth: upsert user failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
			return
		}
		SetCurrentUser(c, user)
		c.Next()
	}
}

// RejectInvalidCredentials answers 401 for requests whose credentials
// Identify could not verify.
func RejectInvalidCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		if reason := c.GetString(contextAuthErrorKey); reason != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}
		c.Next()
	}
}

func markInvalidCredentials(c *gin.Context, reason string) {
	c.Set(contextAuthErrorKey, reason)
	c.Next()
}

// RequireUser rejects requests that Identify did not attach a user to.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok && user != nil
}

// SetCurrentUser attaches user to the request context.
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(contextUserKey, user)
}

// CurrentAPIKeyID returns the ID of the API key used, if any.
func CurrentAPIKeyID(c *gin.Context) (uint64, bool) {
	value, ok := c.Get(contextAPIKeyIDKey)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint64)
	return id, ok
}

func (a *Authenticator) upsertUser(c *gin.Context, claims *security.UserClaims) (*models.User, error) {
	ctx := c.Request.Context()
	row := models.User{
		AuthID:   claims.Subject,
		Email:    strings.TrimSpace(claims.Email),
		Username: strings.TrimSpace(claims.Username),
		Plan:     models.PlanFree,
	}
	if errCreate := a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth_id"}},
		DoNothing: true,
	}).Create(&row).Error; errCreate != nil {
		return nil, errCreate
	}
	var user models.User
	if errFind := a.db.WithContext(ctx).Where("auth_id = ?", claims.Subject).First(&user).Error; errFind != nil {
		return nil, errFind
	}
	return &user, nil
}

var errInactiveKey = errors.New("api key inactive")

func (a *Authenticator) userForAPIKey(c *gin.Context, apiKey string) (*models.User, uint64, error) {
	ctx := c.Request.Context()
	var key models.APIKey
	if errFind := a.db.WithContext(ctx).
		Where("key_hash = ?", security.HashAPIKey(apiKey)).
		First(&key).Error; errFind != nil {
		return nil, 0, errFind
	}
	if !key.Active {
		return nil, 0, errInactiveKey
	}
	var user models.User
	if errFind := a.db.WithContext(ctx).First(&user, key.UserID).Error; errFind != nil {
		return nil, 0, errFind
	}
	now := a.nowFn().UTC()
	if errUpdate := a.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", key.ID).
		UpdateColumn("last_used_at", &now).Error; errUpdate != nil {
		log.WithError(errUpdate).Warn("auth: update api key last used failed")
	}
	return &user, key.ID, nil
}

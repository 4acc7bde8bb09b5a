package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AccountIDKey is the gin context key JWTAuth stores the account id under.
const AccountIDKey = "account_id"

// AccessTokenParser validates an access token and returns its account id.
type AccessTokenParser interface {
	ParseAccess(token string) (uint, error)
}

// JWTAuth rejects requests without a valid bearer access token.
func JWTAuth(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be a bearer token"})
			return
		}

		accountID, err := tokens.ParseAccess(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired or invalid"})
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the account authenticated by JWTAuth.
func AccountID(c *gin.Context) uint {
	return c.MustGet(AccountIDKey).(uint)
}

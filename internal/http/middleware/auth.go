package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/songcatalog-backend/internal/http/response"
	"github.com/yungbote/songcatalog-backend/internal/platform/apierr"
	"github.com/yungbote/songcatalog-backend/internal/platform/ctxutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

// AuthConfig names the scopes that grant write access. A study scope is
// StudyPrefix + studyId + StudySuffix, e.g. "song.ST1.WRITE".
type AuthConfig struct {
	Secret      string
	SystemScope string
	StudyPrefix string
	StudySuffix string
}

func AuthConfigFromEnv() AuthConfig {
	return AuthConfig{
		Secret:      envutil.String("AUTH_JWT_SECRET", ""),
		SystemScope: envutil.String("AUTH_SYSTEM_SCOPE", "song.WRITE"),
		StudyPrefix: envutil.String("AUTH_STUDY_PREFIX", "song."),
		StudySuffix: envutil.String("AUTH_STUDY_SUFFIX", ".WRITE"),
	}
}

// ScopeClaims accepts scopes at the top level or nested under "context".
type ScopeClaims struct {
	Scope   []string `json:"scope,omitempty"`
	Context struct {
		Scope []string `json:"scope,omitempty"`
	} `json:"context,omitempty"`
	jwt.RegisteredClaims
}

func (c *ScopeClaims) scopes() []string {
	out := make([]string, 0, len(c.Scope)+len(c.Context.Scope))
	out = append(out, c.Scope...)
	return append(out, c.Context.Scope...)
}

type AuthMiddleware struct {
	log *logger.Logger
	cfg AuthConfig
}

func NewAuthMiddleware(log *logger.Logger, cfg AuthConfig) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	if cfg.Secret == "" {
		middlewareLogger.Warn("AUTH_JWT_SECRET not set; write endpoints are unauthenticated")
	}
	return &AuthMiddleware{log: middlewareLogger, cfg: cfg}
}

// RequireSystem admits callers holding the system scope.
func (am *AuthMiddleware) RequireSystem() gin.HandlerFunc {
	return am.require(func(*gin.Context) string { return "" })
}

// RequireStudy admits callers holding the system scope or the write scope of
// the :studyId path parameter.
func (am *AuthMiddleware) RequireStudy() gin.HandlerFunc {
	return am.require(func(c *gin.Context) string { return c.Param("studyId") })
}

func (am *AuthMiddleware) require(studyOf func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if am.cfg.Secret == "" {
			c.Next()
			return
		}
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.RespondAPIError(c, nil, apierr.E(apierr.UnauthorizedToken, "missing or invalid token"))
			c.Abort()
			return
		}
		caller, err := am.Verify(tokenString)
		if err != nil {
			am.log.Debug("Token rejected", "error", err)
			response.RespondAPIError(c, nil, apierr.Wrap(apierr.UnauthorizedToken, err, "invalid token"))
			c.Abort()
			return
		}
		studyID := studyOf(c)
		if !am.allowed(caller, studyID) {
			response.RespondAPIError(c, nil, apierr.E(apierr.ForbiddenToken, "token lacks write access to %s", scopeTarget(studyID)))
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

// Verify checks the HS256 signature and expiry and extracts the scopes.
func (am *AuthMiddleware) Verify(tokenString string) (*ctxutil.Caller, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &ScopeClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(am.cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}
	caller := &ctxutil.Caller{Subject: claims.Subject, Scopes: claims.scopes()}
	for _, s := range caller.Scopes {
		if s == am.cfg.SystemScope {
			caller.System = true
		}
	}
	return caller, nil
}

func (am *AuthMiddleware) allowed(caller *ctxutil.Caller, studyID string) bool {
	if caller.System {
		return true
	}
	if studyID == "" {
		return false
	}
	want := am.cfg.StudyPrefix + studyID + am.cfg.StudySuffix
	for _, s := range caller.Scopes {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func scopeTarget(studyID string) string {
	if studyID == "" {
		return "the system"
	}
	return "study " + studyID
}

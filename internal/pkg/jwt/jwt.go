package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var ErrMissingClaim = errors.New("required claim is missing or invalid")

// Identity is the caller identity resolved from an access token. Token
// issuance belongs to the external auth system; this package only verifies
// tokens and mints short-lived stream tokens for the event feed.
type Identity struct {
	UserID     string
	EmployeeID string
	CompanyID  string
	Role       string
	IsAdmin    bool
}

type Service interface {
	JWTAuth() *jwtauth.JWTAuth

	// GenerateAccessToken mints an access token. Used by fixtures and tests;
	// production tokens come from the external auth service sharing the key.
	GenerateAccessToken(id Identity) (token string, expiresAt int64, err error)

	// GenerateStreamToken mints a short-lived token for event stream
	// connections, where headers cannot carry the access token.
	GenerateStreamToken(userID string, companyID string) (token string, expiresIn int, err error)

	ValidateStreamToken(tokenString string) (userID string, companyID string, err error)
}

type JWTService struct {
	secretKey        string
	accessExpiration string
	streamExpiration time.Duration
	tokenAuth        *jwtauth.JWTAuth
}

func NewJWTService(secretKey string, accessExpiration string, streamExpiration string) Service {
	streamExp, err := time.ParseDuration(streamExpiration)
	if err != nil || streamExp <= 0 {
		streamExp = 5 * time.Minute
	}
	return &JWTService{
		secretKey:        secretKey,
		accessExpiration: accessExpiration,
		streamExpiration: streamExp,
		tokenAuth:        jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(id Identity) (string, int64, error) {
	expDuration, err := time.ParseDuration(j.accessExpiration)
	if err != nil {
		return "", 0, err
	}
	expiresAt := time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":     id.UserID,
		"employee_id": id.EmployeeID,
		"company_id":  id.CompanyID,
		"role":        id.Role,
		"is_admin":    id.IsAdmin,
		"type":        "access",
		"exp":         expiresAt,
	})
	return tokenString, expiresAt, err
}

func (j *JWTService) GenerateStreamToken(userID string, companyID string) (string, int, error) {
	expiresAt := time.Now().Add(j.streamExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"type":       "stream",
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}
	return tokenString, int(j.streamExpiration.Seconds()), nil
}

func (j *JWTService) ValidateStreamToken(tokenString string) (string, string, error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "stream" {
		return "", "", jwt.ErrInvalidJWT()
	}

	userID, ok := stringClaim(token.Get("user_id"))
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}
	companyID, ok := stringClaim(token.Get("company_id"))
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}
	return userID, companyID, nil
}

func stringClaim(v interface{}, ok bool) (string, bool) {
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// FromContext resolves the caller identity from the verified token in the
// request context. Handlers and services use this instead of re-reading raw
// claims everywhere.
func FromContext(ctx context.Context) (Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, err
	}

	companyID, ok := claims["company_id"].(string)
	if !ok || companyID == "" {
		return Identity{}, ErrMissingClaim
	}

	id := Identity{CompanyID: companyID}
	if v, ok := claims["user_id"].(string); ok {
		id.UserID = v
	}
	if v, ok := claims["employee_id"].(string); ok {
		id.EmployeeID = v
	}
	if v, ok := claims["role"].(string); ok {
		id.Role = v
	}
	if v, ok := claims["is_admin"].(bool); ok {
		id.IsAdmin = v
	}
	return id, nil
}

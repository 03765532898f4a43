package auth

import (
	"fmt"
	"time"

	"github.com/Daskott/kavach/server/auth/key"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	PASSWORD_HASH_COST = 12
	TOKEN_TTL          = 7 * 24 * time.Hour
	ADMIN_TOKEN_TTL    = 12 * time.Hour
)

type KavachTokenClaims struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	IsAdmin bool   `json:"is_admin,omitempty"`
	jwt.StandardClaims

	signedLocally bool
}

func NewClaims(issuer, subject, email, name string, isAdmin bool) KavachTokenClaims {
	ttl := TOKEN_TTL
	if isAdmin {
		ttl = ADMIN_TOKEN_TTL
	}

	now := time.Now()
	return KavachTokenClaims{
		Email:   email,
		Name:    name,
		IsAdmin: isAdmin,
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PASSWORD_HASH_COST)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func EncodeJWT(claims KavachTokenClaims, keyPair *key.KeyPair) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod("RS256"), claims)
	token.Header["kid"] = keyPair.Kid

	tokenString, err := token.SignedString(keyPair.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("EncodeJWT: %v", err)
	}

	return tokenString, nil
}

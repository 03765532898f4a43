package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daskott/kavach/server/auth/key"
	"github.com/Daskott/kavach/shared"
	"github.com/golang-jwt/jwt"
	"github.com/lestrrat-go/jwx/jwk"
)

const JWKS_MIN_REFRESH_INTERVAL = 15 * time.Minute

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token provided")
)

// Verifier checks bearer tokens against this server's own key and, when
// configured, an external identity provider's JWKS or shared secret.
type Verifier struct {
	localIssuer string
	localKeys   jwk.Set

	jwksURL    string
	remoteKeys *jwk.AutoRefresh

	issuer string
	secret []byte
}

func NewVerifier(ctx context.Context, localIssuer string, keyPair *key.KeyPair, config shared.IdentityConfig) (*Verifier, error) {
	localKey, err := keyPair.JWK()
	if err != nil {
		return nil, err
	}

	localKeys := jwk.NewSet()
	localKeys.Add(localKey)

	verifier := &Verifier{
		localIssuer: localIssuer,
		localKeys:   localKeys,
		jwksURL:     config.JWKSURL,
		issuer:      config.Issuer,
		secret:      []byte(config.JWTSecret),
	}

	if config.JWKSURL != "" {
		verifier.remoteKeys = jwk.NewAutoRefresh(ctx)
		verifier.remoteKeys.Configure(config.JWKSURL, jwk.WithMinRefreshInterval(JWKS_MIN_REFRESH_INTERVAL))
	}

	return verifier, nil
}

// IsLocal reports whether claims came from a token signed with this server's
// own key. The iss claim alone decides nothing.
func (v *Verifier) IsLocal(claims *KavachTokenClaims) bool {
	return claims.signedLocally
}

func (v *Verifier) Verify(ctx context.Context, tokenString string) (*KavachTokenClaims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	// Set by keyFor when the server's own key is the one checking the signature
	signedLocally := false
	token, err := jwt.ParseWithClaims(tokenString, &KavachTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		k, local, err := v.keyFor(ctx, token)
		signedLocally = local
		return k, err
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*KavachTokenClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unable to assert token.Claims to KavachTokenClaims", ErrInvalidToken)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	claims.signedLocally = signedLocally
	if claims.signedLocally && claims.Issuer != v.localIssuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	if !v.IsLocal(claims) && v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	// Only this server hands out admin tokens
	if claims.IsAdmin && !v.IsLocal(claims) {
		return nil, fmt.Errorf("%w: admin claim from external issuer", ErrInvalidToken)
	}

	return claims, nil
}

// keyFor picks the key that checks token's signature and reports whether it
// is this server's own key.
func (v *Verifier) keyFor(ctx context.Context, token *jwt.Token) (interface{}, bool, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, false, errors.New("hmac signed tokens are not accepted")
		}
		return v.secret, false, nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
	default:
		return nil, false, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	kid, _ := token.Header["kid"].(string)

	if k, ok := lookupKey(v.localKeys, kid); ok {
		raw, err := rawKey(k)
		return raw, err == nil, err
	}

	if v.remoteKeys == nil {
		return nil, false, fmt.Errorf("no key found for kid %q", kid)
	}

	remoteKeys, err := v.remoteKeys.Fetch(ctx, v.jwksURL)
	if err != nil {
		return nil, false, fmt.Errorf("fetch jwks: %v", err)
	}

	if k, ok := lookupKey(remoteKeys, kid); ok {
		raw, err := rawKey(k)
		return raw, false, err
	}

	return nil, false, fmt.Errorf("no key found for kid %q", kid)
}

// ---------------------------------------------------------------------------------//
// Helper functions
// --------------------------------------------------------------------------------//

func lookupKey(set jwk.Set, kid string) (jwk.Key, bool) {
	if kid != "" {
		return set.LookupKeyID(kid)
	}

	// Without a kid only an unambiguous set can be used
	if set.Len() == 1 {
		return set.Get(0)
	}
	return nil, false
}

func rawKey(k jwk.Key) (interface{}, error) {
	var raw interface{}
	if err := k.Raw(&raw); err != nil {
		return nil, fmt.Errorf("jwk.Raw: %v", err)
	}
	return raw, nil
}

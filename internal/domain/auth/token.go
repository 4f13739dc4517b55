package auth

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v4"
)

// Claims is the JWT payload issued by the authentication service. The user id
// travels in the "id" claim; "sub" is accepted as a fallback.
type Claims struct {
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewVerifier creates a Verifier. When issuer is non-empty the "iss" claim
// must match it.
func NewVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{
		secret: secret,
		issuer: issuer,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify parses and validates a raw token and returns the identity it carries.
// Tokens without a role are treated as regular users.
func (v *Verifier) Verify(raw string) (Identity, error) {
	if len(v.secret) == 0 {
		return Identity{}, errors.Wrap(ErrUnauthenticated, "verifier has no secret")
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Identity{}, errors.Wrap(ErrUnauthenticated, "unexpected issuer")
	}

	id := Identity{UserID: claims.UserID, Role: strings.ToLower(strings.TrimSpace(claims.Role))}
	if id.UserID == "" {
		id.UserID = claims.Subject
	}
	if id.UserID == "" {
		return Identity{}, errors.Wrap(ErrUnauthenticated, "token has no subject")
	}
	if id.Role == "" {
		id.Role = RoleUser
	}
	return id, nil
}

// Issuer mints tokens in the same format the authentication service uses.
// It exists for local tooling and tests.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIssuer creates an Issuer.
func NewIssuer(secret []byte, issuer string) *Issuer {
	return &Issuer{secret: secret, issuer: issuer, now: time.Now}
}

// Sign returns a signed token for id valid for ttl.
func (i *Issuer) Sign(id Identity, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return token, nil
}

package capability

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Paintersrp/folio/internal/constants"
)

// Scope says what a token grants access to.
type Scope string

const (
	ScopeWorkspace Scope = "workspace"
	ScopeFile      Scope = "file"
)

// Resolution is the result of resolving a token.
type Resolution struct {
	Path  string
	Scope Scope
	Stale bool
}

// Bookmarker creates and resolves opaque access tokens.
type Bookmarker interface {
	Create(path string, scope Scope) (string, error)
	Resolve(token string) (Resolution, error)
}

type bookmarkClaims struct {
	Path     string `json:"path"`
	Scope    Scope  `json:"scope"`
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// SignedBookmarker issues HMAC-signed tokens that pin a path to the identity
// of the file it referred to when the token was created.
type SignedBookmarker struct {
	secret []byte
	now    func() time.Time
}

// NewSignedBookmarker returns a bookmarker signing with secret.
func NewSignedBookmarker(secret []byte) *SignedBookmarker {
	return &SignedBookmarker{secret: secret, now: time.Now}
}

func (b *SignedBookmarker) Create(path string, scope Scope) (string, error) {
	if len(b.secret) == 0 {
		return "", errors.New("signing secret is empty")
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	switch scope {
	case ScopeWorkspace:
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", path)
		}
	case ScopeFile:
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", path)
		}
	default:
		return "", fmt.Errorf("unknown scope %q", scope)
	}
	if err := readable(path); err != nil {
		return "", err
	}

	claims := bookmarkClaims{
		Path:     path,
		Scope:    scope,
		Identity: fileIdentity(path, info),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   constants.AppName,
			Subject:  path,
			IssuedAt: jwt.NewNumericDate(b.now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.secret)
}

// Resolve verifies the token signature and checks that the path still holds
// the same file. A missing path or a changed identity is stale.
func (b *SignedBookmarker) Resolve(tokenStr string) (Resolution, error) {
	claims := &bookmarkClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Path: claims.Path, Scope: claims.Scope}
	info, err := os.Stat(claims.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Stale = true
			return res, nil
		}
		return res, err
	}
	if fileIdentity(claims.Path, info) != claims.Identity {
		res.Stale = true
	}
	return res, nil
}

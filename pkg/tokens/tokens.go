package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/contacts/pkg/apperr"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	EmailTTL          = 7 * 24 * time.Hour
)

const (
	detailCredentials = "Could not validate credentials"
	detailScope       = "Invalid scope for token"
	detailEmail       = "Invalid token for email verification"
)

type Config struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Service issues and verifies access, refresh and email tokens signed with
// one shared secret and one fixed HMAC algorithm.
type Service struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("tokens: empty secret")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	var method jwt.SigningMethod
	switch alg {
	case jwt.SigningMethodHS256.Alg():
		method = jwt.SigningMethodHS256
	case jwt.SigningMethodHS384.Alg():
		method = jwt.SigningMethodHS384
	case jwt.SigningMethodHS512.Alg():
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("tokens: unsupported algorithm %q", alg)
	}

	s := &Service{
		secret:     cfg.Secret,
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        cfg.Now,
	}
	if s.accessTTL <= 0 {
		s.accessTTL = DefaultAccessTTL
	}
	if s.refreshTTL <= 0 {
		s.refreshTTL = DefaultRefreshTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
		jwt.WithExpirationRequired(),
	)
	return s, nil
}

// IssueAccessToken signs an access token for subject. ttl <= 0 uses the default.
func (s *Service) IssueAccessToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.accessTTL
	}
	return s.sign(subject, ScopeAccess, ttl)
}

// IssueRefreshToken signs a refresh token for subject. ttl <= 0 uses the default.
func (s *Service) IssueRefreshToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.refreshTTL
	}
	return s.sign(subject, ScopeRefresh, ttl)
}

func (s *Service) IssueEmailToken(subject string) (string, error) {
	return s.sign(subject, "", EmailTTL)
}

func (s *Service) AccessTTL() time.Duration  { return s.accessTTL }
func (s *Service) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Service) sign(subject, scope string, ttl time.Duration) (string, error) {
	iat := s.now()
	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
}

// Parse verifies the signature, algorithm and expiry and returns the claims.
func (s *Service) Parse(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := s.parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return &claims, nil
}

// DecodeRefresh returns the subject of a valid refresh token.
func (s *Service) DecodeRefresh(tokenStr string) (string, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUnauthorized, detailCredentials, err)
	}
	if claims.Scope != ScopeRefresh {
		return "", apperr.New(apperr.ErrUnauthorized, detailScope)
	}
	return claims.Subject, nil
}

// Authenticate returns the subject of a valid access token.
func (s *Service) Authenticate(tokenStr string) (string, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUnauthorized, detailCredentials, err)
	}
	if claims.Scope != ScopeAccess || claims.Subject == "" {
		return "", apperr.New(apperr.ErrUnauthorized, detailCredentials)
	}
	return claims.Subject, nil
}

// DecodeEmail returns the subject of a valid email-confirmation token.
func (s *Service) DecodeEmail(tokenStr string) (string, error) {
	claims, err := s.Parse(tokenStr)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrUnprocessable, detailEmail, err)
	}
	return claims.Subject, nil
}

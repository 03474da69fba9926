package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Common errors
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")
	ErrSubjectMismatch = errors.New("token subject does not match party")
	ErrNoCredential    = errors.New("no credential registered for party")
)

// Claims are the registered claims of a party credential
type Claims struct {
	jwt.RegisteredClaims
	PartyKind string `json:"party_kind,omitempty"`
}

// JWTVerifier checks HS256 party credentials held in its credential store
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger *zap.Logger

	mu          sync.RWMutex
	credentials map[string]string
}

// NewJWTVerifier creates a verifier; now supplies the validation time
func NewJWTVerifier(secret, issuer string, now func() time.Time, logger *zap.Logger) *JWTVerifier {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JWTVerifier{
		secret:      []byte(secret),
		issuer:      issuer,
		now:         now,
		logger:      logger,
		credentials: make(map[string]string),
	}
}

// Register stores the credential presented on behalf of a party
func (v *JWTVerifier) Register(partyID, token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.credentials[partyID] = token
}

// Issue signs a credential for a party; issuance normally happens outside the market
func (v *JWTVerifier) Issue(partyID, kind string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    v.issuer,
			Subject:   partyID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		PartyKind: kind,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

// IssueAndRegister issues a credential and stores it for the party
func (v *JWTVerifier) IssueAndRegister(partyID, kind string, ttl time.Duration) error {
	token, err := v.Issue(partyID, kind, ttl)
	if err != nil {
		return fmt.Errorf("issue credential for %s: %w", partyID, err)
	}
	v.Register(partyID, token)
	return nil
}

// Verify returns true when the party's stored credential is valid and names the party
func (v *JWTVerifier) Verify(_ context.Context, partyID string) bool {
	if err := v.check(partyID); err != nil {
		v.logger.Warn("identity verification failed",
			zap.String("party_id", partyID),
			zap.Error(err))
		return false
	}
	return true
}

func (v *JWTVerifier) check(partyID string) error {
	v.mu.RLock()
	token, ok := v.credentials[partyID]
	v.mu.RUnlock()
	if !ok {
		return ErrNoCredential
	}

	claims, err := v.Validate(token)
	if err != nil {
		return err
	}
	if claims.Subject != partyID {
		return ErrSubjectMismatch
	}
	return nil
}

// Validate parses a credential and returns its claims
func (v *JWTVerifier) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithIssuer(v.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

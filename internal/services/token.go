package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brikvest/apiserver/config"
	"github.com/brikvest/apiserver/internal/cache"
	"github.com/brikvest/apiserver/internal/ids"
	"github.com/brikvest/apiserver/types"
)

const (
	accessTokenTTL   = 15 * time.Minute
	refreshTokenTTL  = 30 * 24 * time.Hour
	refreshKeyPrefix = "refresh:"
)

func refreshKey(tokenID string) string {
	return refreshKeyPrefix + tokenID
}

// Claims is the access-token payload. Permissions are embedded so
// guards can authorize without a database round trip.
type Claims struct {
	SessionID   string   `json:"sid"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenPair is what login and refresh hand back to clients.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresIn  int    `json:"access_expires_in"`
	RefreshExpiresIn int    `json:"refresh_expires_in"`
}

// TokenIssuer mints HS256 access tokens and opaque single-use refresh
// tokens. Refresh tokens are "<id>.<secret>": the record is keyed by
// the public ID and stores only a hash of the secret.
type TokenIssuer struct {
	secret []byte
	issuer string
	cache  *cache.Client
}

func NewTokenIssuer(cfg config.JWTConfig, c *cache.Client) *TokenIssuer {
	return &TokenIssuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, cache: c}
}

// Issue builds a token pair bound to the given session.
func (t *TokenIssuer) Issue(ctx context.Context, user types.User, sess types.Session, roles, permissions []string) (TokenPair, error) {
	now := time.Now()
	claims := Claims{
		SessionID:   sess.SessionID,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			Issuer:    t.issuer,
			ID:        ids.New(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := t.mintRefresh(ctx, user.ID, sess)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresIn:  int(accessTokenTTL.Seconds()),
		RefreshExpiresIn: int(refreshTokenTTL.Seconds()),
	}, nil
}

// Verify parses and validates an access token, returning its claims.
func (t *TokenIssuer) Verify(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer))
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenIssuer) mintRefresh(ctx context.Context, userID int, sess types.Session) (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)
	hash := sha256.Sum256([]byte(secret))

	tokenID := ids.New()
	record := types.RefreshRecord{
		UserID:     userID,
		SessionID:  sess.SessionID,
		DeviceInfo: sess.DeviceInfo,
		SecretHash: hex.EncodeToString(hash[:]),
		CreatedAt:  time.Now(),
	}
	if err := t.cache.SetJSON(ctx, refreshKey(tokenID), record, refreshTokenTTL); err != nil {
		return "", err
	}
	return tokenID + "." + secret, nil
}

// Redeem validates a refresh token and consumes it. The record is
// deleted before the caller mints a replacement, so a token can only
// ever be redeemed once.
func (t *TokenIssuer) Redeem(ctx context.Context, refreshToken string) (types.RefreshRecord, error) {
	tokenID, secret, ok := strings.Cut(refreshToken, ".")
	if !ok || tokenID == "" || secret == "" {
		return types.RefreshRecord{}, ErrInvalidToken
	}

	var record types.RefreshRecord
	if err := t.cache.GetJSON(ctx, refreshKey(tokenID), &record); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return types.RefreshRecord{}, ErrInvalidToken
		}
		return types.RefreshRecord{}, err
	}

	hash := sha256.Sum256([]byte(secret))
	if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(hash[:])), []byte(record.SecretHash)) != 1 {
		return types.RefreshRecord{}, ErrInvalidToken
	}

	if err := t.cache.Delete(ctx, refreshKey(tokenID)); err != nil {
		return types.RefreshRecord{}, err
	}
	return record, nil
}

// Package services contains the identity services for karafriends clients.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/karafriends/backend/internal/session"
)

const (
	maxNicknameLength = 32
	maxDeviceIDLength = 64
)

var (
	ErrInvalidDeviceID = errors.New("deviceId must be 1-64 printable characters")
	ErrInvalidNickname = errors.New("nickname must be at most 32 characters")
)

// Claims represents the JWT payload for identified requests.
// It only names the device and nickname; it grants nothing.
type Claims struct {
	DeviceID string `json:"did"`
	Nickname string `json:"nick"`
	jwt.RegisteredClaims
}

// Identity returns the user identity the token was issued for.
func (c *Claims) Identity() session.UserIdentity {
	return session.UserIdentity{DeviceID: c.DeviceID, Nickname: c.Nickname}
}

// IdentityService issues and validates device identity tokens.
type IdentityService struct {
	secret        []byte
	tokenDuration time.Duration
	nicknames     *NicknameGenerator
}

// NewIdentityService creates an IdentityService with the given signing secret and token duration.
func NewIdentityService(secret string, tokenDuration time.Duration, nicknames *NicknameGenerator) *IdentityService {
	return &IdentityService{
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
		nicknames:     nicknames,
	}
}

// Resolve fills in a missing device id with a fresh UUID and a missing
// nickname with a generated one, then validates both.
func (s *IdentityService) Resolve(deviceID, nickname string) (session.UserIdentity, error) {
	deviceID = strings.TrimSpace(deviceID)
	nickname = strings.TrimSpace(nickname)

	if deviceID == "" {
		deviceID = uuid.NewString()
	}
	if nickname == "" {
		nickname = s.nicknames.Generate()
	}

	if utf8.RuneCountInString(deviceID) > maxDeviceIDLength || strings.IndexFunc(deviceID, notPrintable) >= 0 {
		return session.UserIdentity{}, ErrInvalidDeviceID
	}
	if utf8.RuneCountInString(nickname) > maxNicknameLength || strings.IndexFunc(nickname, unicode.IsControl) >= 0 {
		return session.UserIdentity{}, ErrInvalidNickname
	}

	return session.UserIdentity{DeviceID: deviceID, Nickname: nickname}, nil
}

// GenerateToken creates a signed JWT naming user.
func (s *IdentityService) GenerateToken(user session.UserIdentity) (string, error) {
	claims := Claims{
		DeviceID: user.DeviceID,
		Nickname: user.Nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "karafriends",
			Subject:   user.DeviceID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign identity token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the JWT signature and expiry, returning the claims if valid.
func (s *IdentityService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.DeviceID != "" {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func notPrintable(r rune) bool {
	return !unicode.IsPrint(r) || unicode.IsSpace(r)
}

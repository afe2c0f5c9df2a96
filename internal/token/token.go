// Package token реализует выпуск и проверку JWT-токенов доступа и обновления.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

// ErrInvalidToken возвращается для просроченного или некорректного токена.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims содержит полезную нагрузку токенов сервиса маркетплейса.
type Claims struct {
	UserID    int64  `json:"user_id"`
	UserType  string `json:"user_type,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Manager выпускает и проверяет подписанные HS256 токены.
type Manager struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewManager создаёт менеджер токенов с указанным секретом и сроками жизни.
// При пустом секрете генерируется случайный ключ: такие токены перестают
// действовать после перезапуска сервиса.
func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &Manager{
		secretKey:  key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Pair содержит пару токенов, выдаваемую при регистрации и входе.
type Pair struct {
	Access  string
	Refresh string
}

// NewPair выпускает пару access+refresh токенов для пользователя.
func (m *Manager) NewPair(userID int64, userType model.UserType) (*Pair, error) {
	access, err := m.NewAccess(userID, userType)
	if err != nil {
		return nil, err
	}

	refresh, err := m.sign(&Claims{
		UserID:    userID,
		TokenType: typeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	if err != nil {
		return nil, err
	}

	return &Pair{Access: access, Refresh: refresh}, nil
}

// NewAccess выпускает access-токен с ролью пользователя в claims.
func (m *Manager) NewAccess(userID int64, userType model.UserType) (string, error) {
	return m.sign(&Claims{
		UserID:    userID,
		UserType:  string(userType),
		TokenType: typeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
}

func (m *Manager) sign(claims *Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAccess проверяет access-токен и возвращает его полезную нагрузку.
func (m *Manager) ParseAccess(tokenString string) (*Claims, error) {
	return m.parse(tokenString, typeAccess)
}

// ParseRefresh проверяет refresh-токен и возвращает его полезную нагрузку.
func (m *Manager) ParseRefresh(tokenString string) (*Claims, error) {
	return m.parse(tokenString, typeRefresh)
}

func (m *Manager) parse(tokenString, wantType string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

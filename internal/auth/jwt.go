// Package auth выдаёт и проверяет bearer-токены операторов управляющего API.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/annel0/bucket-brigade/internal/logging"
)

const issuer = "bucket-brigade"

// ScopeControl - право менять мир через API (поджог, вёдра)
const ScopeControl = "control"

var (
	// ErrInvalidToken - токен не прошёл проверку
	ErrInvalidToken = errors.New("недействительный токен")
	// ErrWeakSecret - ключ подписи короче 32 байт
	ErrWeakSecret = errors.New("ключ подписи должен быть не короче 32 байт")
)

// Claims - содержимое токена оператора
type Claims struct {
	Operator string   `json:"operator"`
	Scopes   []string `json:"scopes"`
	jwt.RegisteredClaims
}

// HasScope проверяет наличие права
func (c *Claims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// TokenIssuer подписывает и проверяет токены одним HMAC-ключом
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer создаёт издателя. secret - ключ в base64; пустой ключ
// заменяется случайным, и выданные токены живут до перезапуска процесса.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	var key []byte
	if secret == "" {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("генерация ключа: %w", err)
		}
		logging.Warn("🔑 auth.secret не задан: используется случайный ключ")
	} else {
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("ключ подписи не в base64: %w", err)
		}
		key = decoded
	}
	if len(key) < 32 {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue выдаёт токен оператору с перечисленными правами
func (ti *TokenIssuer) Issue(operator string, scopes ...string) (string, error) {
	now := ti.now()
	claims := &Claims{
		Operator: operator,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   operator,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Validate проверяет подпись, срок и издателя
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("неожиданный метод подписи %v", token.Header["alg"])
		}
		return ti.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSecureSecret возвращает случайный ключ в base64 для auth.secret
func GenerateSecureSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

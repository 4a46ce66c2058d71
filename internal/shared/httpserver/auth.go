package httpserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"
)

const callerKey = "caller"

var ErrInvalidToken = errors.New("invalid or missing bearer token")

// Claims identify the caller by the hex address in the subject.
type Claims struct {
	jwt.StandardClaims
}

// IssueToken signs an HS256 token for address, valid for ttl.
func IssueToken(secret []byte, address common.Address, ttl time.Duration) (string, error) {
	claims := Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   address.Hex(),
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseToken validates str and returns the caller address it names.
func ParseToken(secret []byte, str string) (common.Address, error) {
	token, err := jwt.ParseWithClaims(str, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return common.Address{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return common.Address{}, ErrInvalidToken
	}
	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, fmt.Errorf("%w: subject %q is not an address", ErrInvalidToken, claims.Subject)
	}
	return common.HexToAddress(claims.Subject), nil
}

// RequireAuth rejects requests without a valid bearer token and stores the caller address.
func RequireAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidToken.Error())
		}
		caller, err := ParseToken(secret, raw)
		if err != nil {
			log.Warn("Rejected bearer token", zap.String("path", c.Path()), zap.Error(err))
			return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidToken.Error())
		}
		c.Locals(callerKey, caller)
		return c.Next()
	}
}

// Caller returns the address RequireAuth stored for this request.
func Caller(c *fiber.Ctx) (common.Address, bool) {
	addr, ok := c.Locals(callerKey).(common.Address)
	return addr, ok
}

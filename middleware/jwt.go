package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"learnhub/models"
	"learnhub/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const identityKey = "identity"

var errInvalidToken = errors.New("invalid token")

// GenerateJWT issues an HS256 token for the identity. Services in this repo
// only verify tokens; issuing is for tooling and tests.
func GenerateJWT(secret string, id models.Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": id.UserID.String(),
		"role":    id.Role,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyToken checks the signature and expiry and resolves the caller.
func VerifyToken(secret, tokenString string) (models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return models.Identity{}, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, errInvalidToken
	}
	rawID, _ := claims["user_id"].(string)
	if rawID == "" {
		rawID, _ = claims["sub"].(string)
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return models.Identity{}, errInvalidToken
	}
	role, _ := claims["role"].(string)
	if !models.ValidRole(role) {
		return models.Identity{}, errInvalidToken
	}
	return models.Identity{UserID: userID, Role: role}, nil
}

// JWTMiddleware requires a valid bearer token and stores the caller's
// identity in the request locals.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Missing or invalid Authorization header", nil)
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid Authorization header format", nil)
		}

		identity, err := VerifyToken(secret, authHeader[len("Bearer "):])
		if err != nil {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Invalid or expired token", nil)
		}

		c.Locals(identityKey, identity)
		return c.Next()
	}
}

// CurrentIdentity returns the identity stored by JWTMiddleware.
func CurrentIdentity(c *fiber.Ctx) (models.Identity, bool) {
	id, ok := c.Locals(identityKey).(models.Identity)
	return id, ok
}

func JsonResponse(c *fiber.Ctx, statusCode int, status bool, message string, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

func ValidationErrorResponse(c *fiber.Ctx, errors map[string]string) error {
	return JsonResponse(c, fiber.StatusUnprocessableEntity, false, "Validation failed!", errors)
}

// ErrorResponse writes err with the status its category maps to. Unmapped
// errors are reported without detail.
func ErrorResponse(c *fiber.Ctx, err error) error {
	status := utils.StatusFor(err)
	switch status {
	case fiber.StatusInternalServerError:
		return JsonResponse(c, status, false, "Something went wrong!", nil)
	case fiber.StatusServiceUnavailable:
		return JsonResponse(c, status, false, "Temporarily unavailable, please retry!", nil)
	}
	return JsonResponse(c, status, false, errorMessage(err), nil)
}

// errorMessage picks the most specific line of a joined error.
func errorMessage(err error) string {
	lines := strings.Split(err.Error(), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return err.Error()
}

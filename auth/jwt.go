package auth

import (
	"baseroom/types"
	"fmt"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

func generateJWT(user *types.User, jwtSecret string, expirationTime time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userID":       user.ID,
		"userUsername": user.Username,
		"exp":          time.Now().Add(expirationTime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// parseJWT validates the signature and expiry and returns the user id claim.
func parseJWT(tokenString, jwtSecret string) (int, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid claims")
	}
	userID, ok := claims["userID"].(float64)
	if !ok || userID <= 0 {
		return 0, fmt.Errorf("invalid user id in token claims")
	}
	return int(userID), nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BridgeClaims mirrors the claims the withdraw API expects.
type BridgeClaims struct {
	Principal string `json:"principal"`
	jwt.RegisteredClaims
}

func main() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Println("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	principal := os.Getenv("BRIDGE_PRINCIPAL")
	if principal == "" {
		principal = "test-principal"
	}

	issuer := os.Getenv("JWT_ISSUER")
	if issuer == "" {
		issuer = "bridge-backend"
	}

	now := time.Now()
	claims := BridgeClaims{
		Principal: principal,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   principal,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated for Testing")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Println("Claims:")
	fmt.Printf("  Principal: %s\n", principal)
	fmt.Printf("  Issuer:    %s\n", issuer)
	fmt.Printf("  Expires:   %s\n", claims.ExpiresAt.Time)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println()
	fmt.Printf("curl -H \"Authorization: Bearer %s\" ...\n", tokenString)
}

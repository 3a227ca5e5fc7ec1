package model

import "github.com/golang-jwt/jwt/v5"

// UserClaims are issued by the external user service
type UserClaims struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

package models

import "github.com/golang-jwt/jwt/v5"

// ClientRole is the permission level granted to an API client.
type ClientRole string

const (
	// RoleIngest may write catalog data.
	RoleIngest ClientRole = "ingest"
	// RoleAdmin may perform every operation.
	RoleAdmin ClientRole = "admin"
)

// ClientClaims are the JWT claims issued to API clients.
type ClientClaims struct {
	ClientID string     `json:"client_id"`
	Role     ClientRole `json:"role"`
	jwt.RegisteredClaims
}

package auth

import (
	"context"
	"strings"
)

// Claims es lo que el proveedor de identidad confirma de un token.
// UserID es la clave de dueño de cada mascota.
type Claims struct {
	UserID   string
	Email    string
	TenantID string
}

// Subject devuelve el user id normalizado ("" si no hay).
func (c Claims) Subject() string {
	return strings.TrimSpace(c.UserID)
}

// AuthVerifier verifica un bearer token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"pet-vaccine-reminders/internal/ports/auth"
)

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if token == "good" {
		return auth.Claims{UserID: "u-1"}, nil
	}
	return auth.Claims{}, errors.New("bad token")
}

func serve(t *testing.T, v auth.AuthVerifier, headers map[string]string) string {
	t.Helper()
	var got string
	h := AuthContext(v, nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = UserID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, val := range headers {
		req.Header.Set(k, val)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestAuthContext_DevHeader(t *testing.T) {
	assert.Equal(t, "dev-1", serve(t, nil, map[string]string{DebugUserHeader: " dev-1 "}))
	assert.Equal(t, "", serve(t, nil, nil))
}

func TestAuthContext_Verifier(t *testing.T) {
	v := stubVerifier{}
	assert.Equal(t, "u-1", serve(t, v, map[string]string{"Authorization": "Bearer good"}))
	assert.Equal(t, "", serve(t, v, map[string]string{"Authorization": "Bearer nope"}))
	assert.Equal(t, "", serve(t, v, map[string]string{"Authorization": "Basic good"}))
	// con verifier el header de debug no aplica
	assert.Equal(t, "", serve(t, v, map[string]string{DebugUserHeader: "dev-1"}))
}

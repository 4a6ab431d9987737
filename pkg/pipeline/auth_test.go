package pipeline

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/weiche-dev/weiche/pkg/api"
)

var jwtTestSecret = []byte("test-secret")

func signedToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtTestSecret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestJWTAuthStampsUserID(t *testing.T) {
	unit := JWTAuth(JWTAuthConfig{Secret: jwtTestSecret})
	p := New(&echoTerminal{}, WithNamedUnit(unit))

	msg := &api.Message{
		Content: "hi",
		Metadata: map[string]any{
			api.MetaAuthorization: "Bearer " + signedToken(t, jwtlib.MapClaims{
				"sub": "user-42",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}

	if _, err := p.Process(context.Background(), msg, "jwt_auth"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if got := msg.MetaString(api.MetaUserID); got != "user-42" {
		t.Errorf("user_id = %q, want the token subject", got)
	}
}

func TestJWTAuthCustomClaimAndIssuer(t *testing.T) {
	unit := JWTAuth(JWTAuthConfig{Secret: jwtTestSecret, UserClaim: "uid", Issuer: "weiche"})
	p := New(&echoTerminal{}, WithNamedUnit(unit))

	msg := &api.Message{
		Metadata: map[string]any{
			api.MetaAuthorization: "Bearer " + signedToken(t, jwtlib.MapClaims{
				"uid": "abc",
				"iss": "weiche",
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}
	if _, err := p.Process(context.Background(), msg, "jwt_auth"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if msg.MetaString(api.MetaUserID) != "abc" {
		t.Errorf("user_id = %q", msg.MetaString(api.MetaUserID))
	}
}

func TestJWTAuthFailureContinuesWithoutIdentity(t *testing.T) {
	unit := JWTAuth(JWTAuthConfig{Secret: jwtTestSecret})
	terminal := &echoTerminal{}
	p := New(terminal, WithNamedUnit(unit))

	tests := []struct {
		name string
		auth string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired", "Bearer " + signedToken(t, jwtlib.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})},
		{"missing subject", "Bearer " + signedToken(t, jwtlib.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &api.Message{Content: "hi"}
			if tt.auth != "" {
				msg.Metadata = map[string]any{api.MetaAuthorization: tt.auth}
			}

			// The unit fails, the pipeline isolates it, the request
			// still completes anonymously.
			resp, err := p.Process(context.Background(), msg, "jwt_auth")
			if err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if resp == nil {
				t.Fatal("no response despite fault isolation")
			}
			if msg.MetaString(api.MetaUserID) != "" {
				t.Errorf("user_id = %q, want empty on auth failure", msg.MetaString(api.MetaUserID))
			}
		})
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	unit := JWTAuth(JWTAuthConfig{Secret: jwtTestSecret})
	p := New(&echoTerminal{}, WithNamedUnit(unit))

	other := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": "intruder",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	forged, err := other.SignedString([]byte("different-secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	msg := &api.Message{Metadata: map[string]any{api.MetaAuthorization: "Bearer " + forged}}
	if _, err := p.Process(context.Background(), msg, "jwt_auth"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if msg.MetaString(api.MetaUserID) != "" {
		t.Error("forged token produced an identity")
	}
}

package pipeline

import (
	"context"
	"fmt"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/weiche-dev/weiche/pkg/api"
)

// JWTAuthConfig configures the jwt_auth named unit.
type JWTAuthConfig struct {
	// Secret is the HMAC signing secret tokens are verified against.
	Secret []byte

	// UserClaim is the claim mapped to the user_id metadata key.
	// Default: "sub".
	UserClaim string

	// Issuer, when set, is validated against the iss claim.
	Issuer string
}

// JWTAuth returns the "jwt_auth" unit. It verifies the bearer token in
// the message's authorization metadata and stamps the subject claim into
// user_id. Verification failures are unit-originated errors, so the
// pipeline logs them and the chain continues without an identity.
func JWTAuth(cfg JWTAuthConfig) Unit {
	userClaim := cfg.UserClaim
	if userClaim == "" {
		userClaim = "sub"
	}

	return UnitFunc("jwt_auth", func(ctx context.Context, msg *api.Message, next Handler) (*api.Response, error) {
		header := msg.MetaString(api.MetaAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return nil, fmt.Errorf("no bearer token in authorization metadata")
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == "" {
			return nil, fmt.Errorf("empty bearer token")
		}

		opts := []jwtlib.ParserOption{
			jwtlib.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		}
		if cfg.Issuer != "" {
			opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
		}

		token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return cfg.Secret, nil
		}, opts...)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT: %w", err)
		}

		claims, ok := token.Claims.(jwtlib.MapClaims)
		if !ok || !token.Valid {
			return nil, fmt.Errorf("invalid JWT claims")
		}

		subject, _ := claims[userClaim].(string)
		if subject == "" {
			return nil, fmt.Errorf("JWT missing %q claim", userClaim)
		}

		msg.EnsureMetadata()[api.MetaUserID] = subject
		return next.Handle(ctx, msg)
	})
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"storeadmin_server/lib"
	"storeadmin_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/google/uuid"
)

type contextKey string

const ClaimsContextKey contextKey = "claims"

// AdminAuthMiddleware lets through requests carrying a valid admin access token
// and stores its claims in the request context
func (mw *Middleware) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := lib.ExtractClaims(r, mw.cfg.Auth.AccessTokenSecret)
		if err != nil {
			mw.logger.Warn("Failed to extract claims from request", gecho.Field("error", err))
			msg := "Invalid or missing access token"
			if errors.Is(err, lib.ErrExpiredToken) {
				msg = "Access token expired"
			}
			gecho.Unauthorized(w, gecho.WithMessage(msg), gecho.Send())
			return
		}

		if claims.Role != "admin" {
			mw.logger.Warn("Non-admin user attempted to access admin route", gecho.Field("user_id", claims.Sub), gecho.Field("role", claims.Role))
			gecho.Forbidden(w, gecho.WithMessage("Admin access required"), gecho.Send())
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetClaimsFromContext is a helper function to extract the claims from request context
func GetClaimsFromContext(ctx context.Context) (*structs.AuthClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*structs.AuthClaims)
	return claims, ok
}

// ActorFromContext returns the admin's user id for ledger entries
func ActorFromContext(ctx context.Context) *uuid.UUID {
	claims, ok := GetClaimsFromContext(ctx)
	if !ok || claims.Sub == uuid.Nil {
		return nil
	}
	sub := claims.Sub
	return &sub
}

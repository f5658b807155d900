package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/garnizeh/fieldlog/internal/timesheet"
	"github.com/garnizeh/fieldlog/pkg/models"
)

type ctxKey string

const (
	CtxUserID   ctxKey = "user_id"
	CtxEngineer ctxKey = "engineer"
)

// package-level logger used by middleware and helpers; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger installs a logger for the api package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack passes websocket upgrades through to the underlying connection.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic", slog.Any("err", err), slog.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, CodeInternal, "Internal Server Error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// IssueToken signs an HS256 token whose subject is the user id. Roles are
// never put in the token; they are loaded from the store per request.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString([]byte(secret))
}

func JWTAuthMiddlewareWithSecret(secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Missing Authorization header")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}

				return []byte(secret), nil
			})
			if err != nil || !token.Valid || claims.Subject == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), CtxUserID, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for websocket clients that cannot set headers.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			logger.Debug("malformed Authorization header", slog.String("path", r.URL.Path))
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(CtxUserID).(string)
	return id
}

func engineerFrom(ctx context.Context) *models.Engineer {
	e, _ := ctx.Value(CtxEngineer).(*models.Engineer)
	return e
}

// Authorizer gates routes on the caller's engineer profile as stored, not on
// anything claimed by the client.
type Authorizer struct {
	profiles *timesheet.Service
}

func NewAuthorizer(profiles *timesheet.Service) *Authorizer {
	return &Authorizer{profiles: profiles}
}

// Require loads the caller's active profile into the request context and,
// when roles are given, rejects callers holding none of them.
func (a *Authorizer) Require(roles ...models.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := userIDFrom(r.Context())
			if uid == "" {
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "not authenticated")
				return
			}

			e, err := a.profiles.ResolveProfile(r.Context(), uid)
			if err != nil {
				writeServiceError(w, r, err)
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, e.Role) {
				logger.Info("role denied", slog.String("engineer_id", e.ID), slog.String("role", string(e.Role)), slog.String("path", r.URL.Path))
				writeError(w, http.StatusForbidden, CodeForbidden, "insufficient role")
				return
			}

			ctx := context.WithValue(r.Context(), CtxEngineer, e)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package v1handler

import (
	"context"
	"crypto/rsa"
	"fmt"
	"navguard/internal/config"
	"navguard/pkg/domain"
	"navguard/pkg/serrors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// EditorIDKey is the context key under which the authenticated editor is stored.
const EditorIDKey = ctxKey("editorID")

type ctxKey string

// SecHandlerOptions configure bearer token verification.
type SecHandlerOptions struct {
	// PublicKey is the PEM encoded RSA key tokens are verified with.
	PublicKey string
}

// NewSecHandlerOptions constructs SecHandlerOptions from the application config.
func NewSecHandlerOptions(cfg *config.Config) *SecHandlerOptions {
	return &SecHandlerOptions{
		PublicKey: cfg.JWT.PublicKey,
	}
}

// SecHandler authenticates editors with RS256 bearer tokens whose subject is
// the editor ID.
type SecHandler struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

func NewSecHandler(opts *SecHandlerOptions) (*SecHandler, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(opts.PublicKey))
	if err != nil {
		return nil, fmt.Errorf("could not parse RSA public key: %w", err)
	}

	return &SecHandler{
		publicKey: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// HandleBearerAuth verifies token and stores its editor in the returned context.
func (s *SecHandler) HandleBearerAuth(ctx context.Context, token string) (context.Context, error) {
	var claims jwt.RegisteredClaims
	if _, err := s.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.publicKey, nil
	}); err != nil {
		return ctx, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token")
	}

	editorID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, serrors.Wrap(serrors.ErrUnauthorized, err, "invalid token subject")
	}

	return context.WithValue(ctx, EditorIDKey, domain.EditorID(editorID)), nil
}

// Authenticate rejects requests without a valid bearer token.
func (s *SecHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err == nil {
			var ctx context.Context
			ctx, err = s.HandleBearerAuth(r.Context(), token)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(ctx))

				return
			}
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="navguard"`)
		Handler{}.writeError(w, r, err)
	})
}

func bearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", serrors.With(serrors.ErrUnauthorized, "missing bearer token")
	}

	return strings.TrimSpace(token), nil
}

// GetEditorIDFromContext returns the authenticated editor, or the zero ID.
func GetEditorIDFromContext(ctx context.Context) domain.EditorID {
	editorID, _ := ctx.Value(EditorIDKey).(domain.EditorID)

	return editorID
}

package main

import (
	"context"
	"fmt"
	"navguard/internal/config"
	"navguard/pkg/logger"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// JWTCommand constructs the 'jwt' subcommand that mints a signed RS256 token
// for an editor. The subject is the editor ID the v1 API stores listings under.
func JWTCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jwt",
		Short: "Generates an editor JWT for the v1 API",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			subject, _ := cmd.Flags().GetString("editor")
			TTL, _ := cmd.Flags().GetDuration("ttl")

			if subject == "" {
				subject = uuid.NewString()
			} else if _, err := uuid.Parse(subject); err != nil {
				logger.Fatal(ctx, "editor must be a UUID", zap.String("editor", subject), zap.Error(err))
			}

			key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.JWT.PrivateKey))
			if err != nil {
				logger.Fatal(ctx, "could not parse RSA private key", zap.Error(err))
			}

			now := time.Now()
			claims := jwt.RegisteredClaims{
				Subject:   subject,
				ExpiresAt: jwt.NewNumericDate(now.Add(TTL)),
				IssuedAt:  jwt.NewNumericDate(now),
				NotBefore: jwt.NewNumericDate(now),
			}
			signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
			if err != nil {
				logger.Fatal(ctx, "could not sign JWT", zap.Error(err))
			}

			logger.Debug(ctx, "editor token minted", zap.String("editor", subject), zap.Duration("ttl", TTL))
			fmt.Println(signed) //nolint: forbidigo
		},
	}

	cmd.Flags().String("editor", "", "Editor ID (UUID) to use as the token subject; a random one when empty")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token TTL (e.g., 30s, 15m, 1h)")

	return cmd
}

package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benvon/time-import/internal/config"
	"github.com/benvon/time-import/internal/services/oidc"
	"github.com/spf13/cobra"
)

// NewJWKSCmd creates the jwks command, which checks that the configured key set can be fetched
func NewJWKSCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "jwks",
		Short: "Test the JWKS endpoint used to verify access tokens",
		Long:  "Fetch the key set from --url (default: JWKS_URL) and list its key ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				url = cfg.JWKSURL
			}
			if url == "" {
				return fmt.Errorf("--url or JWKS_URL is required")
			}
			return checkJWKS(cmd.Context(), cmd.OutOrStdout(), url)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "JWKS URL to test")
	return cmd
}

func checkJWKS(ctx context.Context, w io.Writer, url string) error {
	fmt.Fprintf(w, "Testing JWKS endpoint: %s\n", url)

	manager := oidc.NewJWKSManager(url, &http.Client{Timeout: 10 * time.Second})
	keys, err := manager.Keys(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	if keys.Len() == 0 {
		return fmt.Errorf("JWKS endpoint returned no keys")
	}

	fmt.Fprintf(w, "✓ JWKS endpoint returned %d key(s)\n", keys.Len())
	for i := 0; i < keys.Len(); i++ {
		key, ok := keys.Key(i)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "  - kid=%s alg=%s\n", key.KeyID(), key.Algorithm())
	}
	return nil
}

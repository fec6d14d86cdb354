package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"calendar-sync/feature/gcal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// authCmd runs the OAuth installed-app flow and stores the token.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Google Calendar",
	Long: `Prints the Google consent URL, reads the authorization code from
stdin and stores the resulting token at google.token_file.

Not needed when google.credentials_file holds a service account key.`,
	RunE: runAuth,
}

func init() {
	RootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	cfg, l, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer l.Sync()

	oauthCfg, err := gcal.OAuthConfig(cfg.Google)
	if err != nil {
		return err
	}

	url := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Fprintf(cmd.OutOrStdout(), "Open the following link in your browser, then paste the authorization code:\n\n%s\n\ncode: ", url)

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := oauthCfg.Exchange(context.Background(), strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := gcal.SaveToken(cfg.Google.TokenFile, token); err != nil {
		return err
	}

	l.Info("Token stored", zap.String("path", cfg.Google.TokenFile))
	return nil
}

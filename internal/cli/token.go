package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/roach88/beehere/internal/store"
)

// TokenInfo describes the stored token. Claims are read without verifying
// the signature; only the service can do that.
type TokenInfo struct {
	Token     string     `json:"token"`
	Subject   string     `json:"subject,omitempty"`
	Username  string     `json:"username,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired,omitempty"`
}

// NewTokenCommand creates the token command group.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored session token",
		Long: `Manage the session token sent with every request as "Authorization: JWT <token>".

Example:
  beehere token set eyJhbGciOi...
  echo "$TOKEN" | beehere token set -
  beehere token show
  beehere token clear`,
	}

	cmd.AddCommand(newTokenSetCommand(rootOpts))
	cmd.AddCommand(newTokenShowCommand(rootOpts))
	cmd.AddCommand(newTokenClearCommand(rootOpts))

	return cmd
}

func newTokenSetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <token|->",
		Short:         "Store a session token (use - to read it from stdin)",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			token := args[0]
			if token == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return s.formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to read token from stdin", err)
				}
				token = string(data)
			}
			if err := s.store.SetToken(cmd.Context(), token); err != nil {
				return s.formatter.Fail(ExitCommandError, ErrCodeStore, "failed to store token", err)
			}

			info := inspectToken(strings.TrimSpace(token), time.Now())
			if info.Expired {
				s.logger.Warn("stored token has already expired", "expires_at", info.ExpiresAt)
			}
			if s.formatter.JSON() {
				return s.formatter.Success(info)
			}
			fmt.Fprintln(s.formatter.Writer, "Token stored.")
			return nil
		},
	}
}

func newTokenShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the stored token and its claims",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			token, err := s.store.Token(cmd.Context())
			if errors.Is(err, store.ErrNoToken) {
				return s.formatter.Fail(ExitCommandError, ErrCodeNoToken, "no token stored", nil)
			}
			if err != nil {
				return s.formatter.Fail(ExitCommandError, ErrCodeStore, "failed to read token", err)
			}

			info := inspectToken(token, time.Now())
			if s.formatter.JSON() {
				return s.formatter.Success(info)
			}
			writeTokenInfo(s.formatter.Writer, info)
			return nil
		},
	}
}

func newTokenClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Remove the stored token",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.store.ClearToken(cmd.Context()); err != nil {
				return s.formatter.Fail(ExitCommandError, ErrCodeStore, "failed to clear token", err)
			}
			if s.formatter.JSON() {
				return s.formatter.Success(map[string]bool{"cleared": true})
			}
			fmt.Fprintln(s.formatter.Writer, "Token cleared.")
			return nil
		},
	}
}

// inspectToken masks token and decodes whatever JWT claims it carries.
// Tokens that are not JWTs are reported with the mask only.
func inspectToken(token string, now time.Time) TokenInfo {
	info := TokenInfo{Token: maskToken(token)}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return info
	}
	info.Subject, _ = claims.GetSubject()
	info.Issuer, _ = claims.GetIssuer()
	if u, ok := claims["username"].(string); ok {
		info.Username = u
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.UTC()
		info.ExpiresAt = &t
		info.Expired = !now.Before(t)
	}
	return info
}

// maskToken keeps enough of the token to tell two apart.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "..." + token[len(token)-4:]
}

func writeTokenInfo(w io.Writer, info TokenInfo) {
	fmt.Fprintf(w, "Token:    %s\n", info.Token)
	if info.Username != "" {
		fmt.Fprintf(w, "Username: %s\n", info.Username)
	}
	if info.Subject != "" {
		fmt.Fprintf(w, "Subject:  %s\n", info.Subject)
	}
	if info.Issuer != "" {
		fmt.Fprintf(w, "Issuer:   %s\n", info.Issuer)
	}
	if info.ExpiresAt != nil {
		state := ""
		if info.Expired {
			state = " (expired)"
		}
		fmt.Fprintf(w, "Expires:  %s%s\n", info.ExpiresAt.Format(time.RFC3339), state)
	}
}

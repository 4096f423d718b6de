package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/apptscheduler/internal/google"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar",
		Long: `Obtain and store the Google OAuth token used by serve and slots.

The server also offers the flow in a browser at / when running in oauth mode.
These commands do the same from a terminal.`,
	}

	cmd.AddCommand(newAuthURLCmd(), newAuthLoginCmd())
	return cmd
}

func addAuthFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("google-client-id", "", "OAuth client id (GOOGLE_CLIENT_ID)")
	f.String("google-client-secret", "", "OAuth client secret (GOOGLE_CLIENT_SECRET)")
	f.String("google-redirect-url", google.DefaultRedirectURL, "OAuth redirect URL registered with Google (GOOGLE_REDIRECT_URL)")
	f.String("token-file", "", "Where the OAuth token is stored (default: XDG data dir)")
}

// authConfig resolves only the OAuth keys; calendar settings are not needed.
func authConfig(cmd *cobra.Command) (Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return Config{}, err
	}
	return Config{
		GoogleClientID:     v.GetString("google-client-id"),
		GoogleClientSecret: v.GetString("google-client-secret"),
		GoogleRedirectURL:  v.GetString("google-redirect-url"),
		TokenFile:          v.GetString("token-file"),
	}, nil
}

func newAuthURLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Print the Google consent URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := authConfig(cmd)
			if err != nil {
				return err
			}
			conf, err := oauthConfig(cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), google.AuthURL(conf, uuid.NewString()))
			return err
		},
	}
	addAuthFlags(cmd)
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [code]",
		Short: "Exchange an authorization code and store the token",
		Long: `Exchange an authorization code for a token and store it in --token-file.

Without an argument the consent URL is printed and the code (or the full
redirect URL the browser landed on) is read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := authConfig(cmd)
			if err != nil {
				return err
			}
			conf, err := oauthConfig(cfg)
			if err != nil {
				return err
			}

			var code string
			if len(args) == 1 {
				code = args[0]
			} else {
				out := cmd.ErrOrStderr()
				fmt.Fprintf(out, "Visit this URL to authorize calendar access:\n\n%s\n\n", google.AuthURL(conf, uuid.NewString()))
				fmt.Fprint(out, "Paste the code or the redirect URL: ")
				code, err = readCode(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			code, err = extractCode(code)
			if err != nil {
				return err
			}

			store := tokenStore(cfg)
			if _, err := google.ExchangeAndSave(cmd.Context(), conf, store, code); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", store.Path())
			return nil
		},
	}
	addAuthFlags(cmd)
	return cmd
}

func readCode(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	return line, nil
}

// extractCode accepts a bare code or the redirect URL carrying ?code=.
func extractCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("authorization code is empty")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	if msg := u.Query().Get("error"); msg != "" {
		return "", fmt.Errorf("consent was not granted: %s", msg)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", errors.New("redirect URL has no code parameter")
	}
	return code, nil
}

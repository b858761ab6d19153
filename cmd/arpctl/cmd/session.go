package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/authpipe"
	"github.com/spf13/cobra"
)

type sessionOutput struct {
	Profile      string    `json:"profile" yaml:"profile"`
	LoggedIn     bool      `json:"logged_in" yaml:"logged_in"`
	UserID       string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Username     string    `json:"username,omitempty" yaml:"username,omitempty"`
	AccessToken  string    `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or change the stored session",
	}
	cmd.AddCommand(newSessionShowCmd(a), newSessionSetCmd(a), newSessionClearCmd(a))
	return cmd
}

func newSessionShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored session with tokens masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			s, err := store.Get(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), sessionOutput{
				Profile:      a.v.GetString("profile"),
				LoggedIn:     s.LoggedIn,
				UserID:       s.UserID,
				Username:     s.Username,
				AccessToken:  maskToken(s.AccessToken),
				RefreshToken: maskToken(s.RefreshToken),
				UpdatedAt:    s.UpdatedAt,
			})
		},
	}
}

func newSessionSetCmd(a *app) *cobra.Command {
	var s authpipe.Session

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the tokens returned by sign-in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.AccessToken == "" {
				return errors.New("--access-token is required")
			}
			client, _, closeFn, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := client.SignIn(cmd.Context(), s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session stored for profile %s\n", a.v.GetString("profile"))
			return nil
		},
	}

	cmd.Flags().StringVar(&s.AccessToken, "access-token", "", "access token")
	cmd.Flags().StringVar(&s.RefreshToken, "refresh-token", "", "refresh token")
	cmd.Flags().StringVar(&s.UserID, "user-id", "", "user id sent with refresh calls")
	cmd.Flags().StringVar(&s.Username, "username", "", "display name")
	return cmd
}

func newSessionClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session cleared for profile %s\n", a.v.GetString("profile"))
			return nil
		},
	}
}

func maskToken(tok string) string {
	switch {
	case tok == "":
		return ""
	case len(tok) <= 8:
		return "****"
	default:
		return tok[:4] + "..." + tok[len(tok)-4:]
	}
}

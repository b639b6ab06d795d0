package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/alertkeeper/internal/client/client"
	"github.com/dmitrijs2005/alertkeeper/internal/common"
	"github.com/spf13/cobra"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// credentials returns the username (flag or prompt) and the password read
// without echo. The caller must wipe the password.
func (a *App) credentials(username string) (string, []byte, error) {
	if username == "" {
		var err error
		username, err = getSimpleText(a.reader, "Enter username", a.out)
		if err != nil {
			return "", nil, err
		}
	}
	if username == "" {
		return "", nil, errors.New("username is required")
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	if len(password) == 0 {
		return "", nil, errors.New("password is required")
	}
	return username, password, nil
}

func (a *App) newRegisterCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, password, err := a.credentials(username)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			if err := a.client.Register(cmd.Context(), name, string(password)); err != nil {
				if errors.Is(err, client.ErrConflict) {
					return fmt.Errorf("user %q already exists", name)
				}
				return err
			}

			fmt.Fprintf(a.out, "User %s created\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (prompted when empty)")
	return cmd
}

func (a *App) newLoginCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, password, err := a.credentials(username)
			if err != nil {
				return err
			}
			defer common.WipeByteArray(password)

			token, err := a.client.Login(cmd.Context(), name, string(password))
			if err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					return errors.New("invalid username or password")
				}
				return err
			}

			if err := saveToken(a.config.TokenFile, token); err != nil {
				return fmt.Errorf("saving token: %w", err)
			}

			fmt.Fprintf(a.out, "Logged in as %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name (prompted when empty)")
	return cmd
}

func (a *App) newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := removeToken(a.config.TokenFile); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

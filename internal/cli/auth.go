package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/apierr"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.nav.enterLogin()
			if email == "" {
				v, err := prompt(cmd, "Email: ")
				if err != nil {
					return err
				}
				email = v
			}
			if password == "" {
				v, err := readPassword(cmd, "Password: ")
				if err != nil {
					return err
				}
				password = v
			}
			id, err := a.client.Store.Login(cmd.Context(), email, password)
			switch {
			case errors.Is(err, apierr.ErrInvalidCredentials):
				return fmt.Errorf("login failed: wrong email or password")
			case errors.Is(err, apierr.ErrAccountNotApproved):
				return fmt.Errorf("login refused: %s", detailOf(err))
			case err != nil:
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", id.Email, id.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session on the server and forget it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client.Store.RefreshCredential() == "" && a.client.Store.AccessCredential() == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			a.client.Store.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newRegisterCmd(a *app) *cobra.Command {
	var p models.RegistrationProfile
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Request access; the account stays pending until an admin approves it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.nav.enterLogin()
			if p.Password == "" {
				v, err := readPassword(cmd, "Password: ")
				if err != nil {
					return err
				}
				p.Password = v
			}
			id, err := a.client.Store.Register(cmd.Context(), p)
			switch {
			case errors.Is(err, apierr.ErrDuplicateEmail):
				return fmt.Errorf("registration failed: %s is already registered", p.Email)
			case errors.Is(err, apierr.ErrValidation):
				return fmt.Errorf("registration rejected: %s", detailOf(err))
			case err != nil:
				return fmt.Errorf("registration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Access requested for %s (status: %s)\n", id.Email, id.Status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&p.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&p.Password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&p.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&p.Company, "company", "", "company")
	cmd.Flags().StringVar(&p.Phone, "phone", "", "phone")
	cmd.Flags().StringVar(&p.Message, "message", "", "note for the approving admin")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// detailOf returns the backend's message when err carries one.
func detailOf(err error) string {
	var se *apierr.StatusError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return err.Error()
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo on a terminal and falls back to a plain line otherwise.
func readPassword(cmd *cobra.Command, label string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), label)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return prompt(cmd, label)
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lgcert/indigene-certificate/internal/portal/services"
	"github.com/lgcert/indigene-certificate/internal/validation"
)

func (e *environment) auth() *services.AuthService {
	return services.NewAuthService(e.backend, e.session, e.log)
}

func newLoginCommand(env *environment) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("LGCERT_PASSWORD")
			}
			user, err := env.auth().Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.FullName, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (or LGCERT_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.auth().Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newRegisterCommand(env *environment) *cobra.Command {
	var form validation.RegistrationForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an applicant account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if form.ConfirmPassword == "" {
				form.ConfirmPassword = form.Password
			}
			form.Email = strings.TrimSpace(form.Email)
			user, err := env.auth().Register(cmd.Context(), form)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run `lgctl login -e %s` to sign in.\n", user.FullName, user.Email)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.FullName, "name", "", "Full name")
	f.StringVar(&form.Email, "email", "", "Email address")
	f.StringVar(&form.Phone, "phone", "", "Phone number, e.g. 08031234567")
	f.StringVar(&form.Password, "password", "", "Password, at least 8 characters")
	f.StringVar(&form.ConfirmPassword, "confirm-password", "", "Password again (defaults to --password)")
	return cmd
}

func newWhoamiCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := env.auth().Me(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\nRole: %s\n", user.FullName, user.Email, user.Role)
			if len(user.Permissions) > 0 {
				perms := make([]string, len(user.Permissions))
				for i, p := range user.Permissions {
					perms[i] = string(p)
				}
				fmt.Fprintf(out, "Permissions: %s\n", strings.Join(perms, ", "))
			}
			return nil
		},
	}
}

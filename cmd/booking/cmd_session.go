package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/branch-booking/internal/views"
)

func newLoginCmd(c *cli) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			view := views.NewLogin(c.deps(), "")
			if view.Init() {
				fmt.Fprintf(c.out, "Already signed in as %s\n", c.username())
				return nil
			}

			var err error
			if username == "" {
				if username, err = c.prompt("Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = c.prompt("Password: "); err != nil {
					return err
				}
			}
			view.Form().Set(views.FieldUsername, username)
			view.Form().Set(views.FieldPassword, password)

			if err := view.Submit(cmd.Context()); err != nil {
				if errors.Is(err, views.ErrInvalidForm) {
					return formError(view.Form(), view.Form().ErrorText)
				}
				return errors.New(view.Error())
			}
			fmt.Fprintf(c.out, "Signed in as %s\n", c.username())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when empty)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Session.IsAuthenticated() {
				fmt.Fprintln(c.out, "Not signed in")
				return nil
			}
			if !c.app.Session.Logout(cmd.Context(), !c.yes) {
				fmt.Fprintln(c.out, "Logout cancelled")
				return nil
			}
			fmt.Fprintln(c.out, "Signed out")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&c.yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is signed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Session.IsAuthenticated() {
				fmt.Fprintln(c.out, "Not signed in")
				return nil
			}
			p := c.app.Session.Profile()
			if p != nil {
				fmt.Fprintf(c.out, "Signed in as %s <%s>\n", p.Username, p.Email)
				if len(p.Roles) > 0 {
					fmt.Fprintf(c.out, "Roles: %s\n", strings.Join(p.Roles, ", "))
				}
			} else {
				fmt.Fprintln(c.out, "Signed in")
			}

			claims, err := c.app.Session.Claims()
			if err != nil {
				c.app.Logger.Debug("token is not a readable JWT", "error", err)
				return nil
			}
			if !claims.ExpiresAt.IsZero() {
				note := ""
				if claims.Expired(c.app.Clock.Now()) {
					note = " (expired)"
				}
				fmt.Fprintf(c.out, "Token expires: %s%s\n", claims.ExpiresAt.Local().Format("2006-01-02 15:04 MST"), note)
			}
			return nil
		},
	}
}

func (c *cli) username() string {
	if p := c.app.Session.Profile(); p != nil && p.Username != "" {
		return p.Username
	}
	return "unknown user"
}

// formError lists every invalid field of f.
func formError(f *views.Form, text func(string) string) error {
	var parts []string
	for _, name := range f.Fields() {
		if f.Invalid(name) {
			parts = append(parts, fmt.Sprintf("%s: %s", name, text(name)))
		}
	}
	if len(parts) == 0 {
		return views.ErrInvalidForm
	}
	return fmt.Errorf("%w\n  %s", views.ErrInvalidForm, strings.Join(parts, "\n  "))
}

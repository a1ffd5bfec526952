package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aura-board/internal/client"

	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in; run `aura login` first")

const roomHint = "No room selected. Join one with `aura room join CODE` or create one with `aura room create NAME`."

func (a *cli) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.timeout)
}

func (a *cli) requireToken() error {
	if a.api.Token() == "" {
		return errNotSignedIn
	}
	return nil
}

func newSignUpCmd(a *cli) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			user, err := client.NewAuthClient(a.api).SignUp(ctx, email, password, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run `aura login` to sign in.\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 6 characters")
	cmd.Flags().StringVar(&name, "name", "", "display name (default: the part of the email before @)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(a *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			user, err := client.NewAuthClient(a.api).SignIn(ctx, email, password)
			if err != nil {
				if client.IsUnauthorized(err) {
					return errors.New("wrong email or password")
				}
				return err
			}
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s.\n", user.DisplayName)
			if a.session.CurrentRoomID == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), roomHint)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session and the current room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client.NewAuthClient(a.api).SignOut()
			a.session.CurrentRoomID = 0
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoAmICmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			user, err := client.NewAuthClient(a.api).CurrentUser(ctx)
			if err != nil {
				return err
			}
			if user == nil {
				return errNotSignedIn
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", user.DisplayName, user.Email)
			return nil
		},
	}
}

func newRoomCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Create, join or leave a room",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a room and make it current",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			room, err := client.NewRoomClient(a.api).Create(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.session.CurrentRoomID = room.ID
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created room %q. Invite code: %s\n", room.Name, room.InviteCode)
			return nil
		},
	}

	join := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a room by invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			room, err := client.NewRoomClient(a.api).FindByInviteCode(ctx, args[0])
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Status == 404 {
					return fmt.Errorf("no room with invite code %s", strings.ToUpper(args[0]))
				}
				return err
			}
			a.session.CurrentRoomID = room.ID
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Joined room %q.\n", room.Name)
			return nil
		},
	}

	leave := &cobra.Command{
		Use:   "leave",
		Short: "Leave the current room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.CurrentRoomID = 0
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), roomHint)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the current room and its invite code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(); err != nil {
				return err
			}
			if a.session.CurrentRoomID == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), roomHint)
				return nil
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			room, err := client.NewRoomClient(a.api).Get(ctx, a.session.CurrentRoomID)
			if err != nil {
				return a.dropRoom(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (invite code %s)\n", room.Name, room.InviteCode)
			return nil
		},
	}

	cmd.AddCommand(create, join, leave, show)
	return cmd
}

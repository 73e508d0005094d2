package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bizhub/socialauth/pkg/auth"
	"github.com/bizhub/socialauth/pkg/config"
	"github.com/bizhub/socialauth/pkg/pg"
	"github.com/bizhub/socialauth/pkg/userstore"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var email, password string
	setPassword := &cobra.Command{
		Use:   "set-password",
		Short: "Set the password of a user so it can sign in without a social provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			ctx := cmd.Context()

			var pgCfg pg.Config
			if err := config.Load(&pgCfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, pgCfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			db := pg.OpenDB(pool)
			defer db.Close()
			return setUserPassword(cmd, userstore.NewPostgres(db), email, password)
		},
	}
	setPassword.Flags().StringVar(&email, "email", "", "user email")
	setPassword.Flags().StringVar(&password, "password", "", fmt.Sprintf("new password, at least %d characters", auth.MinPasswordLength))

	cmd.AddCommand(setPassword)
	return cmd
}

func setUserPassword(cmd *cobra.Command, users auth.UserDirectory, email, password string) error {
	ctx := cmd.Context()
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find %s: %w", email, err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := users.Update(ctx, u.ID, auth.UserFields{PasswordHash: &hash}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.Email)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicwatch/civicwatch/internal/app"
	"github.com/civicwatch/civicwatch/internal/config"
	"github.com/civicwatch/civicwatch/internal/domain/user"
)

var (
	grantRole  string
	grantEmail string
	grantDesc  string
)

var grantCmd = &cobra.Command{
	Use:   "grant <user-id>",
	Short: "Assign a role to a user and issue an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		a, err := app.Open(cfg, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := grant(cmd, a.Users, args[0])
		if err != nil {
			return err
		}
		cmd.Printf("user %s granted %s\n", args[0], grantRole)
		cmd.Println(token)
		return nil
	},
}

func init() {
	grantCmd.Flags().StringVar(&grantRole, "role", string(user.RoleClient), "role to assign (admin or client)")
	grantCmd.Flags().StringVar(&grantEmail, "email", "", "email recorded for a new user")
	grantCmd.Flags().StringVar(&grantDesc, "description", "cli", "label stored with the API key")
}

func grant(cmd *cobra.Command, users *user.Service, id string) (string, error) {
	role := user.Role(grantRole)
	if err := user.ValidateRole(role); err != nil {
		return "", fmt.Errorf("role %q: %w", grantRole, err)
	}
	ctx := cmd.Context()
	if _, err := users.EnsureUser(ctx, user.EnsureRequest{ID: id, Email: grantEmail, Role: role, Method: "cli"}); err != nil {
		return "", err
	}
	if err := users.SetRole(ctx, id, role); err != nil {
		return "", err
	}
	return users.IssueAPIKey(ctx, id, grantDesc)
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notely/internal/models"
)

var promoteEmail string

// promoteCmd bootstraps admins; over HTTP only an existing admin can promote.
var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Grant the admin role to a registered user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.users.GetByEmail(cmd.Context(), promoteEmail)
		if err != nil {
			return fmt.Errorf("%s: %w", promoteEmail, err)
		}
		operator := models.Actor{ID: "cli", Role: models.RoleAdmin}
		if _, err := a.users.Promote(cmd.Context(), operator, user.ID); err != nil {
			return err
		}

		fmt.Printf("%s is now an admin\n", user.Email)
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "Email of the user to promote")
	_ = promoteCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(promoteCmd)
}

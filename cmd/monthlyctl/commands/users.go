package commands

import (
	"errors"

	"monthlydata/internal/auth"
	"monthlydata/internal/printer"
	"monthlydata/internal/store"
	"monthlydata/models"

	"github.com/spf13/cobra"
)

var (
	userEmail string
	userAdmin bool

	resetUsername string
	resetPassword string
)

var createUserCmd = &cobra.Command{
	Use:   "create-user <username> <password>",
	Short: "Create a user account",
	Long: `Create a user account. New accounts get the "user" role, which can read
records; pass --admin to create an administrator that can also write them.`,
	Args: cobra.ExactArgs(2),
	RunE: runCreateUser,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Replace a user's password",
	RunE:  runResetPassword,
}

func init() {
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "Email address shown on records the user creates")
	createUserCmd.Flags().BoolVar(&userAdmin, "admin", false, "Grant the administrator role")
	rootCmd.AddCommand(createUserCmd)

	resetPasswordCmd.Flags().StringVar(&resetUsername, "username", "", "Username to reset (required)")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "password", "", "New plaintext password, min 6 characters (required)")
	_ = resetPasswordCmd.MarkFlagRequired("username")
	_ = resetPasswordCmd.MarkFlagRequired("password")
	rootCmd.AddCommand(resetPasswordCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Store.Close()

	role := models.RoleUser
	if userAdmin {
		role = models.RoleAdministrator
	}
	u, err := a.Auth.CreateUser(ctx, args[0], userEmail, args[1], role)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		printer.Warning("user %s already exists\n", args[0])
		return nil
	case errors.Is(err, auth.ErrPasswordTooShort):
		return printer.Error("Cannot create user", err.Error(), []string{"Choose a password of at least 6 characters."})
	case err != nil:
		return printer.Error("Cannot create user", err.Error(), nil)
	}
	printer.Success("created user %s id=%d role=%s\n", u.Username, u.ID, role)
	return nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Store.Close()

	if err := a.Auth.ResetPassword(ctx, resetUsername, resetPassword); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return printer.Error("User not found", "No user named "+resetUsername+".", []string{"Create it with: monthlyctl create-user <username> <password>"})
		}
		return printer.Error("Cannot reset password", err.Error(), nil)
	}
	printer.Success("password updated for %s\n", resetUsername)
	return nil
}

package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wardrounds/rounds-cli/internal/auth"
	"github.com/wardrounds/rounds-cli/internal/model"
)

var (
	userPassword string
	userRole     string
	userDisplay  string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage application accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			return eris.New("--password is required")
		}
		role := model.Role(userRole)
		switch role {
		case model.RoleResident, model.RoleAttending, model.RoleAdmin:
		default:
			return eris.Errorf("unknown role %q", userRole)
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		hash, err := auth.HashPassword(userPassword)
		if err != nil {
			return err
		}

		u := &model.User{
			Username:     args[0],
			DisplayName:  userDisplay,
			Role:         role,
			PasswordHash: hash,
		}
		if err := st.CreateUser(cmd.Context(), u); err != nil {
			return err
		}
		zap.L().Info("user created", zap.String("username", u.Username), zap.String("role", string(u.Role)))
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "account password")
	userCreateCmd.Flags().StringVar(&userRole, "role", "resident", "role: resident, attending, admin")
	userCreateCmd.Flags().StringVar(&userDisplay, "display-name", "", "display name")
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trezcool/quickreceipt/core/user"
	"github.com/trezcool/quickreceipt/storage/database"
)

func (cli *commandLine) newAddUserCmd() *cobra.Command {
	var (
		uname      string
		superadmin bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user. The password is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword(cmd, "Enter password:")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), uname, pwd, superadmin)
			if err != nil {
				return err
			}
			cmd.Printf("user %q created (%s)\n", usr.Username, usr.Role)

			if usr.Role == user.RoleSuperadmin {
				adopted, err := database.AdoptLegacyRows(cmd.Context(), cli.db)
				if err != nil {
					return err
				}
				if adopted > 0 {
					cmd.Printf("%d legacy rows adopted\n", adopted)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().BoolVar(&superadmin, "superadmin", false, "Grant the superadmin role")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// addUser creates an active user, enforcing the same rules as the API.
func (cli *commandLine) addUser(ctx context.Context, uname, pwd string, superadmin bool) (user.User, error) {
	nu := user.NewUser{
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            user.RoleUser,
	}
	if superadmin {
		nu.Role = user.RoleSuperadmin
	}
	if err := nu.Validate(cli.validate, cli.usrSvc); err != nil {
		return user.User{}, cli.formatErr(err)
	}
	return cli.usrSvc.Create(ctx, nu)
}

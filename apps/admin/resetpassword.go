package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/trezcool/quickreceipt/core/user"
)

func (cli *commandLine) newResetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The new password is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword(cmd, "Enter password:")
			if err != nil {
				return err
			}
			if err = cli.resetPassword(cmd.Context(), uname, pwd); err != nil {
				return err
			}
			cmd.Println("password updated")
			return nil
		},
	}
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}

	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err = uu.Validate(usr, cli.validate, cli.usrSvc); err != nil {
		return cli.formatErr(err)
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr, pwd)
	return err
}

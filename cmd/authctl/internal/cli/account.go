package cli

import (
	"github.com/spf13/cobra"

	authcommand "github.com/goliatone/go-auth-session/command"
	"github.com/goliatone/go-auth-session/core"
	authquery "github.com/goliatone/go-auth-session/query"
)

func (a *app) newPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Forgot, reset or change a password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(a.newForgotPasswordCommand(), a.newResetPasswordCommand(), a.newChangePasswordCommand())
	return cmd
}

func (a *app) newForgotPasswordCommand() *cobra.Command {
	var req core.ForgotPasswordRequest
	cmd := &cobra.Command{
		Use:   "forgot",
		Short: "Send a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().ForgotPassword.Execute(cmd.Context(), authcommand.ForgotPasswordMessage{Request: req}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.password.reset_sent"))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	return cmd
}

func (a *app) newResetPasswordCommand() *cobra.Command {
	var req core.ResetPasswordRequest
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().ResetPassword.Execute(cmd.Context(), authcommand.ResetPasswordMessage{Request: req}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.password.reset"))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Token, "token", "", "reset token from the email")
	cmd.Flags().StringVar(&req.NewPassword, "password", "", "new password")
	return cmd
}

func (a *app) newChangePasswordCommand() *cobra.Command {
	var req core.ChangePasswordRequest
	cmd := &cobra.Command{
		Use:   "change",
		Short: "Change the signed-in user's password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().ChangePassword.Execute(cmd.Context(), authcommand.ChangePasswordMessage{Request: req}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.password.changed"))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.CurrentPassword, "current", "", "current password")
	cmd.Flags().StringVar(&req.NewPassword, "new", "", "new password")
	return cmd
}

func (a *app) newCheckEmailCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-email <email>",
		Short: "Check whether an email can be registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			result, err := a.facade.Queries().CheckEmail.Query(cmd.Context(), authquery.CheckEmailMessage{Email: email})
			if err != nil {
				return a.fail(err)
			}
			if a.flags.jsonOut {
				return a.printer.JSON(result)
			}
			if result.Available {
				a.printer.Success("%s", a.message("auth.email.available", email))
			} else {
				a.printer.Warning("%s", a.message("auth.email.taken", email))
			}
			return nil
		},
	}
}

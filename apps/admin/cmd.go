package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errEmptyPassword = errors.New("password cannot be empty")
)

type commandLine struct {
	db         *sqlx.DB
	usrSvc     *user.Service
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
	out        io.Writer
}

func (cli *commandLine) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "QuickReceipt administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		cli.newAddUserCmd(),
		cli.newResetPasswordCmd(),
		cli.newMigrateCmd(),
	)
	return root
}

// run executes the command line; args include the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.newRootCmd()
	if cli.out != nil {
		root.SetOut(cli.out)
		root.SetErr(cli.out)
	}
	root.SetArgs(args[1:])
	return root.Execute()
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cmd.Println()
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

// formatErr renders validation errors as one `field: message` line per field.
func (cli *commandLine) formatErr(err error) error {
	fields := make(map[string]string)
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		for _, vErr := range origErr {
			fields[vErr.Field()] = vErr.Translate(cli.translator)
		}
	case *core.ValidationError:
		for _, fErr := range origErr.Fields {
			fields[fErr.Field] = fErr.Error
		}
	}
	if len(fields) == 0 {
		return err
	}

	lines := make([]string, 0, len(fields))
	for fld, msg := range fields {
		lines = append(lines, fld+": "+msg)
	}
	sort.Strings(lines)
	return errors.New(strings.Join(lines, "\n"))
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		os.Exit(1)
	}
}

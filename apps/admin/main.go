package main

import (
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
	"github.com/trezcool/quickreceipt/core/user"
	logsvc "github.com/trezcool/quickreceipt/services/logger"
	"github.com/trezcool/quickreceipt/storage/database"
	"github.com/trezcool/quickreceipt/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()

	exitOnErr(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	exitOnErr(errors.Wrap(err, "opening database"))
	defer func() { _ = db.Close() }()

	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)

	cli := commandLine{
		db:         db,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db)),
		validate:   validate,
		translator: translator,
		logger:     logsvc.NewRollbarLogger(conf),
		out:        os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		_ = db.Close()
		exitOnErr(err)
	}
}

package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/identity"
	"github.com/trezcool/academia/storage/database"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	conf := core.NewConfig()

	// set up DB
	db, err := database.Open(context.Background(), conf)
	errAndDie(err)

	v := core.NewValidator()
	identity.InitValidators(v)

	// start CLI
	cli := commandLine{
		db:         db.DB,
		identities: identity.NewService(sqlxrepos.NewIdentityRepository(sqlxrepos.NewTxManager(db)), v),
		out:        os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}

package main

import (
	"log"
	"os"

	echoapi "github.com/shuleapp/shule/apps/api/echo"
	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/account"
	emailsvc "github.com/shuleapp/shule/services/email"
	logsvc "github.com/shuleapp/shule/services/logger"
	mediasvc "github.com/shuleapp/shule/services/media"
	mongodb "github.com/shuleapp/shule/storage/database/mongo"
)

func main() {
	conf := core.NewConfig()

	// set up logging
	std := log.New(os.Stdout, conf.AppName+" : ", log.LstdFlags|log.Lshortfile)
	var logger core.Logger
	if conf.RollbarToken != "" {
		logger = logsvc.NewRollbarLogger(std, conf)
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up validation
	validate, translator := core.NewValidator()
	account.RegisterValidators(validate, translator)

	// set up DB
	db, err := mongodb.Open(conf)
	errAndDie(err)
	defer func() { _ = mongodb.Close(db) }()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	mediaSvc, err := mediasvc.NewLocalService(conf)
	errAndDie(err)

	tokenSvc := account.NewTokenService(conf)
	acctSvc := account.NewService(conf, mongodb.NewAccountRepository(db), tokenSvc, mailSvc)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Addr:       conf.Addr(),
		Conf:       conf,
		Logger:     logger,
		AccountSvc: acctSvc,
		Media:      mediaSvc,
		Validate:   validate,
		Translator: translator,
	})
	app.Start()
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

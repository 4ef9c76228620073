package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/shulehub/shule/apps/api/echo"
	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/school"
	"github.com/shulehub/shule/core/user"
	"github.com/shulehub/shule/services/email"
	"github.com/shulehub/shule/services/logger"
	"github.com/shulehub/shule/storage/database"
	postgres "github.com/shulehub/shule/storage/database/postgres"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(std, err)

	var appLogger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		appLogger = logsvc.NewStdLogger(std)
	} else {
		appLogger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	err = database.CreateIfNotExist(conf)
	errAndDie(std, err)
	db, err := database.Open(conf)
	errAndDie(std, err)
	defer func() { _ = db.Close() }()
	err = database.Migrate(db)
	errAndDie(std, err)

	usrRepo := postgres.NewUserRepository(db)
	schRepo := postgres.NewSchoolRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, appLogger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	schSvc := school.NewService(schRepo, usrRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Addr:       conf.Server.Address(),
		Conf:       conf,
		Logger:     appLogger,
		UserSvc:    usrSvc,
		SchoolSvc:  schSvc,
		UserRepo:   usrRepo,
		Validate:   validate,
		Translator: translator,
	})

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Stop(ctx); err != nil {
			appLogger.Error("server shutdown", err)
		}
	}()

	app.Start()
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}

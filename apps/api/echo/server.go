package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/shuleapp/shule/core"
	"github.com/shuleapp/shule/core/account"
)

const shutdownTimeout = 20 * time.Second

type (
	Options struct {
		Addr           string
		DisableReqLogs bool

		Conf       *core.Config
		Logger     core.Logger
		AccountSvc *account.Service
		Media      core.MediaService
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
		quit chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
		quit: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.Static(conf.Media.BaseURL, conf.Media.Root)

	jwt := jwtMiddleware(conf)
	registerAccountAPI(s.app, jwt, s.opts.AccountSvc, s.opts.Media, s.opts.Logger, s.opts.Validate, s.opts.Translator)
}

// Start runs the server until it fails or an interrupt/shutdown signal arrives.
func (s *server) Start() {
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.app.Start(s.opts.Addr)
	}()

	signal.Notify(s.quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		s.opts.Logger.Fatal(fmt.Sprintf("server error: %v", err), err)
	case sig := <-s.quit:
		s.opts.Logger.Info(fmt.Sprintf("shutdown started: %v", sig))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			s.opts.Logger.Error(fmt.Sprintf("graceful shutdown failed: %v", err), err)
			_ = s.app.Close()
		}
	}
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// signalShutdown lets the error handler trigger a graceful shutdown.
func (s *server) signalShutdown() {
	s.quit <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Shule API is running...")
}

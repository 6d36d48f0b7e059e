package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // seeds the environment from .env in development
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/donation-identity/internal/config"
	"github.com/iliyamo/donation-identity/internal/database"
	"github.com/iliyamo/donation-identity/internal/handler"
	"github.com/iliyamo/donation-identity/internal/limiter"
	"github.com/iliyamo/donation-identity/internal/middleware"
	"github.com/iliyamo/donation-identity/internal/notify"
	"github.com/iliyamo/donation-identity/internal/queue"
	"github.com/iliyamo/donation-identity/internal/repository"
	"github.com/iliyamo/donation-identity/internal/router"
	"github.com/iliyamo/donation-identity/internal/service"
	"github.com/iliyamo/donation-identity/internal/utils"
)

func main() {
	_ = godotenv.Load()      // a missing .env is fine; the environment may already be set
	cfg := config.Load()     // Load environment config
	logger := log.New("app") // process-level logger
	logger.SetLevel(log.INFO)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()
	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		logger.Fatalf("migrate: %v", err)
	}
	cancel()

	users := repository.NewUserRepo(db)
	students := repository.NewStudentRepo(db)

	// Redis shares the login limiter and the IP throttle across instances.
	// Without it each instance keeps its own login counters.
	var shared redis.UniversalClient
	var attempts limiter.Limiter = limiter.NewMemory()
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		shared = rdb
		attempts = limiter.NewRedis(rdb, "login")
		logger.Info("redis connected: shared rate limiting enabled")
	} else {
		logger.Warn("redis unavailable: in-memory login limiter, IP throttle disabled")
	}

	senders := notify.Router{
		SMS:   notify.NewTwilioSMS(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber),
		Email: notify.NewSMTPEmail(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From),
	}
	bg, stopBG := context.WithCancel(context.Background())
	defer stopBG()

	var deliveries service.Enqueuer
	var worker *queue.Worker
	if cfg.OTPQueueEnabled {
		deliveries = queue.NewPublisher(cfg.AMQPURL, log.New("otp-publisher"))
		consumer := queue.NewConsumer(cfg.AMQPURL, senders, queue.DefaultRetry, log.New("otp-consumer"))
		go func() {
			if err := consumer.Run(bg); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("otp consumer stopped: %v", err)
			}
		}()
	} else {
		worker = queue.NewWorker(senders, 4, 256, queue.DefaultRetry, log.New("delivery"))
		deliveries = worker
	}

	sessions := utils.NewSessionIssuer(cfg.JWTSecret)
	identity := service.NewIdentity(service.IdentityDeps{
		Users:    users,
		Students: students,
		Limiter:  attempts,
		Hasher:   utils.NewHasher(cfg.BcryptCost),
		Sessions: sessions,
		OTP:      service.NewOTPEngine(users, deliveries, log.New("otp")),
		Logger:   log.New("identity"),
	})
	oauth := service.NewOAuthBridge(service.OAuthConfig{
		ClientID:        cfg.OAuth.ClientID,
		ClientSecret:    cfg.OAuth.ClientSecret,
		RedirectBaseURL: cfg.OAuth.RedirectBaseURL,
	}, users, identity.Registry(), sessions, log.New("oauth"))

	// The revocation list is opt-in; leaving both interfaces nil keeps
	// sessions fully stateless.
	var revoker handler.Revoker
	var revocations middleware.RevocationList
	if cfg.RevocationEnabled {
		tokens := repository.NewTokenRepo(db)
		revoker, revocations = tokens, tokens
		go purgeRevoked(bg, tokens, logger)
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger = log.New("http")
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Errorf("%s %s %d %s: %v", v.Method, v.URIPath, v.Status, v.Latency, v.Error)
				return nil
			}
			logger.Infof("%s %s %d %s", v.Method, v.URIPath, v.Status, v.Latency)
			return nil
		},
	}))

	router.Register(e, router.Deps{
		Auth:        handler.NewAuthHandler(identity, oauth, revoker, cfg.FrontendURL, log.New("auth")),
		Admin:       handler.NewAdminHandler(identity),
		Records:     handler.NewRecordHandler(repository.NewContractRepo(db), repository.NewDonationRepo(db)),
		Health:      handler.Health(db),
		Sessions:    sessions,
		Revocations: revocations,
		Standing:    identity,
		Throttle:    middleware.NewTokenBucket(config.LoadThrottleConfig(), shared),
	})

	addr := ":" + cfg.Port
	logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err) // Log and exit if server fails
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	stopBG()
	if worker != nil {
		worker.Stop(ctx)
	}
}

// purgeRevoked drops revocation rows whose tokens have expired anyway.
func purgeRevoked(ctx context.Context, tokens *repository.TokenRepo, logger *log.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.PurgeExpired(ctx, now)
			if err != nil {
				logger.Warnf("purge revoked tokens: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("purged %d expired revocations", n)
			}
		}
	}
}

package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/cinetix/booking-engine/internal/booking"
	"github.com/cinetix/booking-engine/internal/domain"
	"github.com/cinetix/booking-engine/internal/event"
	"github.com/cinetix/booking-engine/internal/hold"
	"github.com/cinetix/booking-engine/internal/inventory"
	"github.com/cinetix/booking-engine/internal/mailer"
	"github.com/cinetix/booking-engine/internal/payment"
	"github.com/cinetix/booking-engine/internal/repository"
	appvalidator "github.com/cinetix/booking-engine/internal/validator"
	"github.com/cinetix/booking-engine/internal/vcs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stripe/stripe-go/v82"
)

var (
	version = vcs.Version()
)

type Application struct {
	config         Config
	logger         *slog.Logger
	db             *pgxpool.Pool
	redis          redis.UniversalClient
	validator      *validator.Validate
	mailer         mailer.Mailer
	sessionManager *scs.SessionManager

	store        *inventory.Store
	holds        *hold.Manager
	coordinator  *booking.Coordinator
	dispatcher   *event.Dispatcher
	amqpObserver *event.AMQPObserver

	catalogRepo domain.CatalogRepository
	bookingRepo domain.BookingRepository
	paymentRepo domain.PaymentRepository
	gateway     domain.PaymentGateway
}

type Config struct {
	Port int
	Env  string

	DB               DBConfig
	Redis            RedisConfig
	SMTP             SMTPConfig
	Stripe           StripeConfig
	AMQP             AMQPConfig
	Engine           EngineConfig
	OtelCollectorURL string
}

type DBConfig struct {
	DSN          string
	MaxOpenConns int
	MaxIdleTime  time.Duration
}

type RedisConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type StripeConfig struct {
	SecretKey string
}

type AMQPConfig struct {
	URL string
}

type EngineConfig struct {
	HoldTTL        time.Duration
	SweepInterval  time.Duration
	HoldRetention  time.Duration
	PaymentTimeout time.Duration
}

func Run() error {
	var cfg Config

	flag.IntVar(&cfg.Port, "port", 3000, "server port")
	flag.StringVar(&cfg.Env, "env", "dev", "Environment (dev|staging|prod)")

	flag.StringVar(&cfg.DB.DSN, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.Redis.URL, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.Redis.MaxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.Redis.MaxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.Redis.MaxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.SMTP.Host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.SMTP.Port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.SMTP.Username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.SMTP.Password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.SMTP.Sender, "smtp-sender", "CineTix <no-reply@cinetix.example.com>", "SMTP sender")

	flag.StringVar(&cfg.Stripe.SecretKey, "stripe-key", "", "Stripe secret key")
	flag.StringVar(&cfg.AMQP.URL, "amqp-url", "", "RabbitMQ URL for booking notifications")

	flag.DurationVar(&cfg.Engine.HoldTTL, "hold-ttl", hold.DefaultTTL, "Seat hold TTL")
	flag.DurationVar(&cfg.Engine.SweepInterval, "sweep-interval", hold.DefaultSweepInterval, "Hold expiry sweep interval")
	flag.DurationVar(&cfg.Engine.HoldRetention, "hold-retention", hold.DefaultRetention, "How long finished holds stay readable before the sweep drops them")
	flag.DurationVar(&cfg.Engine.PaymentTimeout, "payment-timeout", booking.DefaultPaymentTimeout, "Payment gateway timeout")

	flag.StringVar(&cfg.OtelCollectorURL, "otel-collector-url", "", "OpenTelemetry collector URL")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	stripe.Key = cfg.Stripe.SecretKey

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := NewApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	shutdownTelemetry, err := app.initTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	return app.serve()
}

// NewApplication wires the engine together: catalog-fed inventory, hold
// manager, saga coordinator, and the observer fan-out.
func NewApplication(cfg Config, logger *slog.Logger) (*Application, error) {
	db, err := newDatabasePool(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	catalogRepo := repository.NewPostgresCatalogRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	gateway := payment.NewStripeGateway()
	smtpMailer := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)

	store := inventory.NewStore()
	holds := hold.NewManager(store, logger,
		hold.WithTTL(cfg.Engine.HoldTTL),
		hold.WithSweepInterval(cfg.Engine.SweepInterval),
		hold.WithRetention(cfg.Engine.HoldRetention),
	)

	dispatcher := event.NewDispatcher(logger)
	dispatcher.Register(event.NewStreamObserver(redisClient))
	dispatcher.Register(event.NewEmailObserver(smtpMailer, bookingRepo))

	var amqpObserver *event.AMQPObserver
	if cfg.AMQP.URL != "" {
		amqpObserver = event.NewAMQPObserver(cfg.AMQP.URL)
		dispatcher.Register(amqpObserver)
	}

	metricsObserver, err := event.NewMetricsObserver()
	if err != nil {
		db.Close()
		redisClient.Close()
		return nil, err
	}
	dispatcher.Register(metricsObserver)

	coordinator := booking.NewCoordinator(
		store,
		holds,
		catalogRepo,
		bookingRepo,
		paymentRepo,
		gateway,
		dispatcher,
		logger,
		booking.WithPaymentTimeout(cfg.Engine.PaymentTimeout),
	)

	app := &Application{
		config:         cfg,
		logger:         logger,
		db:             db,
		redis:          redisClient,
		validator:      appvalidator.NewValidator(),
		mailer:         smtpMailer,
		sessionManager: newSessionManager(redisClient),
		store:          store,
		holds:          holds,
		coordinator:    coordinator,
		dispatcher:     dispatcher,
		amqpObserver:   amqpObserver,
		catalogRepo:    catalogRepo,
		bookingRepo:    bookingRepo,
		paymentRepo:    paymentRepo,
		gateway:        gateway,
	}

	if err := app.loadInventory(context.Background()); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// loadInventory initializes the seat inventory from the catalog's immutable
// show definitions.
func (app *Application) loadInventory(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	shows, err := app.catalogRepo.GetShows(ctx)
	if err != nil {
		return fmt.Errorf("loading show catalog: %w", err)
	}

	for _, show := range shows {
		app.store.AddShow(show)
	}

	app.logger.Info("seat inventory initialized", "shows", len(shows))

	return nil
}

func (app *Application) Close() {
	if app.amqpObserver != nil {
		app.amqpObserver.Close()
	}
	if app.db != nil {
		app.db.Close()
	}
	if app.redis != nil {
		app.redis.Close()
	}
}

func newSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = 20 * time.Minute
	sessionManager.Cookie.Name = "session_id"

	return sessionManager
}

func newRedisClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Redis.URL,
		MaxIdleConns:    cfg.Redis.MaxIdleConns,
		MaxActiveConns:  cfg.Redis.MaxOpenConns,
		ConnMaxIdleTime: cfg.Redis.MaxIdleTime,
	})

	if cfg.OtelCollectorURL != "" {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg Config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.DB.MaxIdleTime
	config.MaxConns = int32(cfg.DB.MaxOpenConns)

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *Application) serve() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()

	go app.holds.Run(sweepCtx)

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		stopSweep()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)
	r.Use(app.sessionManager.LoadAndSave)
	r.Use(app.ensureGuestSession)

	r.Get("/healthcheck", app.HealthcheckHandler)

	r.Route("/shows/{showID}", func(r chi.Router) {
		r.Get("/seats", app.GetShowSeatsHandler)
		r.Post("/holds", app.CreateHoldHandler)
		r.Delete("/holds", app.DeleteHoldHandler)
	})

	r.Post("/checkout", app.CheckoutHandler)
	r.Get("/bookings/{bookingID}", app.GetBookingHandler)

	return r
}

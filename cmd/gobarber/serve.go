package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/miltonyano/gostack-gobarber/internal/auth"
	"github.com/miltonyano/gostack-gobarber/internal/cache"
	"github.com/miltonyano/gostack-gobarber/internal/service/appointments"
	"github.com/miltonyano/gostack-gobarber/internal/service/notifications"
	"github.com/miltonyano/gostack-gobarber/internal/service/users"
	mongostore "github.com/miltonyano/gostack-gobarber/internal/store/mongo"
	"github.com/miltonyano/gostack-gobarber/internal/store/postgres"
	grpctransport "github.com/miltonyano/gostack-gobarber/internal/transport/grpc"
	httptransport "github.com/miltonyano/gostack-gobarber/internal/transport/http"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log
	log.Info("starting",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("grpc_health_addr", cfg.GRPCHealthAddr),
		zap.String("log_level", cfg.LogLevel),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.String("mail_driver", cfg.MailDriver),
	)

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", zap.Error(err))
		}
	}()

	mongoClient, err := mongostore.Connect(ctx, cfg.MongoURL)
	if err != nil {
		log.Error("mongo connection failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	notificationRepo := mongostore.NewNotificationRepo(mongoClient.Database(cfg.MongoDatabase))
	if err := notificationRepo.EnsureIndexes(ctx); err != nil {
		log.Warn("notification indexes not ensured", zap.Error(err))
	}

	redisClient, err := cache.NewRedisClient(ctx, cache.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Error("redis connection failed", zap.Error(err), zap.String("redis_addr", cfg.RedisAddr))
		return err
	}
	defer func() { _ = redisClient.Close() }()
	redisCache := cache.NewRedisCache(redisClient, cfg.RedisTTL)

	avatars, uploadDir, err := buildStorage(ctx, cfg)
	if err != nil {
		log.Error("storage init failed", zap.Error(err))
		return err
	}

	mailer, closeMailer, err := buildMail(cfg, log)
	if err != nil {
		log.Error("mail provider init failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := closeMailer(); err != nil {
			log.Warn("mail provider close failed", zap.Error(err))
		}
	}()

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return err
	}

	userRepo := postgres.NewUserRepo(db)
	userSvc := users.NewService(users.Deps{
		Users:   userRepo,
		Tokens:  postgres.NewUserTokenRepo(db),
		Hasher:  auth.NewBcryptHasher(0),
		Issuer:  issuer,
		Storage: avatars,
		Cache:   redisCache,
		Mail:    mailer,
		WebURL:  cfg.WebURL,
		Log:     log,
	})
	appointmentSvc := appointments.NewService(
		postgres.NewAppointmentRepo(db),
		userRepo,
		notificationRepo,
		redisCache,
		appointments.WithLocation(cfg.Location),
		appointments.WithLogger(log),
	)
	notificationSvc := notifications.NewService(notificationRepo)

	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httptransport.NewRouter(httptransport.Config{
			Users:          userSvc,
			Appointments:   appointmentSvc,
			Notifications:  notificationSvc,
			Tokens:         issuer,
			AvatarURL:      avatars.URL,
			UploadDir:      uploadDir,
			RequestTimeout: cfg.HTTPRequestTimeout,
			RateLimit:      cfg.HTTPRateLimit,
			Log:            log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv, healthSrv := grpctransport.NewServer(log, cfg.HTTPRequestTimeout)
	reporter := grpctransport.NewHealthReporter(healthSrv, log, cfg.GRPCHealthInterval,
		postgres.Checker{DB: db},
		cache.Checker{Client: redisClient},
		mongostore.Checker{Client: mongoClient},
	)

	lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
	if err != nil {
		log.Error("grpc listen failed", zap.Error(err), zap.String("grpc_health_addr", cfg.GRPCHealthAddr))
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server started", zap.String("http_addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server stopped with error", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("grpc health server started", zap.String("grpc_health_addr", cfg.GRPCHealthAddr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", zap.Error(err))
			return err
		}
		return nil
	})
	g.Go(func() error {
		return reporter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http graceful shutdown failed; closing", zap.Error(err))
			_ = httpSrv.Close()
		}
		grpctransport.Shutdown(log, grpcSrv, cfg.ShutdownTimeout)
		return nil
	})

	return g.Wait()
}

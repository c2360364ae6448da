package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/config"
	"github.com/miltonyano/gostack-gobarber/internal/mail"
	"github.com/miltonyano/gostack-gobarber/internal/storage"
	"github.com/miltonyano/gostack-gobarber/internal/store/postgres"
)

func openDatabase(cfg config.Config, log *zap.Logger) (*bun.DB, error) {
	log.Info("connecting to database", databaseFields(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		fields := append([]zap.Field{zap.Error(err)}, databaseFields(cfg.DatabaseURL)...)
		log.Error("database connection failed", fields...)
		return nil, err
	}
	return db, nil
}

// buildStorage returns the avatar provider and, for the disk driver, the directory to serve.
func buildStorage(ctx context.Context, cfg config.Config) (storage.Provider, string, error) {
	if cfg.StorageDriver == config.StorageMinio {
		p, err := storage.NewMinioProvider(storage.MinioConfig{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Bucket:    cfg.Minio.Bucket,
			Region:    cfg.Minio.Region,
			PublicURL: cfg.Minio.PublicURL,
		})
		if err != nil {
			return nil, "", err
		}
		if err := p.EnsureBucket(ctx); err != nil {
			return nil, "", fmt.Errorf("ensure bucket %q: %w", cfg.Minio.Bucket, err)
		}
		return p, "", nil
	}

	p, err := storage.NewDiskProvider(cfg.UploadDir, cfg.APIURL)
	if err != nil {
		return nil, "", err
	}
	return p, p.Dir(), nil
}

func smtpConfig(cfg config.Config) mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
	}
}

// buildMail returns the configured mail provider and a func releasing its resources.
func buildMail(cfg config.Config, log *zap.Logger) (mail.Provider, func() error, error) {
	renderer, err := mail.NewRenderer(mail.Contact{Name: cfg.MailFromName, Email: cfg.MailFromAddress})
	if err != nil {
		return nil, nil, err
	}
	noop := func() error { return nil }

	switch cfg.MailDriver {
	case config.MailSMTP:
		return mail.NewSMTPProvider(renderer, mail.NewSMTPSender(smtpConfig(cfg))), noop, nil
	case config.MailQueue:
		conn, ch, err := openMailQueue(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() error {
			_ = ch.Close()
			return conn.Close()
		}
		return mail.NewQueueProvider(renderer, ch, cfg.MailQueue), closeFn, nil
	default:
		return mail.NewLogProvider(renderer, log), noop, nil
	}
}

func openMailQueue(cfg config.Config) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := mail.DeclareQueue(ch, cfg.MailQueue); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

func databaseFields(databaseURL string) []zap.Field {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []zap.Field{zap.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []zap.Field{
		zap.String("db_host", host),
		zap.String("db_port", port),
		zap.String("db_name", name),
	}
}

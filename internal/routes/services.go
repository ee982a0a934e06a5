package routes

import (
	"context"
	"errors"
	"fmt"

	"github.com/eazycard/eazycard/internal/account"
	"github.com/eazycard/eazycard/internal/action"
	"github.com/eazycard/eazycard/internal/config"
	"github.com/eazycard/eazycard/internal/currency"
	"github.com/eazycard/eazycard/internal/history"
	"github.com/eazycard/eazycard/internal/notification"
	"github.com/eazycard/eazycard/internal/secrets"
	"github.com/eazycard/eazycard/internal/statement"
)

// Services holds the wired domain services.
type Services struct {
	Repo       account.Repository
	Engine     *account.Engine
	History    *history.Service
	Statements *statement.Service
	Router     *action.Router
	Secrets    secrets.Provider
	Dispatcher *notification.Dispatcher
}

// NewServices builds the domain services from the configured backends.
func NewServices(ctx context.Context, d Deps) (*Services, error) {
	cfg := d.Cfg

	repo, err := newRepository(ctx, d)
	if err != nil {
		return nil, err
	}

	var mailer notification.Notifier
	switch cfg.Notifier {
	case config.NotifierSES:
		if d.AWS == nil {
			return nil, errors.New("ses notifier requires aws clients")
		}
		mailer = notification.NewSESNotifier(d.AWS.SES, cfg.VerifiedEmail)
	default:
		mailer = notification.NewLoggerNotifier(d.Logger)
	}
	dispatcher := notification.NewDispatcher(mailer, cfg.NotificationTimeout, d.Logger, d.Metrics)

	rates := currency.NewCachedSource(
		currency.NewHTTPSource(cfg.ExchangeRate.APIURL, cfg.ExchangeRate.HTTPTimeout, d.Logger),
		d.Cache,
		cfg.ExchangeRate.CacheTTL,
		d.Logger,
	)
	normalizer := currency.NewNormalizer(rates, cfg.SettlementCurrency)

	engine := account.NewEngine(repo, normalizer, dispatcher, account.EngineConfig{
		AdminRecipients:   cfg.AdminEmails,
		MaxUpdateAttempts: cfg.MaxUpdateAttempts,
	}, d.Logger.With("component", "engine"))
	hist := history.NewService(repo, d.Logger.With("component", "history"))
	statements := statement.NewService(repo, mailer, cfg.AdminEmails, normalizer.Settlement(), d.Metrics, d.Logger.With("component", "statement"))

	var provider secrets.Provider
	switch cfg.SecretSource {
	case config.SecretSourceManager:
		if d.AWS == nil {
			return nil, errors.New("secrets manager source requires aws clients")
		}
		provider = secrets.NewSecretsManagerProvider(d.AWS.SecretsManager, cfg.SecretName)
	default:
		provider = secrets.EnvProvider{}
	}

	return &Services{
		Repo:       repo,
		Engine:     engine,
		History:    hist,
		Statements: statements,
		Router:     action.NewRouter(engine, hist, statements, d.Metrics, d.Logger.With("component", "router")),
		Secrets:    secrets.NewCachedProvider(provider, cfg.SecretCacheTTL),
		Dispatcher: dispatcher,
	}, nil
}

func newRepository(ctx context.Context, d Deps) (account.Repository, error) {
	switch d.Cfg.Store {
	case config.StoreDynamoDB:
		if d.AWS == nil {
			return nil, errors.New("dynamodb store requires aws clients")
		}
		return account.NewDynamoRepository(d.AWS.DynamoDB, d.Cfg.ClientsTable), nil
	case config.StorePostgres:
		if d.DB == nil {
			return nil, errors.New("postgres store requires a database pool")
		}
		repo := account.NewPostgresRepository(d.DB)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure clients schema: %w", err)
		}
		return repo, nil
	case config.StoreMemory:
		return account.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store %q", d.Cfg.Store)
	}
}

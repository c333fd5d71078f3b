package provider

import (
	"github.com/nexpag/nexpag/internal/authz"
	"github.com/nexpag/nexpag/internal/cache"
	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/queue"
	"github.com/nexpag/nexpag/internal/repository"
	"github.com/nexpag/nexpag/internal/service"
)

// Container wires repositories and services together.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	OperatorRepo   repository.OperatorRepository
	MerchantRepo   repository.MerchantRepository
	RateSetRepo    repository.RateSetRepository
	ProductRepo    repository.ProductRepository
	AffiliateRepo  repository.AffiliateRepository
	PaymentRepo    repository.PaymentRepository
	LedgerRepo     repository.LedgerRepository
	WithdrawalRepo repository.WithdrawalRepository
	WebhookRepo    repository.WebhookRepository

	// Services
	AuthzService      *authz.Service
	AuthService       *service.AuthService
	RateService       *service.RateService
	FeeCalculator     *service.FeeCalculator
	LedgerService     *service.LedgerService
	SettlementService *service.SettlementService
	ReserveService    *service.ReserveService
	WithdrawalService *service.WithdrawalService
	WebhookService    *service.WebhookService
	ProductService    *service.ProductService
	AffiliateService  *service.AffiliateService
}

// NewContainer builds the dependency container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OperatorRepo = repository.NewOperatorRepository(db)
	c.MerchantRepo = repository.NewMerchantRepository(db)
	c.RateSetRepo = repository.NewRateSetRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.AffiliateRepo = repository.NewAffiliateRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.WithdrawalRepo = repository.NewWithdrawalRepository(db)
	c.WebhookRepo = repository.NewWebhookRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.OperatorRepo, c.MerchantRepo)
	c.RateService = service.NewRateService(c.RateSetRepo, c.MerchantRepo, c.Config.Settlement)
	c.FeeCalculator = service.NewFeeCalculator(c.Config.Settlement)
	c.LedgerService = service.NewLedgerService(c.LedgerRepo, c.MerchantRepo)
	c.SettlementService = service.NewSettlementService(
		c.PaymentRepo,
		c.LedgerRepo,
		c.MerchantRepo,
		c.AffiliateRepo,
		c.ProductRepo,
		c.LedgerService,
		c.RateService,
		c.FeeCalculator,
		c.QueueClient,
	)
	c.ReserveService = service.NewReserveService(c.LedgerRepo, c.MerchantRepo, c.LedgerService, c.QueueClient)
	c.WithdrawalService = service.NewWithdrawalService(
		c.WithdrawalRepo,
		c.LedgerRepo,
		c.MerchantRepo,
		c.LedgerService,
		c.RateService,
		c.QueueClient,
	)
	c.WebhookService = service.NewWebhookService(c.WebhookRepo, c.QueueClient, c.Config.Webhook)
	c.ProductService = service.NewProductService(c.ProductRepo, c.MerchantRepo)
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo, c.ProductRepo, c.MerchantRepo)
}

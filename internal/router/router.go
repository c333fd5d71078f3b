package router

import (
	"fmt"
	"strings"

	"github.com/nexpag/nexpag/internal/cache"
	"github.com/nexpag/nexpag/internal/config"
	adminhandlers "github.com/nexpag/nexpag/internal/http/handlers/admin"
	gatewayhandlers "github.com/nexpag/nexpag/internal/http/handlers/gateway"
	merchanthandlers "github.com/nexpag/nexpag/internal/http/handlers/merchant"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the HTTP engine with all route groups.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	merchantHandler := merchanthandlers.New(c)
	adminHandler := adminhandlers.New(c)
	gatewayHandler := gatewayhandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "np"
	}
	redisClient := cache.Client()
	merchantLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:merchant_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}
	operatorLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:operator_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// Acquirer callback channel, shared-secret auth.
		gateway := apiV1.Group("/gateway")
		gateway.Use(GatewayAuthMiddleware(cfg.Gateway.SharedSecret))
		{
			gateway.POST("/payments/confirmed", gatewayHandler.ConfirmPayment)
		}

		// Merchant auth, no token required.
		merchantAuth := apiV1.Group("/merchant/auth")
		{
			merchantAuth.POST("/register", merchantHandler.Register)
			merchantAuth.POST("/login",
				RateLimitMiddleware(redisClient, merchantLoginRule, KeyByIPAndJSONField("email")),
				merchantHandler.Login)
		}

		// Merchant API.
		merchant := apiV1.Group("/merchant")
		merchant.Use(MerchantJWTAuthMiddleware(c.AuthService, c.MerchantRepo))
		{
			merchant.GET("/balance", merchantHandler.GetBalance)
			merchant.GET("/ledger", merchantHandler.GetLedgerHistory)

			merchant.GET("/payments", merchantHandler.GetPayments)
			merchant.GET("/payments/:payment_no", merchantHandler.GetPayment)

			merchant.POST("/withdrawals", merchantHandler.RequestWithdrawal)
			merchant.GET("/withdrawals", merchantHandler.GetWithdrawals)
			merchant.GET("/withdrawals/:id", merchantHandler.GetWithdrawal)

			merchant.POST("/webhooks", merchantHandler.RegisterWebhook)
			merchant.GET("/webhooks", merchantHandler.GetWebhooks)
			merchant.PUT("/webhooks/:id", merchantHandler.UpdateWebhook)
			merchant.DELETE("/webhooks/:id", merchantHandler.DeleteWebhook)
			merchant.GET("/webhook-deliveries", merchantHandler.GetWebhookDeliveries)

			merchant.POST("/products", merchantHandler.CreateProduct)
			merchant.GET("/products", merchantHandler.GetProducts)
			merchant.GET("/products/:id", merchantHandler.GetProduct)
			merchant.PUT("/products/:id", merchantHandler.UpdateProduct)

			merchant.POST("/affiliations", merchantHandler.CreateAffiliation)
			merchant.GET("/affiliations", merchantHandler.GetAffiliations)
			merchant.DELETE("/affiliations/:id", merchantHandler.DeactivateAffiliation)
		}

		// Back-office API.
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login",
				RateLimitMiddleware(redisClient, operatorLoginRule, KeyByIP),
				adminHandler.Login)

			authorized := admin.Use(
				OperatorJWTAuthMiddleware(c.AuthService, c.OperatorRepo),
				OperatorRBACMiddleware(c.AuthzService),
			)
			{
				authorized.GET("/merchants", adminHandler.GetMerchants)
				authorized.GET("/merchants/:id", adminHandler.GetMerchant)
				authorized.PUT("/merchants/:id", adminHandler.UpdateMerchantStatus)
				authorized.GET("/merchants/:id/rates", adminHandler.GetMerchantRates)
				authorized.PUT("/merchants/:id/rates", adminHandler.SetMerchantRates)
				authorized.DELETE("/merchants/:id/rates", adminHandler.ClearMerchantRates)
				authorized.POST("/merchants/:id/adjustments", adminHandler.CreateAdjustment)

				authorized.GET("/rates", adminHandler.GetRateVersions)
				authorized.PUT("/rates", adminHandler.SetDefaultRates)

				authorized.GET("/payments", adminHandler.GetPayments)
				authorized.GET("/payments/:id", adminHandler.GetPayment)
				authorized.GET("/ledger", adminHandler.GetLedger)

				authorized.GET("/withdrawals", adminHandler.GetWithdrawals)
				authorized.GET("/withdrawals/:id", adminHandler.GetWithdrawal)
				authorized.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
				authorized.POST("/withdrawals/:id/complete", adminHandler.CompleteWithdrawal)
				authorized.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)

				authorized.POST("/reserves/sweep", adminHandler.SweepReserves)

				// Role management, super operators only in practice
				// since no built-in role grants these writes.
				authorized.GET("/roles", adminHandler.GetRoles)
				authorized.POST("/roles", adminHandler.CreateRole)
				authorized.GET("/roles/:role/policies", adminHandler.GetRolePolicies)
				authorized.POST("/roles/:role/policies", adminHandler.GrantRolePolicy)
				authorized.DELETE("/roles/:role/policies", adminHandler.RevokeRolePolicy)
				authorized.GET("/operators", adminHandler.GetOperators)
				authorized.GET("/operators/:id/roles", adminHandler.GetOperatorRoles)
				authorized.PUT("/operators/:id/roles", adminHandler.SetOperatorRoles)
			}
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

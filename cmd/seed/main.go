package main

import (
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/logger"
	"github.com/nexpag/nexpag/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a local environment with the platform rate set, two demo
// merchants, products and an affiliate link.
func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("failed to connect database: %v", err)
	}

	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("failed to migrate database: %v", err)
	}

	if err := models.InitDefaultOperator("", ""); err != nil {
		stdLog.Printf("failed to init default operator: %v", err)
	}

	seedDefaultRateSet(cfg, stdLog.Printf)

	demo := seedMerchant("demo@nexpag.dev", "Demo Store", "12345678000199", stdLog.Printf)
	partner := seedMerchant("partner@nexpag.dev", "Partner Shop", "98765432000188", stdLog.Printf)

	if demo == nil || partner == nil {
		return
	}

	course := seedProduct(demo.ID, "Online Course", 50000, "30", stdLog.Printf)
	seedProduct(demo.ID, "Consulting Hour", 20000, "0", stdLog.Printf)
	seedProduct(partner.ID, "E-book Bundle", 4990, "15", stdLog.Printf)

	if course != nil {
		seedAffiliateLink(course.ID, partner.ID, course.CommissionPercent, stdLog.Printf)
	}
}

func seedDefaultRateSet(cfg *config.Config, logf func(format string, v ...interface{})) {
	var existing models.RateSet
	err := models.DB.Where("merchant_id IS NULL AND active = ?", true).First(&existing).Error
	if err == nil {
		logf("platform rate set already exists (id=%d)", existing.ID)
		return
	}

	pix, _ := decimal.NewFromString(cfg.Settlement.DefaultPixRate)
	card, _ := decimal.NewFromString(cfg.Settlement.DefaultCardRate)
	boleto, _ := decimal.NewFromString(cfg.Settlement.DefaultBoletoRate)

	rateSet := models.RateSet{
		PixRate:       models.NewPercentFromDecimal(pix),
		CardRate:      models.NewPercentFromDecimal(card),
		BoletoRate:    models.NewPercentFromDecimal(boleto),
		FixedFee:      models.NewMoneyFromCents(cfg.Settlement.DefaultFixedFeeCents),
		WithdrawalFee: models.NewMoneyFromCents(cfg.Settlement.WithdrawalFeeCents),
		Active:        true,
		CreatedAt:     time.Now(),
	}
	if err := models.DB.Create(&rateSet).Error; err != nil {
		logf("failed to create platform rate set: %v", err)
		return
	}
	logf("created platform rate set (id=%d)", rateSet.ID)
}

func seedMerchant(email, name, document string, logf func(format string, v ...interface{})) *models.Merchant {
	var existing models.Merchant
	if err := models.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		logf("merchant already exists: %s", email)
		return &existing
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("merchant123"), bcrypt.DefaultCost)
	if err != nil {
		logf("failed to hash merchant password: %v", err)
		return nil
	}
	merchant := models.Merchant{
		Email:        email,
		Name:         name,
		Document:     document,
		PasswordHash: string(hash),
		Status:       constants.MerchantStatusActive,
	}
	if err := models.DB.Create(&merchant).Error; err != nil {
		logf("failed to create merchant %s: %v", email, err)
		return nil
	}
	logf("created merchant: %s (password merchant123)", email)
	return &merchant
}

func seedProduct(merchantID uint, name string, priceCents int64, commission string, logf func(format string, v ...interface{})) *models.Product {
	var existing models.Product
	if err := models.DB.Where("merchant_id = ? AND name = ?", merchantID, name).First(&existing).Error; err == nil {
		logf("product already exists: %s", name)
		return &existing
	}

	pct, _ := decimal.NewFromString(commission)
	product := models.Product{
		MerchantID:        merchantID,
		Name:              name,
		Price:             models.NewMoneyFromCents(priceCents),
		FeeBearer:         constants.FeeBearerSeller,
		CommissionPercent: models.NewPercentFromDecimal(pct),
		Active:            true,
	}
	if err := models.DB.Create(&product).Error; err != nil {
		logf("failed to create product %s: %v", name, err)
		return nil
	}
	logf("created product: %s", name)
	return &product
}

func seedAffiliateLink(productID, affiliateMerchantID uint, commission models.Percent, logf func(format string, v ...interface{})) {
	var existing models.AffiliateLink
	err := models.DB.Where("product_id = ? AND affiliate_merchant_id = ?", productID, affiliateMerchantID).
		First(&existing).Error
	if err == nil {
		logf("affiliate link already exists (id=%d)", existing.ID)
		return
	}

	link := models.AffiliateLink{
		Code:                uuid.NewString(),
		ProductID:           productID,
		AffiliateMerchantID: affiliateMerchantID,
		CommissionPercent:   commission,
		Active:              true,
	}
	if err := models.DB.Create(&link).Error; err != nil {
		logf("failed to create affiliate link: %v", err)
		return
	}
	logf("created affiliate link (id=%d)", link.ID)
}

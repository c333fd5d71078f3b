package service

import (
	"errors"
	"strings"
	"time"

	"github.com/nexpag/nexpag/internal/config"
	"github.com/nexpag/nexpag/internal/constants"
	"github.com/nexpag/nexpag/internal/models"
	"github.com/nexpag/nexpag/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates back-office operators and merchants.
// Operators and merchants sign tokens with separate secrets so a
// leaked merchant token can never reach admin routes.
type AuthService struct {
	cfg          *config.Config
	operatorRepo repository.OperatorRepository
	merchantRepo repository.MerchantRepository
}

// NewAuthService creates the auth service.
func NewAuthService(
	cfg *config.Config,
	operatorRepo repository.OperatorRepository,
	merchantRepo repository.MerchantRepository,
) *AuthService {
	return &AuthService{
		cfg:          cfg,
		operatorRepo: operatorRepo,
		merchantRepo: merchantRepo,
	}
}

// HashPassword hashes a password with bcrypt.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a password against its hash.
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// OperatorClaims is the back-office token payload.
type OperatorClaims struct {
	OperatorID uint   `json:"operator_id"`
	Username   string `json:"username"`
	IsSuper    bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// MerchantClaims is the merchant token payload.
type MerchantClaims struct {
	MerchantID uint   `json:"merchant_id"`
	Email      string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateOperatorJWT issues a back-office token.
func (s *AuthService) GenerateOperatorJWT(operator *models.Operator) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.cfg.JWT.ExpireHours) * time.Hour)
	claims := OperatorClaims{
		OperatorID: operator.ID,
		Username:   operator.Username,
		IsSuper:    operator.IsSuper,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseOperatorJWT validates a back-office token.
func (s *AuthService) ParseOperatorJWT(tokenString string) (*OperatorClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*OperatorClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GenerateMerchantJWT issues a merchant token.
func (s *AuthService) GenerateMerchantJWT(merchant *models.Merchant) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(s.cfg.MerchantJWT.ExpireHours) * time.Hour)
	claims := MerchantClaims{
		MerchantID: merchant.ID,
		Email:      merchant.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.MerchantJWT.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseMerchantJWT validates a merchant token.
func (s *AuthService) ParseMerchantJWT(tokenString string) (*MerchantClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &MerchantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.MerchantJWT.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*MerchantClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// OperatorLogin authenticates a back-office account.
func (s *AuthService) OperatorLogin(username, password string) (*models.Operator, string, time.Time, error) {
	operator, err := s.operatorRepo.GetByUsername(username)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if operator == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(operator.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.GenerateOperatorJWT(operator)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	operator.LastLoginAt = &now
	if err := s.operatorRepo.Update(operator); err != nil {
		return nil, "", time.Time{}, err
	}
	return operator, token, expiresAt, nil
}

// MerchantLogin authenticates a merchant account.
func (s *AuthService) MerchantLogin(email, password string) (*models.Merchant, string, time.Time, error) {
	merchant, err := s.merchantRepo.GetByEmail(email)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if merchant == nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(merchant.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if merchant.Status != constants.MerchantStatusActive {
		return nil, "", time.Time{}, ErrMerchantInactive
	}

	token, expiresAt, err := s.GenerateMerchantJWT(merchant)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return merchant, token, expiresAt, nil
}

// RegisterMerchant creates a merchant account.
func (s *AuthService) RegisterMerchant(email, name, document, password string) (*models.Merchant, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}
	existing, err := s.merchantRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrInvalidCredentials
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	merchant := &models.Merchant{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Document:     strings.TrimSpace(document),
		PasswordHash: hash,
		Status:       constants.MerchantStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.merchantRepo.Create(merchant); err != nil {
		return nil, err
	}
	return merchant, nil
}

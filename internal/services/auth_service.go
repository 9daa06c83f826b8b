package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/apperrors"
	"marketplace/internal/models"
	"marketplace/internal/policy"
	"marketplace/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthConfig holds the session credential settings.
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, cfg AuthConfig, logger *zap.Logger) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
		logger:     orNop(logger),
	}
}

// RegisterInput is the self-service sign-up payload.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Address   string
}

// Session is returned by register and login.
type Session struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Register creates a customer account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return nil, apperrors.Validation("email, password, first name and last name are required")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("an account with email %s already exists", email)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, apperrors.Internal(err, "failed to look up account")
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         models.RoleCustomer,
		Phone:        in.Phone,
		Address:      in.Address,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with email %s already exists", email)
		}
		return nil, apperrors.Internal(err, "failed to register user")
	}
	s.logger.Info("account registered", zap.String("user_id", user.ID), zap.String("email", email))

	return s.newSession(user)
}

// Login authenticates an account and returns a session credential.
// Unknown email, wrong password and deactivated account all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Unauthenticated("invalid credentials")
		}
		return nil, apperrors.Internal(err, "failed to look up account")
	}
	if !user.IsActive {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid credentials")
	}

	return s.newSession(user)
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, expiresAt, err := s.IssueToken(user)
	if err != nil {
		return nil, apperrors.Internal(err, "failed to generate token")
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// IssueToken signs an HS256 token carrying the account id, email and role.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    string(user.Role),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// Authenticate resolves a bearer token to the current state of its account.
// Role changes and deactivation take effect on the next request.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (policy.Principal, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return policy.Principal{}, apperrors.Unauthenticated("invalid or expired token")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return policy.Principal{}, apperrors.Unauthenticated("invalid token claims")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return policy.Principal{}, apperrors.Unauthenticated("account no longer exists")
		}
		return policy.Principal{}, apperrors.Internal(err, "failed to load account")
	}
	if !user.IsActive {
		return policy.Principal{}, apperrors.Unauthenticated("account is deactivated")
	}
	return policy.Principal{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// Me returns the account of the authenticated caller.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal(err, "failed to load account")
	}
	return user, nil
}

func hashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

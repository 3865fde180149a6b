package service

import (
	"alcyxob/fitness-tracker/internal/domain"
	"alcyxob/fitness-tracker/internal/repository"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrInvalidToken = errors.New("invalid authentication token")
	ErrTokenExpired = errors.New("authentication token has expired")
	ErrUserNotFound = errors.New("user not found")
	ErrEmailInUse   = errors.New("email is already used by another account")
)

// Claims is the identity carried by a verified token.
type Claims struct {
	UserID primitive.ObjectID
	Role   domain.Role
	Email  string
	Name   string
}

// --- Service Interface ---

// AuthService verifies tokens issued by the identity provider and keeps the local profile in sync.
type AuthService interface {
	VerifyToken(tokenString string) (*Claims, error)
	SyncProfile(ctx context.Context, claims *Claims, name, email string) (*domain.User, error)
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
}

// --- Service Implementation ---

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	issuer    string
}

// NewAuthService creates a new instance of authService. An empty issuer accepts any issuer.
func NewAuthService(userRepo repository.UserRepository, jwtSecret, issuer string) AuthService {
	if jwtSecret == "" {
		panic("JWT secret cannot be empty") // Critical configuration
	}
	return &authService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		issuer:    issuer,
	}
}

// jwtClaims defines the structure of the JWT payload issued by the identity provider.
type jwtClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	Email  string      `json:"email,omitempty"`
	Name   string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// VerifyToken validates an HS256 token and returns its claims.
func (s *authService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if s.issuer != "" && !claims.VerifyIssuer(s.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	}

	// Providers put the user id in uid or in the subject.
	rawID := claims.UserID
	if rawID == "" {
		rawID = claims.Subject
	}
	userID, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user id", ErrInvalidToken)
	}
	if claims.Role != domain.RoleTrainer && claims.Role != domain.RoleClient {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &Claims{
		UserID: userID,
		Role:   claims.Role,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}

// SyncProfile mirrors the caller's profile locally. Explicit name and email win over the token's.
func (s *authService) SyncProfile(ctx context.Context, claims *Claims, name, email string) (*domain.User, error) {
	// 1. Resolve profile fields
	name = firstNonEmpty(name, claims.Name)
	email = strings.ToLower(firstNonEmpty(email, claims.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidationFailed)
	}

	// 2. Upsert the profile
	user := &domain.User{
		ID:    claims.UserID,
		Name:  name,
		Email: email,
		Role:  claims.Role,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}

	// 3. Return the stored profile with its trainer/client links
	return s.GetProfile(ctx, claims.UserID)
}

// GetProfile returns the stored profile of a user.
func (s *authService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/noteduco342/om-realtime/internal/models"
	"github.com/noteduco342/om-realtime/internal/repository"
	"github.com/noteduco342/om-realtime/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// AuthService is the single Authenticator shared by the HTTP middleware and
// the websocket init frame.
type AuthService struct {
	userRepo repository.UserRepositoryInterface
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepositoryInterface, secret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

type LoginInput struct {
	Email    string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Authenticate validates an access token and returns its active user.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.User, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, uint(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResponse, error) {
	if !validation.ValidateEmail(input.Email) {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.FindByEmail(ctx, validation.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}

func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(user.ID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

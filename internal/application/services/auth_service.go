package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/citc/clubhub/internal/domain/entities"
	"github.com/citc/clubhub/internal/infrastructure/config"
	"github.com/citc/clubhub/internal/infrastructure/logger"
	"github.com/citc/clubhub/internal/ports"
)

// Claims represents the JWT claims
type Claims struct {
	UserID string            `json:"user_id"`
	Email  string            `json:"email"`
	Role   entities.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// GoogleProfile is the subset of the Google userinfo response we use
type GoogleProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// googleTokenInfo is the subset of the tokeninfo response used to check
// which client a token was issued to.
type googleTokenInfo struct {
	Aud string `json:"aud"`
	Azp string `json:"azp"`
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo     ports.UserRepository
	jwtConfig    config.JWTConfig
	googleConfig config.GoogleConfig
	httpClient   *http.Client
	logger       *logger.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo ports.UserRepository, jwtConfig config.JWTConfig, googleConfig config.GoogleConfig, logger *logger.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		jwtConfig:    jwtConfig,
		googleConfig: googleConfig,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
	}
}

// HashPassword hashes a plain-text password with bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates a new user account. The first account ever created is
// made an admin.
func (s *AuthService) Register(ctx context.Context, req ports.RegisterRequest) (*ports.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, entities.ErrEmailTaken
	} else if err != nil && !errors.Is(err, entities.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role, err := s.defaultRole(ctx)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashedPassword,
		RollNo:       req.RollNo,
		Semester:     req.Semester,
		Role:         role,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infow("User registered successfully", "user_id", user.ID, "email", user.Email, "role", user.Role)

	return s.authResponse(user)
}

// Login authenticates a user with email and password
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, entities.ErrNotFound) {
			s.logger.Warnw("Login attempt with non-existent email", "email", req.Email)
			return nil, fmt.Errorf("%w: invalid email or password", entities.ErrUnauthorized)
		}
		return nil, err
	}

	if !user.HasPassword() {
		s.logger.Warnw("Password login attempt on Google account", "user_id", user.ID)
		return nil, fmt.Errorf("%w: invalid email or password", entities.ErrUnauthorized)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warnw("Login attempt with invalid password", "email", req.Email, "user_id", user.ID)
		return nil, fmt.Errorf("%w: invalid email or password", entities.ErrUnauthorized)
	}

	s.logger.Infow("User logged in successfully", "user_id", user.ID)

	return s.authResponse(user)
}

// GoogleLogin exchanges a Google access token for a local session. The token
// must have been issued to the configured client. Accounts are matched by
// Google subject first, then by email; a matched account is linked to the
// Google identity.
func (s *AuthService) GoogleLogin(ctx context.Context, req ports.GoogleLoginRequest) (*ports.AuthResponse, bool, error) {
	if !s.googleConfig.GoogleEnabled() {
		return nil, false, fmt.Errorf("%w: google sign-in is not configured", entities.ErrUnauthorized)
	}

	if err := s.verifyGoogleAudience(ctx, req.AccessToken); err != nil {
		s.logger.LogSecurityEvent("google_token_rejected", "", "", map[string]interface{}{"error": err.Error()})
		return nil, false, fmt.Errorf("%w: google authentication failed", entities.ErrUnauthorized)
	}

	profile, err := s.fetchGoogleProfile(ctx, req.AccessToken)
	if err != nil {
		s.logger.Warnw("Google authentication failed", "error", err)
		return nil, false, fmt.Errorf("%w: google authentication failed", entities.ErrUnauthorized)
	}
	if profile.Email == "" {
		return nil, false, fmt.Errorf("%w: invalid google token response", entities.ErrValidation)
	}

	user, err := s.userRepo.GetByGoogleID(ctx, profile.Sub)
	if errors.Is(err, entities.ErrNotFound) {
		user, err = s.userRepo.GetByEmail(ctx, normalizeEmail(profile.Email))
	}

	switch {
	case err == nil:
		if user.GoogleID == "" && profile.Sub != "" {
			user.GoogleID = profile.Sub
			if user.AvatarURL == "" {
				user.AvatarURL = profile.Picture
			}
			if err := s.userRepo.Update(ctx, user); err != nil {
				return nil, false, fmt.Errorf("failed to link google account: %w", err)
			}
		}
		resp, err := s.authResponse(user)
		return resp, false, err

	case errors.Is(err, entities.ErrNotFound):
		role, err := s.defaultRole(ctx)
		if err != nil {
			return nil, false, err
		}
		name := profile.Name
		if name == "" {
			name = "Google User"
		}
		user = &entities.User{
			Name:       name,
			Email:      normalizeEmail(profile.Email),
			Role:       role,
			IsVerified: true,
			AvatarURL:  profile.Picture,
			GoogleID:   profile.Sub,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to create user: %w", err)
		}
		s.logger.Infow("User registered with Google", "user_id", user.ID, "email", user.Email)
		resp, err := s.authResponse(user)
		return resp, true, err

	default:
		return nil, false, err
	}
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", entities.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", entities.ErrUnauthorized)
	}

	return &ports.Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// verifyGoogleAudience asks the tokeninfo endpoint who the token was issued
// to and rejects tokens minted for any other client.
func (s *AuthService) verifyGoogleAudience(ctx context.Context, accessToken string) error {
	u, err := url.Parse(s.googleConfig.TokenInfoURL)
	if err != nil {
		return fmt.Errorf("parse tokeninfo url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fetch tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tokeninfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("decode tokeninfo: %w", err)
	}
	if info.Aud != s.googleConfig.ClientID && info.Azp != s.googleConfig.ClientID {
		return fmt.Errorf("token issued to %q", info.Aud)
	}
	return nil
}

func (s *AuthService) fetchGoogleProfile(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	resp, err := client.Get(s.googleConfig.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &profile, nil
}

func (s *AuthService) defaultRole(ctx context.Context) (entities.UserRole, error) {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return entities.UserRoleAdmin, nil
	}
	return entities.UserRoleGuest, nil
}

func (s *AuthService) authResponse(user *entities.User) (*ports.AuthResponse, error) {
	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &ports.AuthResponse{
		LegacyID: user.ID,
		ID:       user.ID,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		Avatar:   user.AvatarURL,
		Token:    token,
	}, nil
}

func (s *AuthService) generateAccessToken(user *entities.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

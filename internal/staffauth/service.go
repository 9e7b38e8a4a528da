package staffauth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/auth"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	pkgdb "github.com/vincentbui21/SmartJuiceSystem/pkg/db"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/enums"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/security"
)

// LoginResult carries the issued token and the authenticated account.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Account   *models.Account `json:"account"`
}

// CreateAccountInput registers a new staff login.
type CreateAccountInput struct {
	Username string
	Password string
	Role     enums.StaffRole
}

// Service authenticates staff and manages their accounts.
type Service interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error)
	Account(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type service struct {
	repo        Repository
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
}

// NewService wires staff authentication.
func NewService(repo Repository, jwtCfg config.JWTConfig, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts repository required")
	}
	if jwtCfg.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jwt secret required")
	}
	return &service{repo: repo, jwtCfg: jwtCfg, passwordCfg: passwordCfg}, nil
}

// Login verifies the credential and mints an access token. Accounts still
// carrying a legacy plaintext password are rehashed on first login.
func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password required")
	}

	account, err := s.repo.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	ok, needsRehash, err := security.VerifyCredential(password, account.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify credentials")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if needsRehash {
		if hash, hashErr := security.HashPassword(password, s.passwordCfg); hashErr == nil {
			account.PasswordHash = hash
			_ = s.repo.Save(ctx, account)
		}
	}

	now := time.Now()
	tokenString, err := auth.MintAccessToken(s.jwtCfg, now, auth.AccessTokenPayload{
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		JTI:       uuid.NewString(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mint access token")
	}

	return &LoginResult{
		Token:     tokenString,
		ExpiresAt: now.Add(s.jwtCfg.AccessTokenTTL()),
		Account:   account,
	}, nil
}

func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (*models.Account, error) {
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	if _, err := s.repo.ByUsername(ctx, input.Username); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hash password")
	}

	account := &models.Account{
		ID:           uuid.New(),
		Username:     input.Username,
		PasswordHash: hash,
		Role:         input.Role,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		// ByUsername above races with concurrent registrations.
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	return account, nil
}

func (s *service) Account(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account, err := s.repo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return account, nil
}

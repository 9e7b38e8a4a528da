package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vincentbui21/SmartJuiceSystem/internal/orders"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db/models"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/security"
)

// Setting keys for the processing parameters.
const (
	KeyJuiceRatio  = "juice_ratio"
	KeyPouchLiters = "pouch_liters"
	KeyBoxCapacity = "box_capacity"
)

// ParamsUpdate carries new processing parameter values. Nil fields keep the
// stored value.
type ParamsUpdate struct {
	JuiceRatio  *float64
	PouchLiters *float64
	BoxCapacity *int
}

// AdminGate rechecks the acting admin's password before a settings write.
type AdminGate struct {
	Username string
	Password string
}

// Service manages processing parameters, cities and SMS templates. It also
// serves as the orders ParamsSource.
type Service interface {
	orders.ParamsSource

	All(ctx context.Context) (map[string]string, error)
	UpdateParams(ctx context.Context, gate AdminGate, update ParamsUpdate) (orders.ProcessingParams, error)

	Cities(ctx context.Context) ([]models.City, error)
	AddCity(ctx context.Context, name string) (*models.City, error)
	RemoveCity(ctx context.Context, id uuid.UUID) error

	Templates(ctx context.Context) ([]models.SmsTemplate, error)
	PutTemplate(ctx context.Context, locationKey, body string) error
	RemoveTemplate(ctx context.Context, locationKey string) error
}

type service struct {
	repo        Repository
	passwordCfg config.PasswordConfig
}

// NewService wires the settings store.
func NewService(repo Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "settings repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

// ProcessingParams loads the press line parameters, falling back to the
// defaults for any unset key.
func (s *service) ProcessingParams(ctx context.Context) (orders.ProcessingParams, error) {
	params := orders.DefaultProcessingParams()

	if value, ok, err := s.floatSetting(ctx, KeyJuiceRatio); err != nil {
		return params, err
	} else if ok {
		params.JuiceRatio = value
	}
	if value, ok, err := s.floatSetting(ctx, KeyPouchLiters); err != nil {
		return params, err
	} else if ok {
		params.PouchLiters = value
	}

	setting, err := s.repo.Get(ctx, KeyBoxCapacity)
	switch {
	case err == nil:
		capacity, convErr := strconv.Atoi(setting.Value)
		if convErr == nil && capacity > 0 {
			params.BoxCapacity = capacity
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return params, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	return params, nil
}

func (s *service) floatSetting(ctx context.Context, key string) (float64, bool, error) {
	setting, err := s.repo.Get(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	value, convErr := strconv.ParseFloat(setting.Value, 64)
	if convErr != nil || value <= 0 {
		return 0, false, nil
	}
	return value, true, nil
}

func (s *service) All(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// UpdateParams writes new processing parameters after re-verifying the
// acting admin's password.
func (s *service) UpdateParams(ctx context.Context, gate AdminGate, update ParamsUpdate) (orders.ProcessingParams, error) {
	if err := s.verifyAdmin(ctx, gate); err != nil {
		return orders.ProcessingParams{}, err
	}

	if update.JuiceRatio != nil {
		if *update.JuiceRatio <= 0 || *update.JuiceRatio > 1 {
			return orders.ProcessingParams{}, pkgerrors.New(pkgerrors.CodeValidation, "juice ratio must be in (0, 1]")
		}
		if err := s.repo.Upsert(ctx, KeyJuiceRatio, strconv.FormatFloat(*update.JuiceRatio, 'f', -1, 64)); err != nil {
			return orders.ProcessingParams{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
		}
	}
	if update.PouchLiters != nil {
		if *update.PouchLiters <= 0 {
			return orders.ProcessingParams{}, pkgerrors.New(pkgerrors.CodeValidation, "pouch liters must be positive")
		}
		if err := s.repo.Upsert(ctx, KeyPouchLiters, strconv.FormatFloat(*update.PouchLiters, 'f', -1, 64)); err != nil {
			return orders.ProcessingParams{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
		}
	}
	if update.BoxCapacity != nil {
		if *update.BoxCapacity <= 0 {
			return orders.ProcessingParams{}, pkgerrors.New(pkgerrors.CodeValidation, "box capacity must be positive")
		}
		if err := s.repo.Upsert(ctx, KeyBoxCapacity, strconv.Itoa(*update.BoxCapacity)); err != nil {
			return orders.ProcessingParams{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
		}
	}
	return s.ProcessingParams(ctx)
}

// verifyAdmin checks the supplied credentials against the stored account.
// Accounts still carrying a legacy plaintext password are rehashed on the
// first successful check.
func (s *service) verifyAdmin(ctx context.Context, gate AdminGate) error {
	username := strings.TrimSpace(gate.Username)
	if username == "" || gate.Password == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin credentials required")
	}

	account, err := s.repo.AccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	ok, needsRehash, err := security.VerifyCredential(gate.Password, account.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify credentials")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}
	if needsRehash {
		if hash, hashErr := security.HashPassword(gate.Password, s.passwordCfg); hashErr == nil {
			account.PasswordHash = hash
			_ = s.repo.SaveAccount(ctx, account)
		}
	}
	return nil
}

func (s *service) Cities(ctx context.Context) ([]models.City, error) {
	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cities")
	}
	return cities, nil
}

func (s *service) AddCity(ctx context.Context, name string) (*models.City, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city name required")
	}
	city := &models.City{ID: uuid.New(), Name: name}
	if err := s.repo.CreateCity(ctx, city); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create city")
	}
	return city, nil
}

func (s *service) RemoveCity(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteCity(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete city")
	}
	return nil
}

func (s *service) Templates(ctx context.Context) ([]models.SmsTemplate, error) {
	templates, err := s.repo.ListTemplates(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list templates")
	}
	return templates, nil
}

// PutTemplate upserts one location's message body. Keys are stored
// lowercased so lookups by shelf location are case-insensitive.
func (s *service) PutTemplate(ctx context.Context, locationKey, body string) error {
	locationKey = strings.ToLower(strings.TrimSpace(locationKey))
	body = strings.TrimSpace(body)
	if locationKey == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "template location required")
	}
	if body == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "template body required")
	}
	if err := s.repo.UpsertTemplate(ctx, locationKey, body); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save template")
	}
	return nil
}

func (s *service) RemoveTemplate(ctx context.Context, locationKey string) error {
	locationKey = strings.ToLower(strings.TrimSpace(locationKey))
	if locationKey == defaultTemplateKey {
		return pkgerrors.New(pkgerrors.CodeValidation, "default template cannot be removed")
	}
	if err := s.repo.DeleteTemplate(ctx, locationKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete template")
	}
	return nil
}

const defaultTemplateKey = "default"

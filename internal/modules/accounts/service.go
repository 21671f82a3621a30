package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

// Service handles registration and authentication
type Service struct {
	repo         *Repository
	eventManager *events.Manager
	log          zerolog.Logger
	startingCash decimal.Decimal
	bcryptCost   int
	now          func() time.Time
}

// NewService creates a new account service. eventManager may be nil.
func NewService(repo *Repository, startingCash decimal.Decimal, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		eventManager: eventManager,
		log:          log.With().Str("service", "accounts").Logger(),
		startingCash: startingCash,
		bcryptCost:   bcrypt.DefaultCost,
		now:          time.Now,
	}
}

// SetBCryptCost overrides the hashing cost (tests use bcrypt.MinCost)
func (s *Service) SetBCryptCost(cost int) {
	s.bcryptCost = cost
}

// Register validates the form fields and creates an account funded with the starting cash
func (s *Service) Register(ctx context.Context, username, password, confirmation string) (*domain.Account, error) {
	username = strings.TrimSpace(username)

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: must provide username", domain.ErrMissingField)
	case password == "":
		return nil, fmt.Errorf("%w: must provide password", domain.ErrMissingField)
	case confirmation == "":
		return nil, fmt.Errorf("%w: must provide password confirmation", domain.ErrMissingField)
	}

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if password != confirmation {
		return nil, fmt.Errorf("%w: passwords do not match", domain.ErrInvalidPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password too long", domain.ErrInvalidPassword)
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.repo.Create(ctx, username, string(hash), s.startingCash, s.now())
	if err != nil {
		return nil, err
	}

	if s.eventManager != nil {
		s.eventManager.Emit("accounts", account.ID, &events.AccountRegisteredData{
			AccountID: account.ID,
			Username:  account.Username,
		})
	}

	return account, nil
}

// Authenticate checks a username and password.
// Unknown usernames and wrong passwords both return domain.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: must provide username", domain.ErrMissingField)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: must provide password", domain.ErrMissingField)
	}

	account, hash, err := s.repo.GetCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		s.log.Info().Str("username", username).Msg("Rejected login")
		return nil, domain.ErrInvalidCredentials
	}

	return account, nil
}

// Get returns an account by id
func (s *Service) Get(ctx context.Context, id int64) (*domain.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByUsername returns an account by username
func (s *Service) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	account, _, err := s.repo.GetCredentials(ctx, strings.TrimSpace(username))
	return account, err
}

// List returns every account
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	return s.repo.List(ctx)
}

// ValidatePassword enforces the registration password rules
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password too short", domain.ErrInvalidPassword)
	}
	for _, r := range password {
		if unicode.IsUpper(r) {
			return nil
		}
	}
	return fmt.Errorf("%w: password must contain a capital letter", domain.ErrInvalidPassword)
}

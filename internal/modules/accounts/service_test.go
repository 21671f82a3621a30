package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	testingutil "github.com/aristath/papertrade/internal/testing"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	db, cleanup := testingutil.NewTestDB(t, "ledger")
	t.Cleanup(cleanup)

	bus := events.NewBus()
	svc := NewService(NewRepository(db.Conn(), zerolog.Nop()), decimal.RequireFromString("10000.00"), events.NewManager(bus, zerolog.Nop()), zerolog.Nop())
	svc.SetBCryptCost(bcrypt.MinCost)
	return svc, bus
}

func TestRegister_CreatesFundedAccount(t *testing.T) {
	svc, bus := newTestService(t)
	ch, cancel := bus.Subscribe(nil)
	defer cancel()

	account, err := svc.Register(context.Background(), " alice ", "Secret1", "Secret1")
	require.NoError(t, err)

	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, "10000", account.Cash.String())
	assert.Greater(t, account.ID, int64(0))

	e := <-ch
	assert.Equal(t, events.AccountRegistered, e.Type)

	stored, err := svc.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, stored.Cash.Equal(decimal.NewFromInt(10000)))
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name         string
		username     string
		password     string
		confirmation string
		wantErr      error
		wantMsg      string
	}{
		{"missing username", "", "Secret1", "Secret1", domain.ErrMissingField, "must provide username"},
		{"missing password", "bob", "", "Secret1", domain.ErrMissingField, "must provide password"},
		{"missing confirmation", "bob", "Secret1", "", domain.ErrMissingField, "confirmation"},
		{"too short", "bob", "Ab1", "Ab1", domain.ErrInvalidPassword, "too short"},
		{"no capital", "bob", "secret1", "secret1", domain.ErrInvalidPassword, "capital"},
		{"mismatch", "bob", "Secret1", "Secret2", domain.ErrInvalidPassword, "do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.password, tt.confirmation)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	accounts, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "carol", "Secret1", "Secret1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "carol", "Other22X", "Other22X")
	assert.True(t, errors.Is(err, domain.ErrUsernameTaken))
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)

	registered, err := svc.Register(context.Background(), "dave", "Secret1", "Secret1")
	require.NoError(t, err)

	account, err := svc.Authenticate(context.Background(), "dave", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, account.ID)

	_, err = svc.Authenticate(context.Background(), "dave", "wrong")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))

	_, err = svc.Authenticate(context.Background(), "nobody", "Secret1")
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials), "unknown users look like bad passwords")

	_, err = svc.Authenticate(context.Background(), "", "Secret1")
	assert.True(t, errors.Is(err, domain.ErrMissingField))
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), 999)
	assert.True(t, errors.Is(err, domain.ErrAccountNotFound))
}

func TestList_OrderedByID(t *testing.T) {
	svc, _ := newTestService(t)

	for _, name := range []string{"erin", "frank"} {
		_, err := svc.Register(context.Background(), name, "Secret1", "Secret1")
		require.NoError(t, err)
	}

	accounts, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "erin", accounts[0].Username)
	assert.Equal(t, "frank", accounts[1].Username)
}

func TestGetByUsername(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Register(context.Background(), "carol", "Secret1", "Secret1")
	require.NoError(t, err)

	account, err := svc.GetByUsername(context.Background(), " carol")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)

	_, err = svc.GetByUsername(context.Background(), "nobody")
	assert.True(t, errors.Is(err, domain.ErrAccountNotFound))
}

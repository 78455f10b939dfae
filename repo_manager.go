package motors

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	Classifications() Classifications
	Vehicles() Vehicles
}

type mngr struct {
	db              *bun.DB
	accounts        Accounts
	classifications Classifications
	vehicles        Vehicles
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:              db,
		accounts:        NewAccountsRepository(db),
		classifications: NewClassificationsRepository(db),
		vehicles:        NewVehiclesRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.classifications == nil {
		return errors.New("repository classifications should be initialized")
	}

	if m.vehicles == nil {
		return errors.New("repository vehicles should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) Classifications() Classifications {
	return m.classifications
}

func (m mngr) Vehicles() Vehicles {
	return m.vehicles
}

package motors

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var UpdateAccountPasswordSQL = `UPDATE "accounts" AS "acct"
SET
	"password_hash" = ?,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acct"."deleted_at" IS NULL
AND (
	"acct"."id" = ?
) RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error)

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	UpdateInfo(ctx context.Context, account *Account) (*Account, error)
	UpdateInfoTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)

	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

// GetByEmail looks up the account by its canonical email form. The lookup
// lower-cases the column too so rows written before normalization still match.
func (a *accounts) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email, criteria...)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	record := &Account{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("LOWER(?TableAlias.email) = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": NormalizeEmail(email),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

// UpdateInfo persists name, email and phone changes. The credential hash and
// account type are not touched from this path.
func (a *accounts) UpdateInfo(ctx context.Context, account *Account) (*Account, error) {
	return a.UpdateInfoTx(ctx, a.db, account)
}

func (a *accounts) UpdateInfoTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	record := &Account{}
	record.ID = account.ID
	record.FirstName = account.FirstName
	record.LastName = account.LastName
	record.Email = NormalizeEmail(account.Email)
	record.Phone = account.Phone

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(account.ID.String()))
}

func (a *accounts) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, UpdateAccountPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, account)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acct"
		SET
			"loggedin_at" = ?
		WHERE
			("acct".id = ?)
			AND "acct"."deleted_at" IS NULL;
	`, loggedInAt, account.ID).Exec(ctx)

	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.Type == "" {
		record.Type = RoleClient
	}

	record.Email = NormalizeEmail(record.Email)

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

package motors

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	AccountType string `json:"account_type"`
	Password    string `json:"password"`
	UseHashid   bool
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

// RegisterAccountHandler runs the registration flow: validate the email is
// free, hash the credential, and persist the account inside one transaction.
// Self-registration always lands on the client role; staff roles are
// assigned out of band.
type RegisterAccountHandler struct {
	repo     RepositoryManager
	activity ActivitySink
}

func NewRegisterAccountHandler(repo RepositoryManager) *RegisterAccountHandler {
	return &RegisterAccountHandler{
		repo:     repo,
		activity: noopActivitySink{},
	}
}

// WithActivitySink routes registration audit events into the given sink
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) (*Account, error) {
	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		email := NormalizeEmail(event.Email)

		if existing, err := h.repo.Accounts().GetByEmailTx(ctx, tx, email); err == nil && existing != nil {
			return ErrEmailTaken
		} else if err != nil && !goerrors.IsNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = email
		account.Phone = event.Phone
		account.FirstName = event.FirstName
		account.LastName = event.LastName
		account.Type = resolveAccountType(event.AccountType)
		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	_ = h.activity.Record(ctx, ActivityEvent{
		EventType:  ActivityEventAccountRegistered,
		AccountID:  account.ID.String(),
		Email:      account.Email,
		OccurredAt: time.Now(),
	})

	return account, nil
}

// resolveAccountType keeps self-registration on the client role. Values
// outside the known set fall back to client instead of failing the flow.
func resolveAccountType(requested string) AccountType {
	if role, ok := ParseAccountType(requested); ok {
		return role
	}
	return RoleClient
}

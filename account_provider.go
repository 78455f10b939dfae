package motors

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AccountRegisterer is the interface we need to handle new account registrations
type AccountRegisterer interface {
	RegisterAccount(ctx context.Context, account *Account) (*Account, error)
}

// AccountTracker is a store we can use to retrieve accounts
type AccountTracker interface {
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Account, error)
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

// AccountProvider verifies credentials against the account store. A missing
// account, a wrong password, and a corrupted stored hash all collapse into
// ErrInvalidCredentials on the way out.
type AccountProvider struct {
	store     AccountTracker
	Validator func(*Account) error
	logger    Logger
	activity  ActivitySink
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountTracker) *AccountProvider {
	return &AccountProvider{
		store:     store,
		logger:    defLogger{},
		Validator: defaultAccountValidator,
		activity:  noopActivitySink{},
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	p.logger = l
	return p
}

// WithActivitySink routes login audit events into the given sink
func (p *AccountProvider) WithActivitySink(sink ActivitySink) *AccountProvider {
	p.activity = normalizeActivitySink(sink)
	return p
}

func (p AccountProvider) record(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := p.activity.Record(ctx, event); err != nil {
		p.logger.Warn("activity sink record failed", "error", err)
	}
}

func (p *AccountProvider) validate(account *Account) error {
	if p.Validator != nil {
		return p.Validator(account)
	}
	return defaultAccountValidator(account)
}

// VerifyIdentity will find the account, compare the password, and return a
// sanitized identity.
func (p AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	normalized := NormalizeEmail(email)

	account, err := p.store.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.IsNotFound(err) {
			p.record(ctx, ActivityEvent{EventType: ActivityEventLoginFailure, Email: normalized})
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account == nil {
		p.record(ctx, ActivityEvent{EventType: ActivityEventLoginFailure, Email: normalized})
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		p.record(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			AccountID: account.ID.String(),
			Email:     normalized,
		})
		return nil, ErrInvalidCredentials
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	p.record(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: account.ID.String(),
		Email:     account.Email,
	})

	return identityFromAccount(account), nil
}

// FindIdentityByEmail loads an identity without checking credentials
func (p AccountProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if account == nil {
		return nil, ErrUnableToFindSession
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return identityFromAccount(account), nil
}

// FindIdentityByID loads the identity backing an established session
func (p AccountProvider) FindIdentityByID(ctx context.Context, id string) (Identity, error) {
	account, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if account == nil {
		return nil, ErrUnableToFindSession
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return identityFromAccount(account), nil
}

type accountIdentity struct {
	id    string
	name  string
	email string
	role  string
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) Name() string {
	return a.name
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Role() string {
	return a.role
}

var _ Identity = accountIdentity{}

// identityFromAccount projects the sanitized account into an Identity. The
// credential hash stays behind.
func identityFromAccount(account *Account) Identity {
	account.Sanitize()
	return accountIdentity{
		id:    account.ID.String(),
		name:  account.DisplayName(),
		email: account.Email,
		role:  string(account.Type),
	}
}

func defaultAccountValidator(a *Account) error {
	if a.Type.IsValid() {
		return nil
	}
	return errors.New("account has an unknown or invalid type", errors.CategoryAuth).
		WithTextCode("INVALID_ACCOUNT_TYPE").
		WithMetadata(map[string]any{"account_type": a.Type, "account_id": a.ID.String()})
}

var _ IdentityProvider = AccountProvider{}

package motors_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	motors "github.com/parkmoor/motors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassificationsRepo serves a fixed classification list
type stubClassificationsRepo struct {
	motors.Classifications
	records   []*motors.Classification
	err       error
	createErr error
	calls     int
}

func (s *stubClassificationsRepo) ListOrdered(ctx context.Context) ([]*motors.Classification, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

type stubNavRepoManager struct {
	motors.RepositoryManager
	classifications *stubClassificationsRepo
}

func (s *stubNavRepoManager) Classifications() motors.Classifications {
	return s.classifications
}

func newNavRepo(names ...string) *stubNavRepoManager {
	records := make([]*motors.Classification, 0, len(names))
	for _, name := range names {
		records = append(records, &motors.Classification{
			ID:   uuid.New(),
			Name: name,
		})
	}
	return &stubNavRepoManager{
		classifications: &stubClassificationsRepo{records: records},
	}
}

func navContext() *stubContext {
	ctx := newStubContext()
	ctx.On("Context").Return(context.Background())
	return ctx
}

func TestNavigationItems(t *testing.T) {
	t.Run("home leads and classifications follow", func(t *testing.T) {
		repo := newNavRepo("SUV", "Sedan")
		nav := motors.NewNavigation(repo).WithLogger(MockLogger{})

		items := nav.Items(navContext())
		require.Len(t, items, 3)
		assert.Equal(t, motors.NavItem{Label: "Home", Href: "/"}, items[0])
		assert.Equal(t, "SUV", items[1].Label)
		assert.Equal(t, "/inv/type/"+repo.classifications.records[0].ID.String(), items[1].Href)
	})

	t.Run("entries are cached between requests", func(t *testing.T) {
		repo := newNavRepo("Sedan")
		nav := motors.NewNavigation(repo).WithLogger(MockLogger{})

		nav.Items(navContext())
		nav.Items(navContext())
		assert.Equal(t, 1, repo.classifications.calls)
	})

	t.Run("invalidate forces a reload", func(t *testing.T) {
		repo := newNavRepo("Sedan")
		nav := motors.NewNavigation(repo).WithLogger(MockLogger{})

		nav.Items(navContext())
		nav.Invalidate()
		nav.Items(navContext())
		assert.Equal(t, 2, repo.classifications.calls)
	})

	t.Run("store failures degrade to the home link", func(t *testing.T) {
		repo := newNavRepo()
		repo.classifications.err = errors.New("connection refused", errors.CategoryInternal)
		nav := motors.NewNavigation(repo).WithLogger(MockLogger{})

		items := nav.Items(navContext())
		assert.Equal(t, []motors.NavItem{{Label: "Home", Href: "/"}}, items)
	})
}

func TestNavigationMiddleware(t *testing.T) {
	repo := newNavRepo("Truck")
	nav := motors.NewNavigation(repo).WithLogger(MockLogger{})

	ctx := navContext()
	handler := nav.Middleware()(func(c router.Context) error {
		items, ok := c.Locals("nav").([]motors.NavItem)
		require.True(t, ok)
		assert.Len(t, items, 2)
		return nil
	})

	require.NoError(t, handler(ctx))
}

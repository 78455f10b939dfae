package motors

import (
	"sync"
	"time"

	"github.com/goliatone/go-router"
)

// Navigation builds the site nav from the classification list. The list
// changes rarely, so entries are cached for a short window instead of hitting
// the store on every request.
type Navigation struct {
	repo   RepositoryManager
	logger Logger

	mu      sync.RWMutex
	cached  []NavItem
	expires time.Time
	ttl     time.Duration
}

// NavItem is a single nav bar entry
type NavItem struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

func NewNavigation(repo RepositoryManager) *Navigation {
	return &Navigation{
		repo:   repo,
		logger: defLogger{},
		ttl:    time.Minute,
	}
}

func (n *Navigation) WithLogger(logger Logger) *Navigation {
	n.logger = logger
	return n
}

// Invalidate drops the cache, e.g. after a classification is added
func (n *Navigation) Invalidate() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cached = nil
	n.expires = time.Time{}
}

// Items returns the nav entries, Home first
func (n *Navigation) Items(ctx router.Context) []NavItem {
	n.mu.RLock()
	if n.cached != nil && time.Now().Before(n.expires) {
		items := n.cached
		n.mu.RUnlock()
		return items
	}
	n.mu.RUnlock()

	classifications, err := n.repo.Classifications().ListOrdered(ctx.Context())
	if err != nil {
		n.logger.Error("navigation classifications error", "error", err)
		return []NavItem{{Label: "Home", Href: "/"}}
	}

	items := make([]NavItem, 0, len(classifications)+1)
	items = append(items, NavItem{Label: "Home", Href: "/"})
	for _, c := range classifications {
		items = append(items, NavItem{
			Label: c.Name,
			Href:  "/inv/type/" + c.ID.String(),
		})
	}

	n.mu.Lock()
	n.cached = items
	n.expires = time.Now().Add(n.ttl)
	n.mu.Unlock()

	return items
}

// Middleware publishes the nav entries into the request locals so every view
// can render the nav bar.
func (n *Navigation) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Locals("nav", n.Items(c))
			return next(c)
		}
	}
}

package motors

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/goliatone/go-router"
)

// Flash categories. Notice is informational (e.g. "Please log in."),
// success confirms a completed action, error reports a failed one.
const (
	FlashNotice  = "notice"
	FlashSuccess = "success"
	FlashError   = "error"
)

// DefaultFlashCookieName is the cookie that carries a pending flash entry
// across a redirect.
const DefaultFlashCookieName = "motors_flash"

// flash cookies only need to survive a single redirect hop
const flashCookieTTL = 5 * time.Minute

var flashPulledKey = "motors:flash:pulled"
var flashStagedKey = "motors:flash:staged"

// FlashEntry is a single one-shot message queued for the next rendered page
type FlashEntry struct {
	Category string             `json:"category"`
	Message  string             `json:"message"`
	Data     router.ViewContext `json:"data,omitempty"`
}

// FlashQueue moves one-shot messages across the redirect boundary using a
// cookie. The queue holds at most one entry; pushing again before the entry
// is pulled overwrites it, last write wins. Pull is read once: the first
// call in a request drains the entry and later calls come back empty.
type FlashQueue struct {
	CookieName string
	CookiePath string
	Secure     bool
	logger     Logger
}

// FlashOption configures a FlashQueue
type FlashOption func(*FlashQueue)

// WithFlashCookieName overrides the default cookie name
func WithFlashCookieName(name string) FlashOption {
	return func(q *FlashQueue) {
		q.CookieName = name
	}
}

// WithFlashSecure marks the flash cookie Secure, for production deployments
func WithFlashSecure(secure bool) FlashOption {
	return func(q *FlashQueue) {
		q.Secure = secure
	}
}

// WithFlashLogger sets the queue logger
func WithFlashLogger(logger Logger) FlashOption {
	return func(q *FlashQueue) {
		q.logger = logger
	}
}

// NewFlashQueue creates a cookie backed flash queue
func NewFlashQueue(opts ...FlashOption) *FlashQueue {
	q := &FlashQueue{
		CookieName: DefaultFlashCookieName,
		CookiePath: "/",
		logger:     defLogger{},
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Push queues an entry for the next page render. The entry is staged in the
// request locals as well, so a Pull later in the same request sees it
// without a cookie round trip.
func (q *FlashQueue) Push(c router.Context, category, message string, data ...router.ViewContext) {
	entry := FlashEntry{
		Category: category,
		Message:  message,
	}
	if len(data) > 0 {
		entry.Data = data[0]
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		q.logger.Error("flash queue could not encode entry", "error", err)
		return
	}

	c.Cookie(&router.Cookie{
		Name:     q.CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     q.CookiePath,
		Expires:  time.Now().Add(flashCookieTTL),
		HTTPOnly: true,
		Secure:   q.Secure,
		SameSite: "Lax",
	})

	c.Locals(flashStagedKey, entry)
	c.Locals(flashPulledKey, nil)
}

// PushNotice queues an informational message
func (q *FlashQueue) PushNotice(c router.Context, message string) {
	q.Push(c, FlashNotice, message)
}

// PushSuccess queues a success confirmation
func (q *FlashQueue) PushSuccess(c router.Context, message string) {
	q.Push(c, FlashSuccess, message)
}

// PushError queues an error message
func (q *FlashQueue) PushError(c router.Context, message string) {
	q.Push(c, FlashError, message)
}

// Pull drains the pending entry, if any. The backing cookie is expired so
// the entry never renders twice, and a request-local marker keeps repeat
// calls within the same request empty.
func (q *FlashQueue) Pull(c router.Context) (FlashEntry, bool) {
	if pulled, ok := c.Locals(flashPulledKey).(bool); ok && pulled {
		return FlashEntry{}, false
	}

	entry, ok := q.peek(c)
	if !ok {
		return FlashEntry{}, false
	}

	c.Locals(flashPulledKey, true)
	c.Locals(flashStagedKey, nil)
	q.expire(c)

	return entry, true
}

func (q *FlashQueue) peek(c router.Context) (FlashEntry, bool) {
	if staged, ok := c.Locals(flashStagedKey).(FlashEntry); ok {
		return staged, true
	}

	raw := c.Cookies(q.CookieName)
	if raw == "" {
		return FlashEntry{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		q.logger.Warn("flash queue dropping undecodable cookie", "error", err)
		q.expire(c)
		return FlashEntry{}, false
	}

	var entry FlashEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		q.logger.Warn("flash queue dropping malformed entry", "error", err)
		q.expire(c)
		return FlashEntry{}, false
	}

	return entry, true
}

func (q *FlashQueue) expire(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     q.CookieName,
		Value:    "",
		Path:     q.CookiePath,
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   q.Secure,
		SameSite: "Lax",
	})
}

// FlashMessages is middleware that drains the queue into the request locals
// so templates can render the pending message.
func (q *FlashQueue) FlashMessages() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if entry, ok := q.Pull(c); ok {
				c.Locals("flash", entry)
			}
			return next(c)
		}
	}
}

// FlashChain mirrors the fluent style of go-router's flash helpers so
// controllers can queue a message and respond in one expression.
type FlashChain struct {
	queue  *FlashQueue
	ctx    router.Context
	entry  FlashEntry
	status int
}

// WithNotice starts a chain carrying an informational message
func (q *FlashQueue) WithNotice(c router.Context, message string, data ...router.ViewContext) *FlashChain {
	return q.chain(c, FlashNotice, message, data...)
}

// WithSuccess starts a chain carrying a success message
func (q *FlashQueue) WithSuccess(c router.Context, message string, data ...router.ViewContext) *FlashChain {
	return q.chain(c, FlashSuccess, message, data...)
}

// WithError starts a chain carrying an error message
func (q *FlashQueue) WithError(c router.Context, message string, data ...router.ViewContext) *FlashChain {
	return q.chain(c, FlashError, message, data...)
}

func (q *FlashQueue) chain(c router.Context, category, message string, data ...router.ViewContext) *FlashChain {
	entry := FlashEntry{Category: category, Message: message}
	if len(data) > 0 {
		entry.Data = data[0]
	}
	return &FlashChain{queue: q, ctx: c, entry: entry}
}

// Status sets the response status used by Render
func (f *FlashChain) Status(code int) *FlashChain {
	f.status = code
	return f
}

// Redirect queues the entry and redirects, so the message renders on the
// destination page.
func (f *FlashChain) Redirect(path string, status ...int) error {
	f.queue.Push(f.ctx, f.entry.Category, f.entry.Message, f.entry.Data)
	code := router.StatusSeeOther
	if len(status) > 0 {
		code = status[0]
	}
	return f.ctx.Redirect(path, code)
}

// Render merges the entry into the view bind and renders immediately, no
// cookie round trip needed.
func (f *FlashChain) Render(name string, bind router.ViewContext, layouts ...string) error {
	if bind == nil {
		bind = router.ViewContext{}
	}
	bind["flash"] = f.entry
	for k, v := range f.entry.Data {
		if _, taken := bind[k]; !taken {
			bind[k] = v
		}
	}

	if f.status > 0 {
		return f.ctx.Status(f.status).Render(name, bind, layouts...)
	}
	return f.ctx.Render(name, bind, layouts...)
}

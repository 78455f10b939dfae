package motors_test

import (
	"context"

	"github.com/goliatone/go-router"
	motors "github.com/parkmoor/motors"
	"github.com/stretchr/testify/mock"
)

// MockAuthenticator implements motors.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) SessionFromToken(token string) (motors.Session, error) {
	args := m.Called(token)
	return args.Get(0).(motors.Session), args.Error(1)
}

func (m *MockAuthenticator) IdentityFromSession(ctx context.Context, session motors.Session) (motors.Identity, error) {
	args := m.Called(ctx, session)
	return args.Get(0).(motors.Identity), args.Error(1)
}

// MockLoginPayload implements motors.LoginPayload
type MockLoginPayload struct {
	Identifier string
	Password   string
}

func (m MockLoginPayload) GetIdentifier() string {
	return m.Identifier
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

// MockIdentity implements motors.Identity
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Role() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger swallows log output in tests
type MockLogger struct{}

func (m MockLogger) Debug(format string, args ...any) {}
func (m MockLogger) Info(format string, args ...any)  {}
func (m MockLogger) Warn(format string, args ...any)  {}
func (m MockLogger) Error(format string, args ...any) {}

// testConfig implements motors.Config
type testConfig struct {
	signingKey      string
	signingMethod   string
	contextKey      string
	tokenExpiration int
	issuer          string
	audience        []string
	rejectedKey     string
	rejectedDefault string
	loginRoute      string
	production      bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		signingKey:      "test-signing-secret",
		signingMethod:   "HS256",
		contextKey:      "session",
		tokenExpiration: 3600,
		issuer:          "motors",
		audience:        []string{"motors-web"},
		rejectedKey:     "rejected_route",
		rejectedDefault: "/",
		loginRoute:      "/login",
	}
}

func (c *testConfig) GetSigningKey() string           { return c.signingKey }
func (c *testConfig) GetSigningMethod() string        { return c.signingMethod }
func (c *testConfig) GetContextKey() string           { return c.contextKey }
func (c *testConfig) GetTokenExpiration() int         { return c.tokenExpiration }
func (c *testConfig) GetIssuer() string               { return c.issuer }
func (c *testConfig) GetAudience() []string           { return c.audience }
func (c *testConfig) GetRejectedRouteKey() string     { return c.rejectedKey }
func (c *testConfig) GetRejectedRouteDefault() string { return c.rejectedDefault }
func (c *testConfig) GetLoginRoute() string           { return c.loginRoute }
func (c *testConfig) IsProduction() bool              { return c.production }

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) any {
	args := m.Called(key, value)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

// stubContext is a stateful context for exercising cookie and locals flows
// end to end, where expectation-based mocks get unwieldy.
type stubContext struct {
	MockContext
	locals  map[any]any
	cookies map[string]string
	jar     []*router.Cookie
}

func newStubContext() *stubContext {
	return &stubContext{
		locals:  map[any]any{},
		cookies: map[string]string{},
	}
}

func (s *stubContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		s.locals[key] = value[0]
		return nil
	}
	return s.locals[key]
}

func (s *stubContext) Cookie(cookie *router.Cookie) {
	s.jar = append(s.jar, cookie)
	s.cookies[cookie.Name] = cookie.Value
}

func (s *stubContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := s.cookies[key]; ok && v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// lastCookie returns the most recent write for a cookie name
func (s *stubContext) lastCookie(name string) *router.Cookie {
	for i := len(s.jar) - 1; i >= 0; i-- {
		if s.jar[i].Name == name {
			return s.jar[i]
		}
	}
	return nil
}

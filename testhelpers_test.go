package auth

import (
	"time"
)

// testConfig satisfies Config with sane fixture defaults. Individual tests
// override fields before handing it to a constructor.
type testConfig struct {
	accessKey     string
	refreshKey    string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      []string
	leeway        time.Duration
	tokenLookup   string
	authScheme    string
	contextKey    string
	storeStrategy string
	storeTimeout  time.Duration
	passwordCost  int
	redisAddr     string
	redisPassword string
	redisDB       int
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessKey:     "test-access-signing-key",
		refreshKey:    "test-refresh-signing-key",
		accessTTL:     15 * time.Minute,
		refreshTTL:    24 * time.Hour,
		issuer:        "fintrackr-test",
		audience:      []string{"fintrackr-api"},
		leeway:        30 * time.Second,
		tokenLookup:   "header:Authorization",
		authScheme:    "Bearer",
		contextKey:    "user",
		storeStrategy: "durable",
		storeTimeout:  5 * time.Second,
		passwordCost:  4,
	}
}

func (c *testConfig) GetAccessSigningKey() string     { return c.accessKey }
func (c *testConfig) GetRefreshSigningKey() string    { return c.refreshKey }
func (c *testConfig) GetAccessTokenTTL() time.Duration  { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration { return c.refreshTTL }
func (c *testConfig) GetIssuer() string               { return c.issuer }
func (c *testConfig) GetAudience() []string           { return c.audience }
func (c *testConfig) GetClockLeeway() time.Duration   { return c.leeway }
func (c *testConfig) GetTokenLookup() string          { return c.tokenLookup }
func (c *testConfig) GetAuthScheme() string           { return c.authScheme }
func (c *testConfig) GetContextKey() string           { return c.contextKey }
func (c *testConfig) GetStoreStrategy() string        { return c.storeStrategy }
func (c *testConfig) GetStoreTimeout() time.Duration  { return c.storeTimeout }
func (c *testConfig) GetPasswordCost() int            { return c.passwordCost }
func (c *testConfig) GetRedisAddr() string            { return c.redisAddr }
func (c *testConfig) GetRedisPassword() string        { return c.redisPassword }
func (c *testConfig) GetRedisDB() int                 { return c.redisDB }

// testIdentity is a minimal Identity fixture.
type testIdentity struct {
	id       string
	username string
	email    string
}

func (t testIdentity) ID() string       { return t.id }
func (t testIdentity) Username() string { return t.username }
func (t testIdentity) Email() string    { return t.email }

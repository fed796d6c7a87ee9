package regtests

import (
	"context"
	"fmt"
	"net/http"

	"apollo.io/contract-tests/data"
	"apollo.io/contract-tests/dbprobe"
	"apollo.io/contract-tests/framework"
	"apollo.io/contract-tests/framework/opt"
	"apollo.io/contract-tests/framework/runner"
	"apollo.io/contract-tests/serviceclient"
	"apollo.io/contract-tests/servicedef"
)

// ClientFactory creates the HTTP client used by one test case. The logger receives that test
// case's debug output.
type ClientFactory func(logger framework.Logger) (*serviceclient.Client, error)

// StoreFactory creates the database probe used by one test case.
type StoreFactory func(logger framework.Logger) (dbprobe.Store, error)

// ServiceClients returns a ClientFactory for the service at baseURL.
func ServiceClients(baseURL string, options ...serviceclient.Option) ClientFactory {
	return func(logger framework.Logger) (*serviceclient.Client, error) {
		opts := append([]serviceclient.Option{}, options...)
		return serviceclient.New(baseURL, append(opts, serviceclient.WithLogger(logger))...)
	}
}

// PostgresStores returns a StoreFactory for the database at dsn.
func PostgresStores(dsn string, options ...dbprobe.Option) StoreFactory {
	return func(logger framework.Logger) (dbprobe.Store, error) {
		opts := append([]dbprobe.Option{}, options...)
		p, err := dbprobe.NewPostgresProbe(dsn, append(opts, dbprobe.WithLogger(logger))...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// TestContext is the application context made available to every registration test case.
type TestContext struct {
	clients  ClientFactory
	stores   StoreFactory
	fixtures data.Registrations
}

func NewTestContext(clients ClientFactory, stores StoreFactory, fixtures data.Registrations) TestContext {
	return TestContext{clients: clients, stores: stores, fixtures: fixtures}
}

// testEnv holds everything one test case uses. It is created fresh for each case.
type testEnv struct {
	t        *runner.T
	ctx      context.Context
	client   *serviceclient.Client
	store    dbprobe.Store
	fixtures data.Registrations
}

// newTestEnv sets up a test case and resets the users table. Any failure here fails the case.
func newTestEnv(t *runner.T) *testEnv {
	t.Helper()
	tc, ok := t.Context().(TestContext)
	if !ok {
		t.FailWithError(framework.Configuration("test context",
			fmt.Errorf("expected regtests.TestContext but got %T", t.Context())))
	}
	client, err := tc.clients(t.DebugLogger())
	if err != nil {
		t.FailWithError(err)
	}
	store, err := tc.stores(t.DebugLogger())
	if err != nil {
		t.FailWithError(err)
	}
	env := &testEnv{
		t:        t,
		ctx:      context.Background(),
		client:   client,
		store:    store,
		fixtures: tc.fixtures,
	}
	env.resetUsers()
	return env
}

func (e *testEnv) resetUsers() {
	e.t.Helper()
	if err := e.store.ResetUsers(e.ctx); err != nil {
		e.t.FailWithError(err)
	}
}

func (e *testEnv) fixture(name string) servicedef.RegisterUserParams {
	e.t.Helper()
	p, err := e.fixtures.Get(name)
	if err != nil {
		e.t.FailWithError(framework.Configuration("fixture", err))
	}
	return p
}

// register posts the named fixture to the registration endpoint.
func (e *testEnv) register(fixtureName string) *serviceclient.Response {
	e.t.Helper()
	params := e.fixture(fixtureName)
	e.t.Debug("registering %q (fixture %s)", params.Username, fixtureName)
	return e.post(serviceclient.JSONBody(params), nil)
}

// mustRegister is like register but fails the test immediately unless the service responds 201.
// It is used where the registration is a prerequisite rather than the behavior under test.
func (e *testEnv) mustRegister(fixtureName string) *serviceclient.Response {
	e.t.Helper()
	resp := e.register(fixtureName)
	requireCreated(e.t, resp)
	return resp
}

func (e *testEnv) post(body serviceclient.Body, header http.Header) *serviceclient.Response {
	e.t.Helper()
	resp, err := e.client.Post(e.ctx, servicedef.RegisterPath, body, header)
	if err != nil {
		e.t.FailWithError(err)
	}
	return resp
}

func (e *testEnv) fetchUser(username string) opt.Maybe[dbprobe.User] {
	e.t.Helper()
	user, err := e.store.FetchUserByUsername(e.ctx, username)
	if err != nil {
		e.t.FailWithError(err)
	}
	return user
}

// requireUser returns the stored row for username, failing the test if there is none.
func (e *testEnv) requireUser(username string) dbprobe.User {
	e.t.Helper()
	user, ok := e.fetchUser(username).Get()
	if !ok {
		e.t.Errorf("expected a row in users for username %q, but there was none", username)
		e.t.FailNow()
	}
	return user
}

func (e *testEnv) countUsers() int {
	e.t.Helper()
	n, err := e.store.CountUsers(e.ctx)
	if err != nil {
		e.t.FailWithError(err)
	}
	return n
}

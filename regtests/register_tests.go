package regtests

import (
	"net/http"

	"apollo.io/contract-tests/framework/runner"
	"apollo.io/contract-tests/serviceclient"
	"apollo.io/contract-tests/servicedef"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
)

// NewRegistry returns the registration test cases in the order they run.
func NewRegistry() *runner.Registry {
	return runner.NewRegistry().
		MustAdd("register returns created on valid request", doCreatedOnValidRequestTest).
		MustAdd("register stores user in database", doStoresUserTest).
		MustAdd("register stores hashed password not plaintext", doStoresHashedPasswordTest).
		MustAdd("register stores sixteen byte salt", doStoresSaltTest).
		MustAdd("register returns conflict on duplicate username", doConflictOnDuplicateTest).
		MustAdd("register does not overwrite existing user on duplicate", doNoOverwriteOnDuplicateTest).
		MustAdd("register returns bad request on malformed json", doBadRequestOnMalformedJSONTest).
		MustAdd("register returns json content type", doJSONContentTypeTest)
}

func doCreatedOnValidRequestTest(t *runner.T) {
	env := newTestEnv(t)
	resp := env.register("newuser")

	m.In(t).Assert(resp, m.AllOf(
		HasStatus(http.StatusCreated),
		HasSuccessMessage(servicedef.MessageUserCreated),
	))
}

func doStoresUserTest(t *runner.T) {
	env := newTestEnv(t)
	params := env.fixture("dbuser")
	env.mustRegister("dbuser")

	user := env.requireUser(params.Username)
	assert.Equal(t, params.Username, user.Username, "stored username")
	assert.Equal(t, params.Email, user.Email, "stored email")
}

func doStoresHashedPasswordTest(t *runner.T) {
	env := newTestEnv(t)
	params := env.fixture("hashuser")
	env.mustRegister("hashuser")

	user := env.requireUser(params.Username)
	assert.NotEqual(t, []byte(params.Password), user.PasswordHash, "password_hash must not be the plaintext password")
	assert.Len(t, user.PasswordHash, servicedef.PasswordHashSize, "password_hash length")
}

func doStoresSaltTest(t *runner.T) {
	env := newTestEnv(t)
	params := env.fixture("saltuser")
	env.mustRegister("saltuser")

	user := env.requireUser(params.Username)
	assert.Len(t, user.Salt, servicedef.SaltSize, "salt length")
}

func doConflictOnDuplicateTest(t *runner.T) {
	env := newTestEnv(t)
	env.mustRegister("duplicate-first")
	resp := env.register("duplicate-second")

	m.In(t).Assert(resp, m.AllOf(
		HasStatus(http.StatusConflict),
		HasErrorMessage(servicedef.MessageUsernameAlreadyExists),
	))
}

func doNoOverwriteOnDuplicateTest(t *runner.T) {
	env := newTestEnv(t)
	first := env.fixture("keeper-first")
	env.mustRegister("keeper-first")
	resp := env.register("keeper-second")
	t.Debug("duplicate registration returned %d", resp.StatusCode)

	user := env.requireUser(first.Username)
	assert.Equal(t, first.Email, user.Email, "stored email must still be the one from the first registration")
}

func doBadRequestOnMalformedJSONTest(t *runner.T) {
	env := newTestEnv(t)
	header := http.Header{}
	header.Set("Content-Type", servicedef.ContentTypeJSON)
	resp := env.post(serviceclient.RawBody([]byte("not valid json")), header)

	m.In(t).Assert(resp, HasStatus(http.StatusBadRequest))
	assert.Equal(t, 0, env.countUsers(), "number of rows in users after a malformed request")
}

func doJSONContentTypeTest(t *runner.T) {
	env := newTestEnv(t)
	resp := env.register("contenttypeuser")

	m.In(t).Assert(resp, HasStatus(http.StatusCreated))
	assert.Contains(t, resp.ContentType(), servicedef.ContentTypeJSON, "Content-Type header")
}

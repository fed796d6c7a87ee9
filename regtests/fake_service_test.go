package regtests

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"apollo.io/contract-tests/dbprobe"
	"apollo.io/contract-tests/framework"
	"apollo.io/contract-tests/framework/opt"
	"apollo.io/contract-tests/servicedef"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/argon2"
)

// memoryStore is an in-process users table shared by the fake service and the tests.
type memoryStore struct {
	users    map[string]dbprobe.User
	resetErr error
	lock     sync.Mutex
}

var _ dbprobe.Store = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]dbprobe.User)}
}

func (s *memoryStore) ResetUsers(context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.resetErr != nil {
		return framework.Infrastructure("reset users", s.resetErr)
	}
	s.users = make(map[string]dbprobe.User)
	return nil
}

func (s *memoryStore) FetchUserByUsername(_ context.Context, username string) (opt.Maybe[dbprobe.User], error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if u, ok := s.users[username]; ok {
		return opt.Some(u), nil
	}
	return opt.None[dbprobe.User](), nil
}

func (s *memoryStore) CountUsers(context.Context) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.users), nil
}

var errDuplicate = errors.New("duplicate key value violates unique constraint \"users_pkey\"")

func (s *memoryStore) insert(u dbprobe.User, overwrite bool) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.users[u.Username]; exists && !overwrite {
		return errDuplicate
	}
	s.users[u.Username] = u
	return nil
}

// fakeServiceBehavior selects deliberate contract violations.
type fakeServiceBehavior struct {
	plaintextPasswords  bool
	overwriteDuplicates bool
	textResponses       bool
	shortSalt           bool
	acceptMalformed     bool
}

// startFakeService runs an in-process registration service that stores users in store.
func startFakeService(t *testing.T, store *memoryStore, behavior fakeServiceBehavior) *httptest.Server {
	router := mux.NewRouter()
	router.HandleFunc(servicedef.RegisterPath, func(w http.ResponseWriter, r *http.Request) {
		var params servicedef.RegisterUserParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			if !behavior.acceptMalformed {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			params.Username = "malformed"
		}

		saltSize := servicedef.SaltSize
		if behavior.shortSalt {
			saltSize = 8
		}
		salt := make([]byte, saltSize)
		_, _ = rand.Read(salt)
		hash := argon2.IDKey([]byte(params.Password), salt, 1, 8*1024, 1, servicedef.PasswordHashSize)
		if behavior.plaintextPasswords {
			hash = []byte(params.Password)
		}

		err := store.insert(dbprobe.User{
			Username:     params.Username,
			Email:        params.Email,
			PasswordHash: hash,
			Salt:         salt,
		}, behavior.overwriteDuplicates)

		contentType := servicedef.ContentTypeJSON
		if behavior.textResponses {
			contentType = "text/plain"
		}
		w.Header().Set("Content-Type", contentType)
		if err != nil {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(servicedef.StatusResponse{Error: servicedef.MessageUsernameAlreadyExists})
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(servicedef.StatusResponse{Success: servicedef.MessageUserCreated})
	}).Methods(http.MethodPost)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

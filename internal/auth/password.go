package auth

import (
	"errors"
	"sync"

	"github.com/agjmills/docchat/internal/users"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown username or a wrong password.
// The two cases are deliberately indistinguishable to callers.
var ErrInvalidCredentials = errors.New("invalid credentials")

// dummyHashes caches, per bcrypt cost, the hash compared against when the
// username does not exist. It must share the cost of real hashes for unknown
// and known accounts to take the same time to reject.
var dummyHashes sync.Map

func dummyHash(cost int) []byte {
	if h, ok := dummyHashes.Load(cost); ok {
		return h.([]byte)
	}
	h, err := bcrypt.GenerateFromPassword([]byte("docchat-timing-equaliser"), cost)
	if err != nil {
		h, _ = bcrypt.GenerateFromPassword([]byte("docchat-timing-equaliser"), bcrypt.DefaultCost)
	}
	actual, _ := dummyHashes.LoadOrStore(cost, h)
	return actual.([]byte)
}

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. bcrypt compares in
// constant time.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// UserLookup is the subset of the account store needed to authenticate.
type UserLookup interface {
	FindByUsername(username string) (*users.User, error)
	FindByID(id int) (*users.User, error)
}

// Authenticate resolves username and checks password against the stored hash.
// cost is the bcrypt cost stored hashes were made with.
func Authenticate(store UserLookup, username, password string, cost int) (*users.User, error) {
	user, err := store.FindByUsername(username)
	if err != nil {
		bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

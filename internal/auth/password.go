package auth

import "golang.org/x/crypto/bcrypt"

// ErrPasswordTooLong is returned by Hash for passwords over 72 bytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) bool
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h BcryptHasher) Compare(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

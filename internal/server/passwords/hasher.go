// Package passwords hashes and verifies account passwords.
package passwords

import (
	"fmt"
	"strings"
)

// Hasher produces self-describing password hashes.
type Hasher interface {
	Hash(password string) (string, error)
	// Compare reports whether password matches hash. A hash in a format the
	// hasher cannot read is an error.
	Compare(hash, password string) (bool, error)
}

// New returns a hasher that writes hashes with the named algorithm and
// verifies hashes written by any supported algorithm, so switching
// algorithms does not lock existing accounts out.
func New(name string) (Hasher, error) {
	b := NewBcrypt(DefaultBcryptCost)
	a := NewArgon2id(DefaultArgon2Params)
	switch name {
	case "bcrypt":
		return &dispatch{primary: b, bcrypt: b, argon2: a}, nil
	case "argon2id":
		return &dispatch{primary: a, bcrypt: b, argon2: a}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

type dispatch struct {
	primary Hasher
	bcrypt  *Bcrypt
	argon2  *Argon2id
}

func (d *dispatch) Hash(password string) (string, error) {
	return d.primary.Hash(password)
}

func (d *dispatch) Compare(hash, password string) (bool, error) {
	if strings.HasPrefix(hash, "$"+argon2ID+"$") {
		return d.argon2.Compare(hash, password)
	}
	return d.bcrypt.Compare(hash, password)
}

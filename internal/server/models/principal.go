package models

import "slices"

// Principal identifies the caller of an authenticated request.
type Principal struct {
	Email       string   `json:"email"`
	Authorities []string `json:"authorities"`
}

func (p *Principal) HasAuthority(name string) bool {
	return slices.Contains(p.Authorities, name)
}

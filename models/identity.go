package models

// Identity is the authenticated caller: the email claim plus every claim the
// issuer embedded.
type Identity struct {
	Email  string
	Claims map[string]any
}

package session

// Store is the authentication session port. The real token lifecycle (login,
// refresh, secure storage) belongs to an external collaborator; the engine
// only asks whether a bearer token is present.
type Store interface {
	// Token returns the current bearer token. ok is false when no
	// authenticated session exists.
	Token() (token string, ok bool)
	SetToken(token string)
	Clear()
}

package ports

// TokenGenerator produces the opaque values stores key session records by
type TokenGenerator interface {
	NewToken() (string, error)
	NewID() string
}

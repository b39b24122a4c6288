package constants

// ContextKeyUserID is where middleware stores the authenticated user's ID,
// both in the session and in the Gin context.
const ContextKeyUserID = "user_id"

// Pagination bounds
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

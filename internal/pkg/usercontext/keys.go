package usercontext

// Shared Locals keys and headers used across controllers and middlewares
const (
	KeyUserContext = "USER_CONTEXT"
	KeyUserID      = "user_id"
	KeyIsAdmin     = "isAdmin"

	HeaderUserID   = "X-User-ID"
	HeaderAdminKey = "X-Admin-Key"
)

package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated principal of a request and the
// organization it acts on. Role is the membership role in that organization.
type UserContext struct {
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	IsLoggedIn     bool   `json:"is_logged_in"`
	IsAdmin        bool   `json:"is_admin"`
	OrganizationID uint   `json:"organization_id"`
	Role           string `json:"role"`
	AuthMethod     string `json:"auth_method"`
}

// Set stores the context on the request.
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// GetUserID returns the current user's ID, or 0 if not logged in
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}

// GetOrganizationID returns the organization the request acts on, or 0.
func GetOrganizationID(c *fiber.Ctx) uint {
	return GetUserContext(c).OrganizationID
}

// CanManage reports whether the member role may administer the organization.
func (uc UserContext) CanManage() bool {
	return uc.Role == "owner" || uc.Role == "admin"
}

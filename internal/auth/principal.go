package auth

import "github.com/geocoder89/pricetracker/internal/domain/user"

// Principal is the per-request, read-only view of an authenticated user.
// It is built fresh by the authentication middleware and never cached.
type Principal struct {
	externalID    string
	email         string
	username      string
	passwordHash  string
	role          user.Role
	enabled       bool
	authenticated bool

	// RemoteAddr is recorded for audit logging.
	RemoteAddr string
}

func NewPrincipal(u user.User, remoteAddr string) *Principal {
	return &Principal{
		externalID:    u.ExternalID,
		email:         u.Email,
		username:      u.Username,
		passwordHash:  u.PasswordHash,
		role:          u.Role,
		enabled:       u.IsActive(),
		authenticated: true,
		RemoteAddr:    remoteAddr,
	}
}

// Identifier is the external id; self-access checks compare against it.
func (p *Principal) Identifier() string { return p.externalID }

func (p *Principal) Email() string    { return p.email }
func (p *Principal) Username() string { return p.username }
func (p *Principal) Role() user.Role  { return p.role }
func (p *Principal) Enabled() bool    { return p.enabled }

// PasswordHash is for in-process comparison only. Principal has no JSON form.
func (p *Principal) PasswordHash() string { return p.passwordHash }

func (p *Principal) Authorities() []string {
	return []string{p.role.Authority()}
}

func (p *Principal) IsAuthenticated() bool {
	return p != nil && p.authenticated
}

func (p *Principal) HasRole(r user.Role) bool {
	return p.IsAuthenticated() && p.role == r
}

// IsSelf reports whether p is an authenticated principal acting on its own
// resource.
func IsSelf(p *Principal, externalID string) bool {
	if !p.IsAuthenticated() {
		return false
	}

	return p.externalID == externalID
}

// IsSelfOrAdmin is the ownership rule used by the user and preference routes.
func IsSelfOrAdmin(p *Principal, externalID string) bool {
	return IsSelf(p, externalID) || p.HasRole(user.RoleAdmin)
}

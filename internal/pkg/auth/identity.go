package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/app/repository"
)

// ExternalIdentity is a user asserted by an OAuth provider or bearer token
type ExternalIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
	AvatarURL      string
	AccessToken    string
	RefreshToken   string
	ExpiresAt      time.Time
}

// IdentityService links external identities to users and makes sure every
// user has an organization to work in.
type IdentityService struct {
	users repository.UserRepository
	orgs  repository.OrganizationRepository
}

// NewIdentityService creates the service.
func NewIdentityService(users repository.UserRepository, orgs repository.OrganizationRepository) *IdentityService {
	return &IdentityService{users: users, orgs: orgs}
}

// NewIdentityServiceFromFactory wires the service from the global repositories.
func NewIdentityServiceFromFactory() *IdentityService {
	f := repository.GetGlobalFactory()
	return NewIdentityService(f.GetUserRepository(), f.GetOrganizationRepository())
}

// Resolve returns the user linked to id, linking by email or creating a new
// user (with a personal free organization) on first sight.
func (s *IdentityService) Resolve(id ExternalIdentity) (*models.User, error) {
	user, err := s.users.GetByProvider(id.Provider, id.ProviderUserID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.findOrCreateUser(id)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("lookup %s identity: %w", id.Provider, err)
	}

	if !user.IsActive() {
		return nil, ErrInactiveUser
	}

	var exp *time.Time
	if !id.ExpiresAt.IsZero() {
		t := id.ExpiresAt
		exp = &t
	}
	if err := s.users.LinkProvider(&models.ProviderAccount{
		UserID:         user.ID,
		Provider:       id.Provider,
		ProviderUserID: id.ProviderUserID,
		Email:          id.Email,
		AccessToken:    id.AccessToken,
		RefreshToken:   id.RefreshToken,
		ExpiresAt:      exp,
		LastLoginAt:    time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("link %s identity: %w", id.Provider, err)
	}

	if _, err := s.EnsureOrganization(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ErrInactiveUser is returned for disabled accounts.
var ErrInactiveUser = errors.New("user is not active")

func (s *IdentityService) findOrCreateUser(id ExternalIdentity) (*models.User, error) {
	if id.Email != "" {
		user, err := s.users.GetByEmail(id.Email)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	email := strings.ToLower(strings.TrimSpace(id.Email))
	if email == "" {
		email = fmt.Sprintf("%s_%s@%s.oauth.local", id.Provider, id.ProviderUserID, id.Provider)
	}
	user, err := models.NewUser(id.Name, email, id.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("new user: %w", err)
	}
	if err := s.users.Create(user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Infof("[Auth] Created user %d from %s identity", user.ID, id.Provider)
	return user, nil
}

// EnsureOrganization returns the user's active organization, creating a
// personal one on first login.
func (s *IdentityService) EnsureOrganization(user *models.User) (uint, error) {
	settings, err := s.users.GetSettings(user.ID)
	if err != nil {
		return 0, err
	}
	if settings.ActiveOrganizationID != 0 {
		if _, err := s.orgs.GetMember(settings.ActiveOrganizationID, user.ID); err == nil {
			return settings.ActiveOrganizationID, nil
		}
	}

	orgs, err := s.orgs.ListForUser(user.ID)
	if err != nil {
		return 0, err
	}
	if len(orgs) > 0 {
		settings.ActiveOrganizationID = orgs[0].ID
		return orgs[0].ID, s.users.SaveSettings(settings)
	}

	org := &models.Organization{Name: user.Name + "'s Organization"}
	if err := s.orgs.CreateWithOwner(org, user.ID); err != nil {
		return 0, fmt.Errorf("create personal organization: %w", err)
	}
	log.Infof("[Auth] Created personal organization %d for user %d", org.ID, user.ID)
	return org.ID, nil
}

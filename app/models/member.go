package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	MemberRoleOwner  = "owner"
	MemberRoleAdmin  = "admin"
	MemberRoleMember = "member"
)

const (
	InvitationStatusPending  = "pending"
	InvitationStatusAccepted = "accepted"
	InvitationStatusRevoked  = "revoked"
	InvitationStatusExpired  = "expired"
)

// InvitationTTL is how long an invitation link stays valid.
const InvitationTTL = 7 * 24 * time.Hour

// OrganizationMember links a user to an organization with a role.
type OrganizationMember struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	OrganizationID uint         `gorm:"not null;index:ux_org_members_org_user,unique,priority:1" json:"organization_id"`
	UserID         uint         `gorm:"not null;index:ux_org_members_org_user,unique,priority:2;index" json:"user_id"`
	User           User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Organization   Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Role           string       `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanManage reports whether the member may administer the organization.
func (m *OrganizationMember) CanManage() bool {
	return m.Role == MemberRoleOwner || m.Role == MemberRoleAdmin
}

// Invitation is a pending seat. Pending invitations count against maxUsers.
type Invitation struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	Email          string     `gorm:"type:varchar(200);not null;index" json:"email"`
	Role           string     `gorm:"type:varchar(20);not null;default:'member'" json:"role"`
	TokenHash      string     `gorm:"type:char(64);uniqueIndex" json:"-"`
	Status         string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	InvitedByID    uint       `json:"invited_by_id"`
	ExpiresAt      time.Time  `json:"expires_at"`
	AcceptedAt     *time.Time `gorm:"type:timestamp;default:null" json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IssueToken generates the raw invitation token and stores its hash.
func (i *Invitation) IssueToken(now time.Time) (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	raw := hex.EncodeToString(b)
	i.TokenHash = HashInvitationToken(raw)
	i.ExpiresAt = now.Add(InvitationTTL)
	return raw, nil
}

// IsUsable reports whether the invitation can still be accepted.
func (i *Invitation) IsUsable(now time.Time) bool {
	return i.Status == InvitationStatusPending && now.Before(i.ExpiresAt)
}

// HashInvitationToken returns the SHA-256 hex digest of a raw token.
func HashInvitationToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

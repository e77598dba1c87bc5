package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/env"
	"github.com/assettracer/assettracer/internal/pkg/jobqueue"
	"github.com/assettracer/assettracer/internal/pkg/mail"
	"github.com/assettracer/assettracer/internal/pkg/response"
	"github.com/assettracer/assettracer/internal/pkg/session"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

type invitationRequest struct {
	Email string `json:"email" validate:"required,email,max=200"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

func invitationURL(raw string) string {
	return env.PublicURL("/invitations/" + raw)
}

// HandleListTeam returns the members and the pending invitations, both of
// which occupy maxUsers seats.
func HandleListTeam(c *fiber.Ctx) error {
	r := repos()
	members, err := r.Organization.ListMembers(orgID(c))
	if err != nil {
		return apiError(c, err)
	}
	invitations, err := r.Organization.ListPendingInvitations(orgID(c), now())
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(fiber.Map{
		"members":     members,
		"invitations": invitations,
		"seats_used":  len(members) + len(invitations),
	})
}

// HandleCreateInvitation invites a user by email. The invitation takes a
// seat under the maxUsers quota until it is accepted, revoked or expires.
func HandleCreateInvitation(c *fiber.Ctx) error {
	var req invitationRequest
	if err := bindJSON(c, &req); err != nil {
		return apiError(c, err)
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := req.Role
	if role == "" {
		role = models.MemberRoleMember
	}
	uc := usercontext.GetUserContext(c)
	r := repos()

	org, err := r.Organization.GetByID(uc.OrganizationID)
	if err != nil {
		return apiError(c, err)
	}
	if existing, err := r.User.GetByEmail(email); err == nil {
		if _, err := r.Organization.GetMember(org.ID, existing.ID); err == nil {
			return response.Error(c, fiber.StatusConflict, "already_member", "user is already a member")
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apiError(c, err)
	}

	inv := &models.Invitation{
		OrganizationID: org.ID,
		Email:          email,
		Role:           role,
		InvitedByID:    uc.UserID,
	}
	raw, err := inv.IssueToken(now())
	if err != nil {
		return apiError(c, err)
	}
	if err := r.Organization.CreateInvitation(c.UserContext(), inv); err != nil {
		return apiError(c, err)
	}

	acceptURL := invitationURL(raw)
	msg, err := mail.InvitationMessage(org, inv, uc.Username, acceptURL)
	if err == nil {
		_, err = jobqueue.EnqueueEmail(org.ID, mail.TemplateInvitation, msg)
	}
	if err != nil {
		log.Errorf("[Team] Failed to queue invitation email for %s: %v", email, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"invitation": inv,
		"accept_url": acceptURL,
	})
}

// HandleRevokeInvitation frees the seat of a pending invitation.
func HandleRevokeInvitation(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	if err := repos().Organization.RevokeInvitation(orgID(c), id); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleAcceptInvitation joins the logged-in user to the inviting
// organization. The invitation must have been addressed to the user's
// email. Session users switch to the new organization.
func HandleAcceptInvitation(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	r := repos()

	inv, err := r.Organization.GetInvitationByToken(c.Params("token"))
	if err != nil {
		return apiError(c, err)
	}
	if !strings.EqualFold(inv.Email, uc.Email) {
		return response.Error(c, fiber.StatusForbidden, "forbidden", "invitation was sent to a different email address")
	}
	member, err := r.Organization.AcceptInvitation(inv, uc.UserID, now())
	if err != nil {
		return apiError(c, err)
	}

	if uc.AuthMethod == usercontext.AuthSession {
		if err := session.SetSessionValue(c, session.KeyOrganizationID, inv.OrganizationID); err != nil {
			log.Warnf("[Team] Failed to switch session organization: %v", err)
		}
	}
	log.Infof("[Team] User %d joined organization %d as %s", uc.UserID, inv.OrganizationID, member.Role)
	return c.JSON(member)
}

// HandleRemoveMember removes a membership. Only owners remove owners, and
// the last owner stays.
func HandleRemoveMember(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return apiError(c, err)
	}
	actor := usercontext.GetUserContext(c)
	if err := repos().Organization.RemoveMember(orgID(c), id, actor.Role); err != nil {
		return apiError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

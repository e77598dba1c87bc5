package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettracer/assettracer/app/models"
	"github.com/assettracer/assettracer/internal/pkg/usercontext"
)

func registerTeamRoutes(app *fiber.App) {
	app.Get("/team", HandleListTeam)
	app.Post("/team/invitations", HandleCreateInvitation)
	app.Delete("/team/invitations/:id", HandleRevokeInvitation)
}

func TestFreeTierHasNoSpareSeat(t *testing.T) {
	env := newTestEnv(t, "free")
	registerTeamRoutes(env.app)

	resp, body := env.do(t, fiber.MethodPost, "/team/invitations", fiber.Map{"email": "crew@example.com"})
	assert.Equal(t, fiber.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "maxUsers", body["resource"])
	assert.EqualValues(t, 1, body["limit"])
	assert.EqualValues(t, 1, body["usage"])
}

func TestInvitationsOccupySeats(t *testing.T) {
	env := newTestEnv(t, "pro")
	registerTeamRoutes(env.app)

	resp, body := env.do(t, fiber.MethodPost, "/team/invitations", fiber.Map{"email": " Crew@Example.com ", "role": "admin"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	invitation := body["invitation"].(map[string]interface{})
	assert.Equal(t, "crew@example.com", invitation["email"])
	assert.Equal(t, models.MemberRoleAdmin, invitation["role"])
	assert.NotContains(t, invitation, "token_hash")
	assert.Contains(t, body["accept_url"], "/invitations/")

	resp, body = env.do(t, fiber.MethodGet, "/team", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, body["seats_used"])

	resp, body = env.do(t, fiber.MethodPost, "/team/invitations", fiber.Map{"email": env.user.Email})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_member", body["error"])

	resp, _ = env.do(t, fiber.MethodDelete, "/team/invitations/"+jsonID(invitation["id"]), nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	_, body = env.do(t, fiber.MethodGet, "/team", nil)
	assert.EqualValues(t, 1, body["seats_used"])
}

func TestAcceptInvitation(t *testing.T) {
	env := newTestEnv(t, "pro")
	registerTeamRoutes(env.app)

	_, body := env.do(t, fiber.MethodPost, "/team/invitations", fiber.Map{"email": "crew@example.com"})
	acceptURL := body["accept_url"].(string)
	token := acceptURL[strings.LastIndex(acceptURL, "/")+1:]

	invitee := &models.User{Name: "Crew", Email: "crew@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	require.NoError(t, env.db.Create(invitee).Error)
	stranger := &models.User{Name: "Stranger", Email: "stranger@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	require.NoError(t, env.db.Create(stranger).Error)

	accept := func(u *models.User) int {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			usercontext.Set(c, usercontext.UserContext{
				UserID:     u.ID,
				Username:   u.Name,
				Email:      u.Email,
				IsLoggedIn: true,
				AuthMethod: usercontext.AuthAPIKey,
			})
			return c.Next()
		})
		app.Post("/team/invitations/:token/accept", HandleAcceptInvitation)
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/team/invitations/"+token+"/accept", bytes.NewReader(nil)), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusForbidden, accept(stranger))
	assert.Equal(t, fiber.StatusOK, accept(invitee))
	assert.Equal(t, fiber.StatusGone, accept(invitee))

	var member models.OrganizationMember
	require.NoError(t, env.db.Where("organization_id = ? AND user_id = ?", env.org.ID, invitee.ID).First(&member).Error)
	assert.Equal(t, models.MemberRoleMember, member.Role)

	_, body = env.do(t, fiber.MethodGet, "/team", nil)
	assert.EqualValues(t, 2, body["seats_used"])
}

func TestAdminCannotRemoveOwner(t *testing.T) {
	env := newTestEnv(t, "business")
	coOwner := &models.User{Name: "Co", Email: "co@example.com", Role: models.ROLE_USER, Status: models.STATUS_ACTIVE}
	require.NoError(t, env.db.Create(coOwner).Error)
	ownerSeat := &models.OrganizationMember{OrganizationID: env.org.ID, UserID: coOwner.ID, Role: models.MemberRoleOwner}
	require.NoError(t, env.db.Create(ownerSeat).Error)

	removeAs := func(role string) int {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			usercontext.Set(c, usercontext.UserContext{
				UserID:         env.user.ID,
				IsLoggedIn:     true,
				OrganizationID: env.org.ID,
				Role:           role,
				AuthMethod:     usercontext.AuthSession,
			})
			return c.Next()
		})
		app.Delete("/team/members/:id", HandleRemoveMember)
		resp, err := app.Test(httptest.NewRequest(fiber.MethodDelete, "/team/members/"+jsonID(ownerSeat.ID), nil), -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusForbidden, removeAs(models.MemberRoleAdmin))
	assert.Equal(t, fiber.StatusNoContent, removeAs(models.MemberRoleOwner))
}

func jsonID(v interface{}) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

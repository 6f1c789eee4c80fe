package users_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/testutils"
)

func TestListUsers(t *testing.T) {
	env := testutils.Setup(t)
	admin := env.CreateUser(t, "Admin", "admin@example.com", "password123", models.RoleAdmin)
	env.CreateUser(t, "Pat", "pat@example.com", "password123", models.RolePatient)
	env.CreateUser(t, "Doc", "doc@example.com", "password123", models.RoleDoctor)
	adminToken := env.AccessTokenFor(t, admin.ID)

	t.Run("admin lists everyone", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/users/", nil, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		users := result.Data.([]interface{})
		assert.Len(t, users, 3)

		// Password hashes never leave the API.
		for _, u := range users {
			_, present := u.(map[string]interface{})["password"]
			assert.False(t, present)
		}
	})

	t.Run("filter by role", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/users/?role=doctor", nil, adminToken)
		require.NoError(t, err)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		users := result.Data.([]interface{})
		require.Len(t, users, 1)
		assert.Equal(t, "doc@example.com", users[0].(map[string]interface{})["email"])
	})

	t.Run("unknown role filter is rejected", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/users/?role=superuser", nil, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("non-admins are refused", func(t *testing.T) {
		var patient models.User
		require.NoError(t, env.DB.Where("email = ?", "pat@example.com").First(&patient).Error)

		resp, err := testutils.MakeRequest(env.App, "GET", "/users/", nil, env.AccessTokenFor(t, patient.ID))
		require.NoError(t, err)
		assert.Equal(t, 403, resp.Code)
		testutils.AssertError(t, resp, "FORBIDDEN")
	})
}

func TestUpdateUserRole(t *testing.T) {
	env := testutils.Setup(t)
	admin := env.CreateUser(t, "Admin", "admin@example.com", "password123", models.RoleAdmin)
	target := env.CreateUser(t, "Pat", "pat@example.com", "password123", models.RolePatient)
	adminToken := env.AccessTokenFor(t, admin.ID)

	t.Run("promote patient to doctor", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PUT",
			"/users/"+strconv.Itoa(int(target.ID))+"/role",
			map[string]string{"role": models.RoleDoctor}, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var fresh models.User
		require.NoError(t, env.DB.First(&fresh, target.ID).Error)
		assert.Equal(t, models.RoleDoctor, fresh.Role)
	})

	t.Run("role outside the set is rejected", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PUT",
			"/users/"+strconv.Itoa(int(target.ID))+"/role",
			map[string]string{"role": "root"}, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("admin cannot change their own role", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "PUT",
			"/users/"+strconv.Itoa(int(admin.ID))+"/role",
			map[string]string{"role": models.RolePatient}, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	env := testutils.Setup(t)
	admin := env.CreateUser(t, "Admin", "admin@example.com", "password123", models.RoleAdmin)
	target := env.CreateUser(t, "Pat", "pat@example.com", "password123", models.RolePatient)
	adminToken := env.AccessTokenFor(t, admin.ID)

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "DELETE",
			"/users/"+strconv.Itoa(int(admin.ID)), nil, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("delete removes the account", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "DELETE",
			"/users/"+strconv.Itoa(int(target.ID)), nil, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 204, resp.Code)

		err = env.DB.First(&models.User{}, target.ID).Error
		assert.Error(t, err)
	})

	t.Run("deleting twice is 404", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "DELETE",
			"/users/"+strconv.Itoa(int(target.ID)), nil, adminToken)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.Code)
	})
}

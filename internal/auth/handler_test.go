package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/testutils"
)

func TestRegisterHandler(t *testing.T) {
	env := testutils.Setup(t)

	t.Run("Success - Register new patient", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Alice Smith",
			"email":    "alice@example.com",
			"password": "password123",
			"role":     "patient",
		}

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 201, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.True(t, result.Success)
		assert.Equal(t, "Registration successful", result.Message)

		data := result.Data.(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])
		assert.Equal(t, float64(900), data["expires_in"])

		user := data["user"].(map[string]interface{})
		assert.Equal(t, "alice@example.com", user["email"])
		assert.Equal(t, "patient", user["role"])
	})

	t.Run("Error - Missing required fields", func(t *testing.T) {
		body := map[string]interface{}{
			"email": "missing@example.com",
		}

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Admin role not self-assignable", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Eve",
			"email":    "eve@example.com",
			"password": "password123",
			"role":     "admin",
		}

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)

		testutils.AssertError(t, resp, "VALIDATION_ERROR")
	})

	t.Run("Error - Duplicate email", func(t *testing.T) {
		body := map[string]interface{}{
			"name":     "Alice Clone",
			"email":    "alice@example.com",
			"password": "password123",
			"role":     "patient",
		}

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/register", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 409, resp.Code)

		testutils.AssertError(t, resp, "CONFLICT")
	})
}

func TestLoginHandler(t *testing.T) {
	env := testutils.Setup(t)
	env.CreateUser(t, "Test User", "test@example.com", "password123", models.RolePatient)

	t.Run("Success - Valid credentials", func(t *testing.T) {
		body := map[string]interface{}{
			"email":    "test@example.com",
			"password": "password123",
		}

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/login", body, "")
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		assert.True(t, result.Success)

		data := result.Data.(map[string]interface{})
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])
	})

	t.Run("Error - Wrong password and unknown email are indistinguishable", func(t *testing.T) {
		wrongPassword := map[string]interface{}{
			"email":    "test@example.com",
			"password": "wrongpassword",
		}
		unknownEmail := map[string]interface{}{
			"email":    "nobody@example.com",
			"password": "password123",
		}

		resp1, err := testutils.MakeRequest(env.App, "POST", "/auth/login", wrongPassword, "")
		assert.NoError(t, err)
		resp2, err := testutils.MakeRequest(env.App, "POST", "/auth/login", unknownEmail, "")
		assert.NoError(t, err)

		assert.Equal(t, 401, resp1.Code)
		assert.Equal(t, 401, resp2.Code)
		assert.Equal(t, resp1.Body.String(), resp2.Body.String())
	})
}

func TestRefreshHandler(t *testing.T) {
	t.Run("Success - End to end rotation", func(t *testing.T) {
		env := testutils.Setup(t)

		registerBody := map[string]interface{}{
			"name":     "Alice",
			"email":    "a@x.com",
			"password": "password123",
			"role":     "patient",
		}
		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/register", registerBody, "")
		require.NoError(t, err)
		require.Equal(t, 201, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		original := result.Data.(map[string]interface{})["refresh_token"].(string)

		// First redemption succeeds and returns a different token.
		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/refresh",
			map[string]interface{}{"refresh_token": original}, "")
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)

		var rotated testutils.StandardResponse
		testutils.ParseResponse(t, resp, &rotated)
		next := rotated.Data.(map[string]interface{})["refresh_token"].(string)
		assert.NotEqual(t, original, next)

		// Replaying the original fails.
		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/refresh",
			map[string]interface{}{"refresh_token": original}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
		testutils.AssertError(t, resp, "UNAUTHORIZED")

		// Reuse is recorded for forensics even though the response is generic.
		var events []models.AuditEvent
		assert.NoError(t, env.DB.Where("action = ?", "token_reuse_detected").Find(&events).Error)
		assert.Len(t, events, 1)

		// The rotated token still works.
		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/refresh",
			map[string]interface{}{"refresh_token": next}, "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)
	})

	t.Run("Error - Expired session rejected without reuse event", func(t *testing.T) {
		env := testutils.Setup(t)
		user := env.CreateUser(t, "Bob", "bob@example.com", "password123", models.RolePatient)

		pair, err := env.Svc.IssuePair(user.ID)
		require.NoError(t, err)

		err = env.DB.Model(&models.RefreshSession{}).
			Where("user_id = ?", user.ID).
			Update("expires_at", time.Now().Add(-time.Hour)).Error
		require.NoError(t, err)

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/refresh",
			map[string]interface{}{"refresh_token": pair.RefreshToken}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, resp.Code)

		var count int64
		env.DB.Model(&models.AuditEvent{}).Where("action = ?", "token_reuse_detected").Count(&count)
		assert.Zero(t, count)
	})

	t.Run("Error - Missing refresh token", func(t *testing.T) {
		env := testutils.Setup(t)

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/refresh",
			map[string]interface{}{}, "")
		assert.NoError(t, err)
		assert.Equal(t, 422, resp.Code)
	})
}

func TestLogoutHandler(t *testing.T) {
	env := testutils.Setup(t)
	user := env.CreateUser(t, "Carol", "carol@example.com", "password123", models.RolePatient)

	pair, err := env.Svc.IssuePair(user.ID)
	require.NoError(t, err)

	resp, err := testutils.MakeRequest(env.App, "POST", "/auth/logout",
		map[string]interface{}{"refresh_token": pair.RefreshToken}, "")
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.Code)

	// The session is gone; refreshing with it fails.
	resp, err = testutils.MakeRequest(env.App, "POST", "/auth/refresh",
		map[string]interface{}{"refresh_token": pair.RefreshToken}, "")
	assert.NoError(t, err)
	assert.Equal(t, 401, resp.Code)
}

func TestForgotPasswordHandler(t *testing.T) {
	env := testutils.Setup(t)
	env.CreateUser(t, "Dana", "dana@example.com", "password123", models.RolePatient)

	registered := map[string]interface{}{"email": "dana@example.com"}
	unknown := map[string]interface{}{"email": "ghost@example.com"}

	resp1, err := testutils.MakeRequest(env.App, "POST", "/auth/forgot-password", registered, "")
	assert.NoError(t, err)
	resp2, err := testutils.MakeRequest(env.App, "POST", "/auth/forgot-password", unknown, "")
	assert.NoError(t, err)

	// Byte-identical responses regardless of account existence.
	assert.Equal(t, 200, resp1.Code)
	assert.Equal(t, 200, resp2.Code)
	assert.Equal(t, resp1.Body.String(), resp2.Body.String())

	// Only the registered address got mail.
	assert.Len(t, env.Mail.Sent, 1)
	assert.Equal(t, "dana@example.com", env.Mail.Sent[0].To)
	assert.Contains(t, env.Mail.Sent[0].Body, "reset-password?token=")
}

func resetSecretFromMail(t *testing.T, body string) string {
	idx := strings.Index(body, "token=")
	require.NotEqual(t, -1, idx, "reset mail should contain a token link")
	rest := body[idx+len("token="):]
	if end := strings.IndexAny(rest, " \n"); end != -1 {
		rest = rest[:end]
	}
	return rest
}

func TestResetPasswordHandler(t *testing.T) {
	t.Run("Success - Single use consumption", func(t *testing.T) {
		env := testutils.Setup(t)
		env.CreateUser(t, "Erin", "erin@example.com", "oldpassword1", models.RolePatient)

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/forgot-password",
			map[string]interface{}{"email": "erin@example.com"}, "")
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code)
		require.Len(t, env.Mail.Sent, 1)

		secret := resetSecretFromMail(t, env.Mail.Sent[0].Body)

		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/reset-password",
			map[string]interface{}{"token": secret, "new_password": "newpassword1"}, "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		// The new password works.
		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/login",
			map[string]interface{}{"email": "erin@example.com", "password": "newpassword1"}, "")
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		// The same secret cannot be consumed twice.
		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/reset-password",
			map[string]interface{}{"token": secret, "new_password": "anotherpass1"}, "")
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
		testutils.AssertError(t, resp, "BAD_REQUEST")
	})

	t.Run("Error - Expired reset token", func(t *testing.T) {
		env := testutils.Setup(t)
		user := env.CreateUser(t, "Frank", "frank@example.com", "oldpassword1", models.RolePatient)

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/forgot-password",
			map[string]interface{}{"email": "frank@example.com"}, "")
		require.NoError(t, err)
		require.Len(t, env.Mail.Sent, 1)

		err = env.DB.Model(&models.User{}).Where("id = ?", user.ID).
			Update("reset_token_expires_at", time.Now().Add(-time.Minute)).Error
		require.NoError(t, err)

		secret := resetSecretFromMail(t, env.Mail.Sent[0].Body)
		resp, err = testutils.MakeRequest(env.App, "POST", "/auth/reset-password",
			map[string]interface{}{"token": secret, "new_password": "newpassword1"}, "")
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("Error - Unknown token", func(t *testing.T) {
		env := testutils.Setup(t)

		resp, err := testutils.MakeRequest(env.App, "POST", "/auth/reset-password",
			map[string]interface{}{"token": "bogus", "new_password": "newpassword1"}, "")
		require.NoError(t, err)
		assert.Equal(t, 400, resp.Code)
	})
}

func TestRequireAuth(t *testing.T) {
	env := testutils.Setup(t)
	user := env.CreateUser(t, "Grace", "grace@example.com", "password123", models.RoleDoctor)

	t.Run("Error - Missing header", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/auth/me", nil, "")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})

	t.Run("Error - Garbage token", func(t *testing.T) {
		resp, err := testutils.MakeRequest(env.App, "GET", "/auth/me", nil, "not-a-token")
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})

	t.Run("Success - Valid token resolves identity", func(t *testing.T) {
		token := env.AccessTokenFor(t, user.ID)

		resp, err := testutils.MakeRequest(env.App, "GET", "/auth/me", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 200, resp.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		data := result.Data.(map[string]interface{})
		assert.Equal(t, "grace@example.com", data["email"])
		assert.Equal(t, "doctor", data["role"])
	})

	t.Run("Error - User deleted after issuance", func(t *testing.T) {
		token := env.AccessTokenFor(t, user.ID)
		require.NoError(t, env.DB.Delete(&models.User{}, user.ID).Error)

		resp, err := testutils.MakeRequest(env.App, "GET", "/auth/me", nil, token)
		assert.NoError(t, err)
		assert.Equal(t, 401, resp.Code)
	})
}

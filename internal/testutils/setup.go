package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/medvault/medvault/internal/access"
	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/database"
	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/server"
	"github.com/medvault/medvault/internal/storage"
	"github.com/medvault/medvault/internal/users"
	"github.com/medvault/medvault/internal/utils"
)

// Env bundles a fully wired app over an in-memory database so tests can
// drive it through HTTP or poke the internals directly.
type Env struct {
	App    *fiber.App
	DB     *gorm.DB
	Cfg    *config.Config
	Issuer *auth.TokenIssuer
	Svc    *auth.Service
	Mail   *CapturingMailer
}

// CapturingMailer records outgoing mail instead of sending it.
type CapturingMailer struct {
	Sent []CapturedMail
}

type CapturedMail struct {
	To      string
	Subject string
	Body    string
}

func (m *CapturingMailer) Send(to, subject, body string) error {
	m.Sent = append(m.Sent, CapturedMail{To: to, Subject: subject, Body: body})
	return nil
}

func TestConfig() *config.Config {
	return &config.Config{
		AccessTokenSecret:  "test_access_secret_0123456789abcdef0123456789",
		RefreshTokenSecret: "test_refresh_secret_0123456789abcdef012345678",
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    168 * time.Hour,
		ResetTokenTTL:      10 * time.Minute,
		ShareCodeTTL:       15 * time.Minute,
		FrontendURL:        "http://localhost:3000",
	}
}

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	assert.NoError(t, err, "Failed to create test database")

	// Each sqlite :memory: connection is its own database; pin the pool to
	// one connection so every query sees the same schema.
	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = database.Migrate(db)
	assert.NoError(t, err, "Failed to migrate test database")

	return db
}

func Setup(t *testing.T) *Env {
	cfg := TestConfig()
	db := TestDB(t)
	log := zap.NewNop()
	mail := &CapturingMailer{}

	recorder := audit.NewRecorder(db, log)
	issuer := auth.NewTokenIssuer(cfg)
	ledger := auth.NewSessionLedger(db)
	guard := auth.NewReplayGuard(db)
	svc := auth.NewService(db, issuer, ledger, guard, recorder, mail, cfg, log)
	grants := access.NewGrantChecker(db)

	blobs, err := storage.NewLocalStore(t.TempDir())
	assert.NoError(t, err, "Failed to initialize blob storage")

	app := server.New(server.Deps{
		DB:      db,
		Log:     log,
		Issuer:  issuer,
		Auth:    auth.NewHandler(svc),
		Records: records.NewHandler(db, blobs, grants, recorder),
		Access:  access.NewHandler(db, recorder, cfg),
		Audit:   audit.NewHandler(db),
		Users:   users.NewHandler(db),
	})

	return &Env{App: app, DB: db, Cfg: cfg, Issuer: issuer, Svc: svc, Mail: mail}
}

func (e *Env) CreateUser(t *testing.T, name, email, password, role string) *models.User {
	hashed, err := utils.HashPassword(password)
	assert.NoError(t, err)

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     role,
	}
	err = e.DB.Create(user).Error
	assert.NoError(t, err, "Failed to create test user")

	return user
}

func (e *Env) AccessTokenFor(t *testing.T, userID uint) string {
	token, err := e.Issuer.IssueAccessToken(userID)
	assert.NoError(t, err, "Failed to issue test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func MakeMultipartRequestWithFile(app *fiber.App, method, url string, fields map[string]string, files map[string][]byte, token string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		writer.WriteField(key, val)
	}

	for fieldName, fileContent := range files {
		part, err := writer.CreateFormFile(fieldName, fieldName+".pdf")
		if err != nil {
			return nil, err
		}
		part.Write(fileContent)
	}

	contentType := writer.FormDataContentType()
	writer.Close()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

type StandardResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    interface{}  `json:"data"`
	Error   *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(resp.Body).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.NotNil(t, result.Error, "Expected error object")
	if result.Error != nil {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}

package records_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medvault/medvault/internal/models"
	"github.com/medvault/medvault/internal/testutils"
)

func TestSearchRecords(t *testing.T) {
	env := testutils.Setup(t)
	patient := env.CreateUser(t, "Pat", "pat@example.com", "password123", models.RolePatient)
	other := env.CreateUser(t, "Other", "other@example.com", "password123", models.RolePatient)
	token := env.AccessTokenFor(t, patient.ID)

	seed := []models.MedicalRecord{
		{PatientID: patient.ID, Title: "Blood Panel 2024", Notes: "fasting glucose", BlobKey: "s1", FileName: "blood.pdf"},
		{PatientID: patient.ID, Title: "Chest X-Ray", Notes: "clear", BlobKey: "s2", FileName: "xray.pdf"},
		{PatientID: patient.ID, Title: "Blood Panel 2025", Notes: "cholesterol", BlobKey: "s3", FileName: "blood2.pdf"},
		{PatientID: other.ID, Title: "Blood Panel", Notes: "not yours", BlobKey: "s4", FileName: "foreign.pdf"},
	}
	for i := range seed {
		require.NoError(t, env.DB.Create(&seed[i]).Error)
	}

	search := func(t *testing.T, query string) map[string]interface{} {
		resp, err := testutils.MakeRequest(env.App, "GET", "/records/search"+query, nil, token)
		require.NoError(t, err)
		require.Equal(t, 200, resp.Code, resp.Body.String())

		var result testutils.StandardResponse
		testutils.ParseResponse(t, resp, &result)
		return result.Data.(map[string]interface{})
	}

	t.Run("matches title and notes", func(t *testing.T) {
		data := search(t, "?q=Blood")
		assert.EqualValues(t, 2, data["total"], "must not see other patients' records")

		data = search(t, "?q=glucose")
		assert.EqualValues(t, 1, data["total"])
	})

	t.Run("no query returns everything owned", func(t *testing.T) {
		data := search(t, "")
		assert.EqualValues(t, 3, data["total"])
	})

	t.Run("pagination caps the page", func(t *testing.T) {
		data := search(t, "?limit=2")
		assert.EqualValues(t, 3, data["total"])
		assert.EqualValues(t, 2, data["total_pages"])
		assert.Len(t, data["records"].([]interface{}), 2)
	})

	t.Run("sort by title ascending", func(t *testing.T) {
		data := search(t, "?sort_by=title&order_by=asc")
		records := data["records"].([]interface{})
		require.NotEmpty(t, records)
		assert.Equal(t, "Blood Panel 2024", records[0].(map[string]interface{})["title"])
	})

	t.Run("no match is empty, not an error", func(t *testing.T) {
		data := search(t, "?q=nonexistent-term")
		assert.EqualValues(t, 0, data["total"])
	})
}

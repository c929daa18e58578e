package allocation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondFieldErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	respondFieldError(rec, http.StatusBadRequest, "file_url is required", "file_url")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "file_url is required", body["error_message"])
	assert.Equal(t, "file_url", body["key"])
}

func TestFieldErrorMessage(t *testing.T) {
	fe := &FieldError{Message: "file_url is required", Key: "file_url"}
	assert.Equal(t, "file_url is required (file_url)", fe.Error())
}

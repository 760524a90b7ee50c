package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchemaValidator_LoadsEmbeddedSchemas(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.Equal(t, []string{InteractionRequest, RecommendationRequest}, sv.SchemaNames())
}

func TestValidateJSON_RecommendationRequest(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{name: "empty object", body: `{}`, valid: true},
		{name: "limit and coordinate", body: `{"limit": 10, "latitude": 21.03, "longitude": 105.85}`, valid: true},
		{name: "limit too large", body: `{"limit": 51}`},
		{name: "fractional limit", body: `{"limit": 2.5}`},
		{name: "latitude out of range", body: `{"latitude": 91, "longitude": 0}`},
		{name: "latitude without longitude", body: `{"latitude": 10.8}`},
		{name: "unknown field", body: `{"count": 5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateJSON(RecommendationRequest, []byte(tt.body))
			assert.Equal(t, tt.valid, result.Valid, "%v", result.Errors)
		})
	}
}

func TestValidateJSON_InteractionRequest(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	valid := sv.ValidateJSON(InteractionRequest, []byte(`{"food_id": "6f1c2b8e-2d0a-4b7e-9a43-0d3c1e5f7a21", "interaction_type": "like", "rating": 5}`))
	assert.True(t, valid.Valid)
	assert.Nil(t, valid.ToAPIError())

	invalid := sv.ValidateJSON(InteractionRequest, []byte(`{"food_id": "pho", "interaction_type": "order"}`))
	require.False(t, invalid.Valid)
	assert.Len(t, invalid.Errors, 2)

	apiError := invalid.ToAPIError()
	envelope := apiError["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_FAILED", envelope["code"])
	fieldErrors := envelope["details"].(map[string]interface{})["fieldErrors"].(map[string][]string)
	assert.Contains(t, fieldErrors, "food_id")
	assert.Contains(t, fieldErrors, "interaction_type")
}

func TestValidate_MalformedDocumentAndUnknownSchema(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	result := sv.ValidateJSON(InteractionRequest, []byte(`{"food_id":`))
	require.False(t, result.Valid)
	assert.Equal(t, "INVALID_JSON", result.Errors[0].Code)

	result = sv.ValidateStruct("user-profile", map[string]string{})
	require.False(t, result.Valid)
	assert.Equal(t, "SCHEMA_NOT_FOUND", result.Errors[0].Code)
}

package dreamsdk

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorResponse(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadRequest}

	err := parseErrorResponse(resp, []byte(`{"error":"validation_error","error_description":"Missing required fields","errors":["Title is required"]}`))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Equal(t, []string{"Title is required"}, apiErr.Errors)
	require.True(t, IsCode(fmt.Errorf("wrapped: %w", err), ErrorCodeValidation))
	require.Contains(t, err.Error(), "Title is required")

	err = parseErrorResponse(&http.Response{StatusCode: http.StatusBadGateway}, []byte("upstream down\n"))
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "Bad Gateway", apiErr.Code)
	require.Equal(t, "upstream down", apiErr.Description)
	require.False(t, IsCode(err, ErrorCodeInternal))
}

package render

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_JSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		data := map[string]any{"key1": 1, "key2": "222"}
		JSON(w, data)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`+"\n", string(body))
}

func TestRender_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ServiceError(w, "something terrible happened", http.StatusForbidden)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/test")
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	assert.JSONEq(t, `{
			"error": "service_error",
			"message": "something terrible happened"
		}`,
		string(body),
	)
}

func TestRender_BindAndValidate(t *testing.T) {
	type depositRequest struct {
		Asset       string `json:"asset" validate:"required"`
		SavingsType string `json:"savingsType" validate:"required,oneof=flexible fixed-term"`
	}

	bind := func(t *testing.T, body string) (*httptest.ResponseRecorder, depositRequest, error) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

		value, err := BindAndValidate[depositRequest](w, r)
		return w, value, err
	}

	t.Run("valid body", func(t *testing.T) {
		w, value, err := bind(t, `{"asset": "BTC", "savingsType": "flexible"}`)

		require.NoError(t, err)
		require.Equal(t, depositRequest{Asset: "BTC", SavingsType: "flexible"}, value)
		require.Equal(t, http.StatusOK, w.Code, "no error should be written for valid body")
	})

	t.Run("broken json", func(t *testing.T) {
		w, _, err := bind(t, `{"asset": `)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), DecodingErrorType)
	})

	t.Run("validation failure uses json tag names", func(t *testing.T) {
		w, _, err := bind(t, `{"asset": "BTC", "savingsType": "weekly"}`)

		require.Error(t, err)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), ValidationErrorType)
		assert.Contains(t, w.Body.String(), "savingsType", "field errors should be keyed by json tag")
	})
}

package shipments

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc, nil).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestExportAndReceiveEndpoints(t *testing.T) {
	h := newTestHandler(t)

	body := `{"shopId":"shop-1","items":[{"productId":"p1","quantity":50,"landedCost":10}],"freightForwarder":{"counterpartyId":"ff-1","amount":100}}`
	rec := doJSON(t, h, http.MethodPost, "/exports", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"]
	require.NotEmpty(t, id)

	rec = doJSON(t, h, http.MethodGet, "/shipments?shopId=shop-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"PENDING"`)

	receive := `{"items":[{"productId":"p1","quantity":25}]}`
	rec = doJSON(t, h, http.MethodPost, "/shipments/"+id+"/receive", receive)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"overheadPerUnit":4`)
	require.Contains(t, rec.Body.String(), `"importRows":1`)

	// The transition is one-way.
	rec = doJSON(t, h, http.MethodPost, "/shipments/"+id+"/receive", receive)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReceiveEndpointUnknownShipment(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/shipments/ghost/receive", `{"items":[{"productId":"p1","quantity":1}]}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportEndpointValidation(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/exports", `{"shopId":"shop-1","items":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/exports", `{"shopId":"ghost","items":[{"productId":"p1","quantity":1,"landedCost":1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

package ledger

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tradepost-hq/tradepost/internal/shared"
)

type fakeBalances map[string]float64

func (b fakeBalances) CustomerBalance(customerID string) float64 {
	return b[customerID]
}

func newTestHandler(t *testing.T, balances fakeBalances) http.Handler {
	t.Helper()
	catalog := fakeCatalog{"p1": {ID: "p1", Name: "Widget"}}
	stock := fakeStock{"shop-1/p1": 100}
	svc, _ := newTestService(t, catalog, stock)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	idem := shared.NewIdempotencyStore(client, time.Hour)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, svc, balances, idem).Routes()
}

func post(t *testing.T, h http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRecordSaleEndpoint(t *testing.T) {
	h := newTestHandler(t, fakeBalances{})

	body := `{"shopId":"shop-1","customerId":"c1","items":[{"productId":"p1","quantity":2,"unitPrice":50}],"cashPaid":100,"date":"2024-05-10T00:00:00Z"}`
	rec := post(t, h, "/sales", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"type":"CASH_SALE"`)
	require.Contains(t, rec.Body.String(), `"total":100`)
}

func TestRecordSaleEndpointRejectsOverpayment(t *testing.T) {
	h := newTestHandler(t, fakeBalances{})

	body := `{"shopId":"shop-1","customerId":"c1","items":[{"productId":"p1","quantity":1,"unitPrice":50}],"cashPaid":60,"date":"2024-05-10T00:00:00Z"}`
	rec := post(t, h, "/sales", body, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordSaleEndpointDuplicateKeyConflicts(t *testing.T) {
	h := newTestHandler(t, fakeBalances{})
	header := map[string]string{"Idempotency-Key": "abc"}

	body := `{"shopId":"shop-1","customerId":"c1","items":[{"productId":"p1","quantity":1,"unitPrice":50}],"date":"2024-05-10T00:00:00Z"}`
	rec := post(t, h, "/sales", body, header)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = post(t, h, "/sales", body, header)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRecordSaleEndpointReleasesKeyOnFailure(t *testing.T) {
	h := newTestHandler(t, fakeBalances{})
	header := map[string]string{"Idempotency-Key": "abc"}

	// Oversell fails with 409 and releases the claim.
	over := `{"shopId":"shop-1","customerId":"c1","items":[{"productId":"p1","quantity":500,"unitPrice":50}],"date":"2024-05-10T00:00:00Z"}`
	rec := post(t, h, "/sales", over, header)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "Insufficient Stock")

	// The same key is then usable for the corrected retry.
	good := `{"shopId":"shop-1","customerId":"c1","items":[{"productId":"p1","quantity":1,"unitPrice":50}],"date":"2024-05-10T00:00:00Z"}`
	rec = post(t, h, "/sales", good, header)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRecordPaymentEndpointEnforcesBalanceCeiling(t *testing.T) {
	h := newTestHandler(t, fakeBalances{"c1": 50})

	over := `{"shopId":"shop-1","customerId":"c1","amount":80,"date":"2024-05-10T00:00:00Z"}`
	rec := post(t, h, "/payments", over, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "cannot be greater than the outstanding balance")

	exact := `{"shopId":"shop-1","customerId":"c1","amount":50,"date":"2024-05-10T00:00:00Z"}`
	rec = post(t, h, "/payments", exact, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestListTransactionsEndpointFiltersByShop(t *testing.T) {
	h := newTestHandler(t, fakeBalances{})

	body := `{"shopId":"shop-1","customerId":"c1","items":[{"productId":"p1","quantity":1,"unitPrice":50}],"date":"2024-05-10T00:00:00Z"}`
	rec := post(t, h, "/sales", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/transactions?shopId=shop-1", nil)
	out := httptest.NewRecorder()
	h.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	require.Contains(t, out.Body.String(), `"type":"CREDIT_SALE"`)

	req = httptest.NewRequest(http.MethodGet, "/transactions?shopId=other", nil)
	out = httptest.NewRecorder()
	h.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	require.Equal(t, "[]\n", out.Body.String())
}

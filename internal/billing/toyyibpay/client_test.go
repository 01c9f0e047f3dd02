package toyyibpay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	c := NewClient("secret", "cat123")
	c.apiURL = serverURL
	return c
}

func TestClient_CreateBill(t *testing.T) {
	var gotForm map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"userSecretKey":           r.FormValue("userSecretKey"),
			"categoryCode":            r.FormValue("categoryCode"),
			"billAmount":              r.FormValue("billAmount"),
			"billExternalReferenceNo": r.FormValue("billExternalReferenceNo"),
			"billPriceSetting":        r.FormValue("billPriceSetting"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"BillCode":"xyz789"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.CreateBill(context.Background(), CreateBillRequest{
		BillName:    "Premium",
		AmountCents: 500,
		ExternalRef: "MYK-99-1700000000",
		PayorEmail:  "aina@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, "xyz789", resp.BillCode)
	assert.Equal(t, "https://toyyibpay.com/xyz789", resp.PaymentURL)
	assert.Equal(t, "secret", gotForm["userSecretKey"])
	assert.Equal(t, "cat123", gotForm["categoryCode"])
	assert.Equal(t, "500", gotForm["billAmount"])
	assert.Equal(t, "MYK-99-1700000000", gotForm["billExternalReferenceNo"])
	assert.Equal(t, "1", gotForm["billPriceSetting"])
}

func TestClient_CreateBill_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "empty array", status: http.StatusOK, body: `[]`, wantErr: "no bill code"},
		{name: "blank bill code", status: http.StatusOK, body: `[{"BillCode":""}]`, wantErr: "no bill code"},
		{name: "gateway error status", status: http.StatusInternalServerError, body: ``, wantErr: "unexpected status"},
		{name: "non json answer", status: http.StatusOK, body: `KEY-DID-NOT-EXIST`, wantErr: "invalid character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.CreateBill(context.Background(), CreateBillRequest{AmountCents: 500})

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

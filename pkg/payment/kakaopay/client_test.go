package kakaopay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		AdminKey:    "test-key",
		CID:         "TC0ONETIME",
		BaseURL:     server.URL,
		ApprovalURL: "http://localhost/success",
		FailURL:     "http://localhost/fail",
		CancelURL:   "http://localhost/cancel",
		Timeout:     timeout,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	_, err := NewClient(Config{CID: "TC0ONETIME"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClient_Ready(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ready", r.URL.Path)
		assert.Equal(t, "SECRET_KEY test-key", r.Header.Get("Authorization"))

		var req ReadyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "TC0ONETIME", req.CID)
		assert.Equal(t, "http://localhost/success", req.ApprovalURL)
		assert.Equal(t, int64(42000), req.TotalAmount)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"tid":"T123","next_redirect_pc_url":"https://pay.example/redirect","created_at":"2024-05-01T10:00:00"}`))
	}, 0)

	resp, err := client.Ready(context.Background(), ReadyRequest{
		PartnerOrderID: "order-1",
		PartnerUserID:  "1",
		ItemName:       "Shirt",
		Quantity:       1,
		TotalAmount:    42000,
	})
	require.NoError(t, err)
	assert.Equal(t, "T123", resp.TID)
	assert.Equal(t, "https://pay.example/redirect", resp.NextRedirectPCURL)
	assert.Equal(t, 2024, resp.CreatedAt.Year())
}

func TestClient_Cancel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cancel", r.URL.Path)
		w.Write([]byte(`{"tid":"T123","status":"CANCEL_PAYMENT","canceled_amount":{"total":42000},"canceled_at":"2024-05-01T11:00:00"}`))
	}, 0)

	resp, err := client.Cancel(context.Background(), CancelRequest{TID: "T123", CancelAmount: 42000})
	require.NoError(t, err)
	assert.Equal(t, "CANCEL_PAYMENT", resp.Status)
	assert.Equal(t, int64(42000), resp.CanceledAmount.Total)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "bad request", status: http.StatusBadRequest, want: ErrInvalidRequest},
		{name: "conflict", status: http.StatusConflict, want: ErrAlreadyProcessed},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, want: ErrTimeout},
		{name: "server error", status: http.StatusInternalServerError, want: ErrPaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"code":-780,"msg":"rejected"}`))
			}, 0)

			_, err := client.Approve(context.Background(), ApproveRequest{TID: "T123", PgToken: "pg"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}, 50*time.Millisecond)

	_, err := client.Cancel(context.Background(), CancelRequest{TID: "T123", CancelAmount: 1000})
	assert.ErrorIs(t, err, ErrTimeout)
}

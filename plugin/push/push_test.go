package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(&Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
	})
	return client, srv
}

func TestSend(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Response{Success: true, DeliveryID: "d-1"})
	})
	defer srv.Close()

	resp, err := client.Send(context.Background(), 7, &Payload{Title: "t", Body: "b"})
	require.NoError(t, err)
	require.Equal(t, "d-1", resp.DeliveryID)
	require.Equal(t, "/v1/notifications/send", gotPath)
	require.Equal(t, "Bearer test-key", gotAuth)
	require.Equal(t, float64(7), gotBody["userId"])
}

func TestScheduleAtCarriesSendTime(t *testing.T) {
	var gotBody map[string]any
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(Response{Success: true, DeliveryID: "d-2"})
	})
	defer srv.Close()

	fireAt := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	resp, err := client.ScheduleAt(context.Background(), 7, &Payload{Title: "t"}, fireAt)
	require.NoError(t, err)
	require.Equal(t, "d-2", resp.DeliveryID)
	require.Equal(t, "2026-04-01T09:30:00Z", gotBody["sendAt"])
}

func TestSendRejectedByVendor(t *testing.T) {
	client, srv := testClient(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Response{Success: false, Message: "quota exceeded"})
	})
	defer srv.Close()

	_, err := client.Send(context.Background(), 7, &Payload{Title: "t"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "quota exceeded")
}

func TestSendServerError(t *testing.T) {
	client, srv := testClient(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.Send(context.Background(), 7, &Payload{Title: "t"})
	require.Error(t, err)
}

func TestSendMissingDeliveryID(t *testing.T) {
	client, srv := testClient(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Response{Success: true})
	})
	defer srv.Close()

	_, err := client.Send(context.Background(), 7, &Payload{Title: "t"})
	require.Error(t, err)
}

func TestCancelScheduled(t *testing.T) {
	var gotMethod, gotPath string
	client, srv := testClient(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	require.NoError(t, client.CancelScheduled(context.Background(), "d-1"))
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/v1/notifications/schedule/d-1", gotPath)
}

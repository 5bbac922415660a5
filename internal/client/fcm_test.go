package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type testLogger struct{}

func (testLogger) Debugf(format string, v ...any) {}
func (testLogger) Infof(format string, v ...any)  {}
func (testLogger) Errorf(format string, v ...any) {}

func newTestClient(fcmEndpoint string, emailEndpoint string) Client {
	return Client{
		Client:        &http.Client{Timeout: 5 * time.Second},
		FCMKey:        "test-fcm-key",
		FCMEndpoint:   fcmEndpoint,
		SendGridKey:   "test-sendgrid-key",
		EmailEndpoint: emailEndpoint,
		Logger:        testLogger{},
	}
}

func TestFCMSendNotification(t *testing.T) {
	var gotReq FCMSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "key=test-fcm-key" {
			t.Errorf("got Authorization %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("got Content-Type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("error decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": 1,
			"failure": 1,
			"results": [{"message_id": "m1"}, {"error": "NotRegistered"}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	resp, err := c.FCMSendNotification(FCMSendRequest{
		Notification:    FCMNotification{Title: "TSLA is up +5.25% today", Body: "b", Sound: "default"},
		Data:            FCMData{Type: "price_alert", Symbol: "TSLA"},
		RegistrationIDs: []string{"tok1", "tok2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotReq.RegistrationIDs) != 2 || gotReq.RegistrationIDs[0] != "tok1" {
		t.Errorf("got registration_ids %v", gotReq.RegistrationIDs)
	}
	if gotReq.Data.Symbol != "TSLA" {
		t.Errorf("got data %+v", gotReq.Data)
	}

	if resp.Success != 1 || resp.Failure != 1 {
		t.Errorf("got counts %+v", resp)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d result(s), want 2", len(resp.Results))
	}
	if resp.Results[0].Error != nil || resp.Results[0].MessageID != "m1" {
		t.Errorf("got results[0] %+v", resp.Results[0])
	}
	if resp.Results[1].Error == nil || *resp.Results[1].Error != FCMErrorNotRegistered {
		t.Errorf("got results[1] %+v", resp.Results[1])
	}
}

func TestFCMSendNotificationBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	_, err := c.FCMSendNotification(FCMSendRequest{RegistrationIDs: []string{"tok1"}})
	if err == nil {
		t.Fatalf("expected an error on a non-200 status")
	}
}

package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmailSend(t *testing.T) {
	var gotReq emailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-sendgrid-key" {
			t.Errorf("got Authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("error decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	err := c.EmailSend("noreply@example.com", "user@example.com", "US Market Wrap for 2025-03-14", "<html></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.From.Email != "noreply@example.com" {
		t.Errorf("got from %+v", gotReq.From)
	}
	if len(gotReq.Personalizations) != 1 || len(gotReq.Personalizations[0].To) != 1 ||
		gotReq.Personalizations[0].To[0].Email != "user@example.com" {
		t.Errorf("got personalizations %+v", gotReq.Personalizations)
	}
	if gotReq.Subject != "US Market Wrap for 2025-03-14" {
		t.Errorf("got subject %q", gotReq.Subject)
	}
	if len(gotReq.Content) != 1 || gotReq.Content[0].Type != "text/html" {
		t.Errorf("got content %+v", gotReq.Content)
	}
}

func TestEmailSendBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"bad request"}]}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	err := c.EmailSend("noreply@example.com", "user@example.com", "s", "<html></html>")
	if err == nil {
		t.Fatalf("expected an error on a rejected send")
	}
}

func TestConfigured(t *testing.T) {
	c := Client{}
	if c.FCMConfigured() || c.EmailConfigured() {
		t.Errorf("empty keys reported as configured")
	}
	c.FCMKey = "k"
	c.SendGridKey = "k"
	if !c.FCMConfigured() || !c.EmailConfigured() {
		t.Errorf("set keys reported as unconfigured")
	}
}

package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const defaultEmailEndpoint = "https://api.sendgrid.com/v3/mail/send"

type emailSendRequest struct {
	Personalizations []emailPersonalization `json:"personalizations"`
	From             emailAddress           `json:"from"`
	Subject          string                 `json:"subject"`
	Content          []emailContent         `json:"content"`
}

type emailPersonalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
}

type emailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (c Client) EmailConfigured() bool {
	return c.SendGridKey != ""
}

// EmailSend delivers one transactional message. SendGrid answers 202 on
// acceptance; anything else is an error.
func (c Client) EmailSend(from string, to string, subject string, htmlBody string) error {
	reqBody, err := json.Marshal(emailSendRequest{
		Personalizations: []emailPersonalization{{To: []emailAddress{{Email: to}}}},
		From:             emailAddress{Email: from},
		Subject:          subject,
		Content:          []emailContent{{Type: "text/html", Value: htmlBody}},
	})
	if err != nil {
		return errors.Wrapf(err, "EmailSend: request JSON marshalling error, to: %s", to)
	}

	endpoint := c.EmailEndpoint
	if endpoint == "" {
		endpoint = defaultEmailEndpoint
	}
	req, err := newRequest(http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return errors.Wrapf(err, "EmailSend: error creating HTTP request, to: %s", to)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SendGridKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "EmailSend: error doing request, to: %s", to)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Errorf("EmailSend: error closing response body, err: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 10000))
		return errors.Errorf("EmailSend: EmailSendAPI returned status: %s, body: %s", resp.Status, respBody)
	}
	return nil
}

package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const defaultFCMEndpoint = "https://fcm.googleapis.com/fcm/send"

// Per-token error codes from the FCM legacy HTTP API that mean the token will
// never work again.
const (
	FCMErrorNotRegistered       = "NotRegistered"
	FCMErrorInvalidRegistration = "InvalidRegistration"
	FCMErrorMissingRegistration = "MissingRegistration"
)

type FCMSendResponse struct {
	Success int             `json:"success"`
	Failure int             `json:"failure"`
	Results []FCMSendResult `json:"results"`
}

// FCMSendResult entries are positional: Results[i] reports RegistrationIDs[i].
type FCMSendResult struct {
	MessageID string  `json:"message_id"`
	Error     *string `json:"error"`
}

type FCMSendRequest struct {
	Notification    FCMNotification `json:"notification"`
	Data            FCMData         `json:"data"`
	RegistrationIDs []string        `json:"registration_ids"`
}

type FCMNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

type FCMData struct {
	Type        string `json:"type"`
	Symbol      string `json:"symbol,omitempty"`
	SummaryType string `json:"summary_type,omitempty"`
}

// FCMConfigured reports whether a server key was supplied at startup. The
// state is fixed for the process lifetime.
func (c Client) FCMConfigured() bool {
	return c.FCMKey != ""
}

func (c Client) FCMSendNotification(fcmReqBody FCMSendRequest) (FCMSendResponse, error) {
	reqBody, err := json.Marshal(fcmReqBody)
	if err != nil {
		return FCMSendResponse{}, errors.Wrapf(err, "FCMSendNotification: FCMSendRequest JSON marshalling error, req: %+v", fcmReqBody)
	}

	endpoint := c.FCMEndpoint
	if endpoint == "" {
		endpoint = defaultFCMEndpoint
	}
	req, err := newRequest(http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return FCMSendResponse{}, errors.Wrapf(err, "FCMSendNotification: error creating HTTP request from body: %s", reqBody)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.FCMKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return FCMSendResponse{}, errors.Wrapf(err, "FCMSendNotification: error doing request: %+v", req)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.Logger.Errorf("FCMSendNotification: error closing response body, err: %v", err)
		}
	}()

	respBody, err := io.ReadAll(http.MaxBytesReader(nil, resp.Body, 300000))
	if err != nil {
		return FCMSendResponse{}, errors.Wrapf(err,
			"FCMSendNotification: error reading FCMSendAPI response body, status: %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return FCMSendResponse{}, errors.Errorf(
			"FCMSendNotification: FCMSendAPI returned status: %s, body: %s", resp.Status, respBody)
	}
	fcmSendResp := FCMSendResponse{}
	err = json.Unmarshal(respBody, &fcmSendResp)
	return fcmSendResp, errors.Wrapf(err,
		"FCMSendNotification: error unmarshalling FCMSendAPI response body: %s", respBody)
}

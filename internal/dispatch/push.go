package dispatch

import (
	"context"
	"sync"

	"marketnotify/internal/client"
)

// FCMClient is the slice of client.Client the push adapter consumes.
type FCMClient interface {
	FCMConfigured() bool
	FCMSendNotification(req client.FCMSendRequest) (client.FCMSendResponse, error)
}

type PushPayload struct {
	Title string
	Body  string
	Data  client.FCMData
}

type PushResult struct {
	Sent   int
	Failed int
	// Delivered is keyed by token; false means the provider reported a
	// failure (or was never reached) for that token.
	Delivered map[string]bool
}

// PushAdapter wraps the bulk FCM call, classifies per-token failures and
// purges permanently dead tokens before handing the result back.
type PushAdapter struct {
	Client FCMClient
	Store  Store
	Logger logger

	warnUnconfigured sync.Once
}

// SendBulk never returns an error to the caller: provider trouble degrades to
// failed counts so one bad batch cannot abort a dispatch.
func (a *PushAdapter) SendBulk(ctx context.Context, tokens []string, payload PushPayload) PushResult {
	res := PushResult{Delivered: make(map[string]bool, len(tokens))}
	for _, t := range tokens {
		res.Delivered[t] = false
	}
	if len(tokens) == 0 {
		return res
	}

	if !a.Client.FCMConfigured() {
		a.warnUnconfigured.Do(func() {
			a.Logger.Warnf("SendBulk: FCM server key not configured, all push deliveries will be reported as failed")
		})
		res.Failed = len(tokens)
		return res
	}

	fcmResp, err := a.Client.FCMSendNotification(client.FCMSendRequest{
		Notification: client.FCMNotification{
			Title: payload.Title,
			Body:  payload.Body,
			Sound: "default",
		},
		Data:            payload.Data,
		RegistrationIDs: tokens,
	})
	if err != nil {
		a.Logger.Errorf("SendBulk: error sending notification to FCM for %d token(s), err: %v", len(tokens), err)
		res.Failed = len(tokens)
		return res
	}

	res.Sent = fcmResp.Success
	res.Failed = fcmResp.Failure

	var deadTokens []string
	if len(fcmResp.Results) == len(tokens) {
		for i, r := range fcmResp.Results {
			if r.Error == nil {
				res.Delivered[tokens[i]] = true
				continue
			}
			if permanentFCMError(*r.Error) {
				deadTokens = append(deadTokens, tokens[i])
			}
		}
	} else {
		a.Logger.Errorf("SendBulk: FCM result count mismatch, tokens: %d, results: %d", len(tokens), len(fcmResp.Results))
	}

	// Token cleanup runs on every bulk send, before the result is handed
	// back, so later dispatches never retry dead tokens. Transient failures
	// leave stored state alone.
	deleted, err := a.Store.DeviceRegistrationsDeleteByTokens(ctx, deadTokens)
	if err != nil {
		a.Logger.Errorf("SendBulk: error purging %d dead token(s), err: %v", len(deadTokens), err)
	} else if deleted > 0 {
		a.Logger.Infof("SendBulk: purged %d dead token(s)", deleted)
	}

	return res
}

// permanentFCMError reports whether a per-token FCM error code means the
// token is unregistered or malformed and will fail on every future attempt.
func permanentFCMError(code string) bool {
	switch code {
	case client.FCMErrorNotRegistered, client.FCMErrorInvalidRegistration, client.FCMErrorMissingRegistration:
		return true
	}
	return false
}

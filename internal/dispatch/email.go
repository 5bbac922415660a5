package dispatch

import "sync"

// EmailClient is the slice of client.Client the email adapter consumes.
type EmailClient interface {
	EmailConfigured() bool
	EmailSend(from string, to string, subject string, htmlBody string) error
}

// EmailAdapter sends one message per recipient; there is no bulk primitive
// and no token lifecycle on this channel.
type EmailAdapter struct {
	Client EmailClient
	From   string
	Logger logger

	warnUnconfigured sync.Once
}

func (a *EmailAdapter) SendOne(to string, subject string, htmlBody string) bool {
	if !a.Client.EmailConfigured() {
		a.warnUnconfigured.Do(func() {
			a.Logger.Warnf("SendOne: email API key not configured, all email deliveries will be reported as failed")
		})
		return false
	}
	if err := a.Client.EmailSend(a.From, to, subject, htmlBody); err != nil {
		a.Logger.Errorf("SendOne: error sending email, err: %v", err)
		return false
	}
	return true
}

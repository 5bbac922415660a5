package dispatch

import (
	"bytes"
	"fmt"
	"html/template"

	"marketnotify/internal/misc"
	"marketnotify/internal/model"

	"github.com/pkg/errors"
)

var summaryEmailTmpl = template.Must(template.New("summaryEmail").Parse(`<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{.MarketName}} Market Wrap</h2>
  <p style="color: #666;">{{.Date}}</p>
  <div style="white-space: pre-line;">{{.Content}}</div>
  <hr>
  <p style="font-size: 12px; color: #999;">
    You are receiving this because you subscribed to the {{.MarketName}} market wrap.
    You can turn it off in your notification preferences.
  </p>
</body>
</html>`))

var welcomeEmailTmpl = template.Must(template.New("welcomeEmail").Parse(`<html>
<body style="font-family: sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>Welcome{{if .FirstName}}, {{.FirstName}}{{end}}!</h2>
  <p>Your account is ready. Add tickers to your watchlist to start receiving
  price alerts, and pick the market wraps you want delivered to your inbox.</p>
</body>
</html>`))

func renderSummaryEmail(mkt Market, ms model.MarketSummary, date string) (subject string, htmlBody string, err error) {
	subject = fmt.Sprintf("%s Market Wrap for %s", mkt.Name, date)
	var buf bytes.Buffer
	err = summaryEmailTmpl.Execute(&buf, struct {
		MarketName string
		Date       string
		Content    string
	}{
		MarketName: mkt.Name,
		Date:       date,
		Content:    ms.Content,
	})
	if err != nil {
		return "", "", errors.Wrapf(err, "error rendering summary email for market: %s", mkt.ID)
	}
	return subject, buf.String(), nil
}

func renderWelcomeEmail(firstName string) (subject string, htmlBody string, err error) {
	subject = "Welcome aboard"
	var buf bytes.Buffer
	err = welcomeEmailTmpl.Execute(&buf, struct{ FirstName string }{FirstName: firstName})
	if err != nil {
		return "", "", errors.Wrap(err, "error rendering welcome email")
	}
	return subject, buf.String(), nil
}

func priceAlertPayload(a PriceAlert) PushPayload {
	word := "up"
	sign := "+"
	if a.Direction == DirectionDown {
		word = "down"
		sign = "-"
	}
	return PushPayload{
		Title: fmt.Sprintf("%s is %s %s%.2f%% today", a.Symbol, word, sign, misc.Abs(a.ChangePercent)*100),
		Body:  fmt.Sprintf("%s moved from $%.2f to $%.2f", a.Symbol, a.PreviousClose, a.CurrentPrice),
		Data:  pushDataPriceAlert(a.Symbol),
	}
}

func summaryPushPayload(mkt Market, ms model.MarketSummary) PushPayload {
	return PushPayload{
		Title: fmt.Sprintf("%s Market Wrap", mkt.Name),
		Body:  misc.StringLimit(ms.Content, 160),
		Data:  pushDataSummary(mkt.ID),
	}
}

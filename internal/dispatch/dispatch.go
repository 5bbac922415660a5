// Package dispatch decides whether a notification identity has already been
// served today, resolves the eligible recipients for it, performs delivery
// through the push and email adapters and reconciles failures back into
// stored state.
package dispatch

import (
	"context"
	"time"

	"marketnotify/internal/client"
	"marketnotify/internal/model"

	"github.com/pkg/errors"
)

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

var ErrUnknownMarket = errors.New("unknown market")

// Store is the persistence surface the dispatcher needs; implemented by
// database.Database.
type Store interface {
	SentNotificationExists(ctx context.Context, userID string, notificationType string, referenceID string, sentDate string) (bool, error)
	SentNotificationRecord(ctx context.Context, userID string, notificationType string, referenceID string, sentDate string) error
	DeviceRegistrationsFindByUserIDs(ctx context.Context, userIDs []string) ([]model.DeviceRegistration, error)
	DeviceRegistrationsFindAll(ctx context.Context) ([]model.DeviceRegistration, error)
	DeviceRegistrationsDeleteByTokens(ctx context.Context, deviceTokens []string) (int64, error)
	PreferencesFindByUserIDs(ctx context.Context, userIDs []string) ([]model.Preference, error)
	PreferenceUserIDsWithFlag(ctx context.Context, field string) ([]string, error)
	UsersFindActiveByIDs(ctx context.Context, userIDs []string) ([]model.User, error)
	UserFindByID(ctx context.Context, userID string) (model.User, error)
	MarketSummaryFindByID(ctx context.Context, summaryID string) (model.MarketSummary, error)
	WatchlistFindAll(ctx context.Context) ([]model.WatchlistItem, error)
}

type logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

type Dispatcher struct {
	Store  Store
	Push   *PushAdapter
	Email  *EmailAdapter
	Logger logger
}

// Result is the per-dispatch summary. For push, Sent and Failed count tokens
// (the provider's own success/failure counts); Skipped always counts users
// already served today.
type Result struct {
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

func (r *Result) add(other Result) {
	r.Sent += other.Sent
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

// All sent_date computation goes through sentDate; UTC is the canonical
// timezone so the dedup window cannot shift with process or DB settings.
const sentDateLayout = "2006-01-02"

func sentDate(t time.Time) string {
	return t.UTC().Format(sentDateLayout)
}

// PriceAlertReferenceID keeps an up-move and a down-move on the same symbol
// independent, while repeated moves in one direction collapse into one
// notification per day.
func PriceAlertReferenceID(symbol string, direction string) string {
	return symbol + "_" + direction
}

func SummaryReferenceID(market string, summaryID string) string {
	return "summary_" + market + "_" + summaryID
}

const WelcomeReferenceID = "welcome"

func pushDataPriceAlert(symbol string) client.FCMData {
	return client.FCMData{Type: model.NotificationTypePriceAlert, Symbol: symbol}
}

func pushDataSummary(market string) client.FCMData {
	return client.FCMData{Type: model.NotificationTypeMarketSummary, SummaryType: market}
}

// PriceAlert describes one breach evaluated by the external trigger job.
// ChangePercent is the fractional move (0.05 means 5%). UserIDs is the set of
// users whose thresholds the trigger found breached.
type PriceAlert struct {
	Symbol        string
	CurrentPrice  float64
	PreviousClose float64
	ChangePercent float64
	Direction     string
	UserIDs       []string
}

// DispatchPriceAlert sends one push per registered device of every eligible
// user who has not received this (symbol, direction) alert today.
func (d Dispatcher) DispatchPriceAlert(ctx context.Context, alert PriceAlert) (Result, error) {
	refID := PriceAlertReferenceID(alert.Symbol, alert.Direction)
	date := sentDate(time.Now())

	prefs, err := d.resolvePreferences(ctx, alert.UserIDs)
	if err != nil {
		return Result{}, err
	}
	var candidates []string
	for _, id := range alert.UserIDs {
		if prefs[id].WatchlistPriceAlerts {
			candidates = append(candidates, id)
		}
	}

	eligible, skipped, err := d.ledgerFilter(ctx, candidates, model.NotificationTypePriceAlert, refID, date)
	if err != nil {
		return Result{}, err
	}
	if len(eligible) == 0 {
		d.Logger.Debugf("DispatchPriceAlert: no eligible users for reference: %s, skipped: %d", refID, skipped)
		return Result{Skipped: skipped}, nil
	}

	devices, err := d.Store.DeviceRegistrationsFindByUserIDs(ctx, eligible)
	if err != nil {
		return Result{}, err
	}
	tokens, tokenOwner := tokensWithOwners(devices)

	d.Logger.Infof("DispatchPriceAlert: sending reference: %s to %d device(s) of %d user(s), skipped: %d",
		refID, len(tokens), len(eligible), skipped)
	res := d.Push.SendBulk(ctx, tokens, priceAlertPayload(alert))

	if err := d.recordDeliveredUsers(ctx, res, tokenOwner, model.NotificationTypePriceAlert, refID, date); err != nil {
		return Result{}, err
	}
	return Result{Sent: res.Sent, Failed: res.Failed, Skipped: skipped}, nil
}

// DispatchMarketSummary runs the push pass and the email pass for one
// generated summary and returns the summed counts. The passes dedup under
// separate notification types, so each channel keeps its own per-day gate.
func (d Dispatcher) DispatchMarketSummary(ctx context.Context, summaryType string, summaryID string) (Result, error) {
	mkt, ok := MarketByID(summaryType)
	if !ok {
		return Result{}, errors.Wrapf(ErrUnknownMarket, "summaryType: %s", summaryType)
	}
	ms, err := d.Store.MarketSummaryFindByID(ctx, summaryID)
	if err != nil {
		return Result{}, err
	}

	refID := SummaryReferenceID(mkt.ID, summaryID)
	date := sentDate(time.Now())
	var total Result

	pushRes, err := d.dispatchSummaryPush(ctx, mkt, ms, refID, date)
	if err != nil {
		return Result{}, err
	}
	total.add(pushRes)

	emailRes, err := d.dispatchSummaryEmail(ctx, mkt, ms, refID, date)
	if err != nil {
		return Result{}, err
	}
	total.add(emailRes)

	return total, nil
}

func (d Dispatcher) dispatchSummaryPush(ctx context.Context, mkt Market, ms model.MarketSummary, refID string, date string) (Result, error) {
	devices, err := d.Store.DeviceRegistrationsFindAll(ctx)
	if err != nil {
		return Result{}, err
	}
	userIDs := uniqueUserIDs(devices)

	prefs, err := d.resolvePreferences(ctx, userIDs)
	if err != nil {
		return Result{}, err
	}
	var candidates []string
	for _, id := range userIDs {
		if mkt.PushEnabled(prefs[id]) {
			candidates = append(candidates, id)
		}
	}

	eligible, skipped, err := d.ledgerFilter(ctx, candidates, model.NotificationTypeMarketSummary, refID, date)
	if err != nil {
		return Result{}, err
	}
	if len(eligible) == 0 {
		d.Logger.Debugf("dispatchSummaryPush: no eligible users for reference: %s, skipped: %d", refID, skipped)
		return Result{Skipped: skipped}, nil
	}

	eligibleSet := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = true
	}
	var tokens []string
	tokenOwner := make(map[string]string)
	for _, dev := range devices {
		if eligibleSet[dev.UserID.Hex()] {
			tokens = append(tokens, dev.DeviceToken)
			tokenOwner[dev.DeviceToken] = dev.UserID.Hex()
		}
	}

	d.Logger.Infof("dispatchSummaryPush: sending reference: %s to %d device(s) of %d user(s), skipped: %d",
		refID, len(tokens), len(eligible), skipped)
	res := d.Push.SendBulk(ctx, tokens, summaryPushPayload(mkt, ms))

	if err := d.recordDeliveredUsers(ctx, res, tokenOwner, model.NotificationTypeMarketSummary, refID, date); err != nil {
		return Result{}, err
	}
	return Result{Sent: res.Sent, Failed: res.Failed, Skipped: skipped}, nil
}

func (d Dispatcher) dispatchSummaryEmail(ctx context.Context, mkt Market, ms model.MarketSummary, refID string, date string) (Result, error) {
	subscriberIDs, err := d.Store.PreferenceUserIDsWithFlag(ctx, mkt.EmailPrefField)
	if err != nil {
		return Result{}, err
	}
	if len(subscriberIDs) == 0 {
		return Result{}, nil
	}
	users, err := d.Store.UsersFindActiveByIDs(ctx, subscriberIDs)
	if err != nil {
		return Result{}, err
	}

	userByID := make(map[string]model.User, len(users))
	candidates := make([]string, 0, len(users))
	for _, u := range users {
		userByID[u.ID.Hex()] = u
		candidates = append(candidates, u.ID.Hex())
	}

	eligible, skipped, err := d.ledgerFilter(ctx, candidates, model.NotificationTypeEmail, refID, date)
	if err != nil {
		return Result{}, err
	}
	if len(eligible) == 0 {
		d.Logger.Debugf("dispatchSummaryEmail: no eligible users for reference: %s, skipped: %d", refID, skipped)
		return Result{Skipped: skipped}, nil
	}

	subject, htmlBody, renderErr := renderSummaryEmail(mkt, ms, date)
	if renderErr != nil {
		// A recipient cannot tell a render failure from a send failure.
		d.Logger.Errorf("dispatchSummaryEmail: %v", renderErr)
	}

	d.Logger.Infof("dispatchSummaryEmail: sending reference: %s to %d user(s), skipped: %d", refID, len(eligible), skipped)
	result := Result{Skipped: skipped}
	for _, id := range eligible {
		if renderErr != nil || !d.Email.SendOne(userByID[id].Email, subject, htmlBody) {
			result.Failed++
			continue
		}
		// Recorded immediately after each send so a crash mid fan-out
		// leaves the ledger reflecting who was actually reached.
		if err := d.Store.SentNotificationRecord(ctx, id, model.NotificationTypeEmail, refID, date); err != nil {
			return Result{}, err
		}
		result.Sent++
	}
	return result, nil
}

// DispatchWelcomeEmail sends the post-signup email at most once per user per
// day, under the fixed "welcome" reference id.
func (d Dispatcher) DispatchWelcomeEmail(ctx context.Context, userID string) (Result, error) {
	date := sentDate(time.Now())
	sent, err := d.Store.SentNotificationExists(ctx, userID, model.NotificationTypeEmail, WelcomeReferenceID, date)
	if err != nil {
		return Result{}, err
	}
	if sent {
		return Result{Skipped: 1}, nil
	}

	u, err := d.Store.UserFindByID(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	subject, htmlBody, renderErr := renderWelcomeEmail(u.FirstName)
	if renderErr != nil {
		d.Logger.Errorf("DispatchWelcomeEmail: %v", renderErr)
		return Result{Failed: 1}, nil
	}
	if !d.Email.SendOne(u.Email, subject, htmlBody) {
		return Result{Failed: 1}, nil
	}
	if err := d.Store.SentNotificationRecord(ctx, userID, model.NotificationTypeEmail, WelcomeReferenceID, date); err != nil {
		return Result{}, err
	}
	return Result{Sent: 1}, nil
}

// ledgerFilter partitions candidates into still-eligible users and a count of
// users already served today. The check-then-act gap between this lookup and
// the eventual record is narrow and accepted; the unique ledger index bounds
// the damage to an occasional duplicate.
func (d Dispatcher) ledgerFilter(ctx context.Context, candidates []string, notificationType string, refID string, date string) ([]string, int, error) {
	var eligible []string
	skipped := 0
	for _, id := range candidates {
		sent, err := d.Store.SentNotificationExists(ctx, id, notificationType, refID, date)
		if err != nil {
			return nil, 0, err
		}
		if sent {
			skipped++
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible, skipped, nil
}

// recordDeliveredUsers writes one ledger entry per user with at least one
// delivered token. The dedup contract is per-user-per-day, not per-device.
func (d Dispatcher) recordDeliveredUsers(ctx context.Context, res PushResult, tokenOwner map[string]string, notificationType string, refID string, date string) error {
	recorded := make(map[string]bool)
	for token, delivered := range res.Delivered {
		if !delivered {
			continue
		}
		userID := tokenOwner[token]
		if userID == "" || recorded[userID] {
			continue
		}
		if err := d.Store.SentNotificationRecord(ctx, userID, notificationType, refID, date); err != nil {
			return err
		}
		recorded[userID] = true
	}
	return nil
}

func tokensWithOwners(devices []model.DeviceRegistration) ([]string, map[string]string) {
	tokens := make([]string, 0, len(devices))
	owner := make(map[string]string, len(devices))
	for _, dev := range devices {
		tokens = append(tokens, dev.DeviceToken)
		owner[dev.DeviceToken] = dev.UserID.Hex()
	}
	return tokens, owner
}

func uniqueUserIDs(devices []model.DeviceRegistration) []string {
	seen := make(map[string]bool, len(devices))
	var ids []string
	for _, dev := range devices {
		id := dev.UserID.Hex()
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

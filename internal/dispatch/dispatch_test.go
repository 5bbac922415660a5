package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"marketnotify/internal/client"
	"marketnotify/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type testLogger struct{}

func (testLogger) Debugf(format string, v ...any) {}
func (testLogger) Infof(format string, v ...any)  {}
func (testLogger) Warnf(format string, v ...any)  {}
func (testLogger) Errorf(format string, v ...any) {}

type fakeStore struct {
	ledger    map[string]bool
	devices   []model.DeviceRegistration
	prefs     map[string]model.Preference
	users     map[string]model.User
	summaries map[string]model.MarketSummary
	watchlist []model.WatchlistItem
	purged    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ledger:    map[string]bool{},
		prefs:     map[string]model.Preference{},
		users:     map[string]model.User{},
		summaries: map[string]model.MarketSummary{},
	}
}

func ledgerKey(userID string, nType string, refID string, date string) string {
	return strings.Join([]string{userID, nType, refID, date}, "|")
}

func (f *fakeStore) SentNotificationExists(_ context.Context, userID string, nType string, refID string, date string) (bool, error) {
	return f.ledger[ledgerKey(userID, nType, refID, date)], nil
}

func (f *fakeStore) SentNotificationRecord(_ context.Context, userID string, nType string, refID string, date string) error {
	f.ledger[ledgerKey(userID, nType, refID, date)] = true
	return nil
}

func (f *fakeStore) DeviceRegistrationsFindByUserIDs(_ context.Context, userIDs []string) ([]model.DeviceRegistration, error) {
	want := map[string]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	var ds []model.DeviceRegistration
	for _, d := range f.devices {
		if want[d.UserID.Hex()] {
			ds = append(ds, d)
		}
	}
	return ds, nil
}

func (f *fakeStore) DeviceRegistrationsFindAll(_ context.Context) ([]model.DeviceRegistration, error) {
	return f.devices, nil
}

func (f *fakeStore) DeviceRegistrationsDeleteByTokens(_ context.Context, tokens []string) (int64, error) {
	dead := map[string]bool{}
	for _, t := range tokens {
		dead[t] = true
	}
	var kept []model.DeviceRegistration
	deleted := int64(0)
	for _, d := range f.devices {
		if dead[d.DeviceToken] {
			deleted++
			f.purged = append(f.purged, d.DeviceToken)
			continue
		}
		kept = append(kept, d)
	}
	f.devices = kept
	return deleted, nil
}

func (f *fakeStore) PreferencesFindByUserIDs(_ context.Context, userIDs []string) ([]model.Preference, error) {
	var ps []model.Preference
	for _, id := range userIDs {
		if p, ok := f.prefs[id]; ok {
			ps = append(ps, p)
		}
	}
	return ps, nil
}

func (f *fakeStore) PreferenceUserIDsWithFlag(_ context.Context, field string) ([]string, error) {
	var ids []string
	for id, p := range f.prefs {
		var flag *bool
		switch field {
		case "email_usa_market_summary":
			flag = p.EmailUSAMarketSummary
		case "email_asx_market_summary":
			flag = p.EmailASXMarketSummary
		case "email_europe_market_summary":
			flag = p.EmailEuropeMarketSummary
		}
		if flag != nil && *flag {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) UsersFindActiveByIDs(_ context.Context, userIDs []string) ([]model.User, error) {
	var us []model.User
	for _, id := range userIDs {
		if u, ok := f.users[id]; ok && u.SubscriptionStatus == model.SubscriptionStatusActive {
			us = append(us, u)
		}
	}
	return us, nil
}

func (f *fakeStore) UserFindByID(_ context.Context, userID string) (model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return u, mongo.ErrNoDocuments
	}
	return u, nil
}

func (f *fakeStore) MarketSummaryFindByID(_ context.Context, summaryID string) (model.MarketSummary, error) {
	ms, ok := f.summaries[summaryID]
	if !ok {
		return ms, mongo.ErrNoDocuments
	}
	return ms, nil
}

func (f *fakeStore) WatchlistFindAll(_ context.Context) ([]model.WatchlistItem, error) {
	return f.watchlist, nil
}

func (f *fakeStore) ledgerCountFor(userID string) int {
	n := 0
	for key, set := range f.ledger {
		if set && strings.HasPrefix(key, userID+"|") {
			n++
		}
	}
	return n
}

type fakeFCM struct {
	configured   bool
	calls        int
	lastReq      client.FCMSendRequest
	errorByToken map[string]string
	err          error
}

func (f *fakeFCM) FCMConfigured() bool { return f.configured }

func (f *fakeFCM) FCMSendNotification(req client.FCMSendRequest) (client.FCMSendResponse, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return client.FCMSendResponse{}, f.err
	}
	resp := client.FCMSendResponse{}
	for _, token := range req.RegistrationIDs {
		if code, ok := f.errorByToken[token]; ok {
			c := code
			resp.Failure++
			resp.Results = append(resp.Results, client.FCMSendResult{Error: &c})
		} else {
			resp.Success++
			resp.Results = append(resp.Results, client.FCMSendResult{MessageID: "mid"})
		}
	}
	return resp, nil
}

type fakeEmail struct {
	configured bool
	failFor    map[string]bool
	sentTo     []string
}

func (f *fakeEmail) EmailConfigured() bool { return f.configured }

func (f *fakeEmail) EmailSend(from string, to string, subject string, htmlBody string) error {
	if f.failFor[to] {
		return errors.New("mail rejected")
	}
	f.sentTo = append(f.sentTo, to)
	return nil
}

func newTestDispatcher(store *fakeStore, fcm *fakeFCM, email *fakeEmail) Dispatcher {
	return Dispatcher{
		Store:  store,
		Push:   &PushAdapter{Client: fcm, Store: store, Logger: testLogger{}},
		Email:  &EmailAdapter{Client: email, From: "noreply@example.com", Logger: testLogger{}},
		Logger: testLogger{},
	}
}

func addUser(f *fakeStore, status string) string {
	id := primitive.NewObjectID()
	f.users[id.Hex()] = model.User{
		ID:                 id,
		Email:              id.Hex() + "@example.com",
		FirstName:          "Sam",
		SubscriptionStatus: status,
	}
	return id.Hex()
}

func addDevice(f *fakeStore, userID string, token string) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		panic(err)
	}
	f.devices = append(f.devices, model.DeviceRegistration{
		UserID:      objID,
		DeviceToken: token,
		Platform:    model.PlatformIOS,
	})
}

func setPref(f *fakeStore, userID string, mutate func(*model.Preference)) {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		panic(err)
	}
	p := f.prefs[userID]
	p.UserID = objID
	mutate(&p)
	f.prefs[userID] = p
}

func boolPtr(b bool) *bool { return &b }

func float64Ptr(v float64) *float64 { return &v }

func TestDispatchPriceAlertIdempotentPerDay(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: true}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	userID := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, userID, "tok1")

	alert := PriceAlert{
		Symbol:        "TSLA",
		CurrentPrice:  442.05,
		PreviousClose: 420.00,
		ChangePercent: 0.0525,
		Direction:     DirectionUp,
		UserIDs:       []string{userID},
	}

	res, err := d.DispatchPriceAlert(context.Background(), alert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("first dispatch: got %+v, want {Sent:1 Failed:0 Skipped:0}", res)
	}

	res, err = d.DispatchPriceAlert(context.Background(), alert)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || res.Failed != 0 || res.Skipped != 1 {
		t.Fatalf("second dispatch: got %+v, want {Sent:0 Failed:0 Skipped:1}", res)
	}
	if fcm.calls != 1 {
		t.Fatalf("provider called %d time(s), want 1: a fully served notification must short-circuit", fcm.calls)
	}
}

func TestDispatchPriceAlertDedupIsPerUserNotPerDevice(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: true}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	userID := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, userID, "tok1")
	addDevice(store, userID, "tok2")

	res, err := d.DispatchPriceAlert(context.Background(), PriceAlert{
		Symbol: "SPY", Direction: DirectionUp, ChangePercent: 0.06, UserIDs: []string{userID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 2 {
		t.Fatalf("got Sent %d, want 2 (one per device)", res.Sent)
	}
	if n := store.ledgerCountFor(userID); n != 1 {
		t.Fatalf("got %d ledger entries, want exactly 1 per user per day", n)
	}
}

func TestDispatchPriceAlertReferenceIDDiscriminatesDirection(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: true}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	userID := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, userID, "tok1")

	up := PriceAlert{Symbol: "AAPL", Direction: DirectionUp, ChangePercent: 0.05, UserIDs: []string{userID}}
	down := PriceAlert{Symbol: "AAPL", Direction: DirectionDown, ChangePercent: 0.05, UserIDs: []string{userID}}

	res, err := d.DispatchPriceAlert(context.Background(), up)
	if err != nil || res.Sent != 1 {
		t.Fatalf("up dispatch: got %+v, %v", res, err)
	}
	res, err = d.DispatchPriceAlert(context.Background(), down)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.Skipped != 0 {
		t.Fatalf("down dispatch after up: got %+v, want an independent send", res)
	}
}

func TestDispatchPriceAlertHonorsDisabledPreference(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: true}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	userID := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, userID, "tok1")
	setPref(store, userID, func(p *model.Preference) {
		p.WatchlistPriceAlerts = boolPtr(false)
	})

	res, err := d.DispatchPriceAlert(context.Background(), PriceAlert{
		Symbol: "NVDA", Direction: DirectionUp, UserIDs: []string{userID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("got %+v, want nothing dispatched", res)
	}
	if fcm.calls != 0 {
		t.Fatalf("provider called for a user with alerts disabled")
	}
}

func TestDispatchPriceAlertUnconfiguredProvider(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: false}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	var userIDs []string
	for i := 0; i < 5; i++ {
		id := addUser(store, model.SubscriptionStatusActive)
		addDevice(store, id, "tok"+id)
		userIDs = append(userIDs, id)
	}

	res, err := d.DispatchPriceAlert(context.Background(), PriceAlert{
		Symbol: "SPY", Direction: DirectionUp, UserIDs: userIDs,
	})
	if err != nil {
		t.Fatalf("unconfigured provider must not be a fatal error, got: %v", err)
	}
	if res.Sent != 0 || res.Failed != 5 || res.Skipped != 0 {
		t.Fatalf("got %+v, want {Sent:0 Failed:5 Skipped:0}", res)
	}
	for _, id := range userIDs {
		if n := store.ledgerCountFor(id); n != 0 {
			t.Fatalf("ledger entry written for a failed recipient: %s", id)
		}
	}
}

func TestDispatchPriceAlertPermanentFailurePurgesToken(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: true, errorByToken: map[string]string{
		"tokDead": client.FCMErrorNotRegistered,
		"tokSlow": "Unavailable",
	}}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	okUser := addUser(store, model.SubscriptionStatusActive)
	deadUser := addUser(store, model.SubscriptionStatusActive)
	slowUser := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, okUser, "tokOK")
	addDevice(store, deadUser, "tokDead")
	addDevice(store, slowUser, "tokSlow")

	res, err := d.DispatchPriceAlert(context.Background(), PriceAlert{
		Symbol: "MSFT", Direction: DirectionDown, UserIDs: []string{okUser, deadUser, slowUser},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 1 || res.Failed != 2 {
		t.Fatalf("got %+v, want {Sent:1 Failed:2}", res)
	}

	if len(store.purged) != 1 || store.purged[0] != "tokDead" {
		t.Fatalf("purged tokens %v, want only tokDead", store.purged)
	}
	remaining, _ := store.DeviceRegistrationsFindByUserIDs(context.Background(), []string{deadUser, slowUser})
	for _, dev := range remaining {
		if dev.DeviceToken == "tokDead" {
			t.Fatalf("dead token still resolvable after dispatch")
		}
	}

	if store.ledgerCountFor(okUser) != 1 {
		t.Fatalf("delivered user missing ledger entry")
	}
	if store.ledgerCountFor(deadUser) != 0 || store.ledgerCountFor(slowUser) != 0 {
		t.Fatalf("failed recipients must not get ledger entries")
	}
}

func TestDispatchMarketSummaryEmailChannel(t *testing.T) {
	store := newFakeStore()
	email := &fakeEmail{configured: true}
	d := newTestDispatcher(store, &fakeFCM{configured: true}, email)

	var subscribed []string
	for i := 0; i < 3; i++ {
		id := addUser(store, model.SubscriptionStatusActive)
		setPref(store, id, func(p *model.Preference) { p.EmailUSAMarketSummary = boolPtr(true) })
		subscribed = append(subscribed, id)
	}
	optedOut := addUser(store, model.SubscriptionStatusActive)
	setPref(store, optedOut, func(p *model.Preference) { p.EmailUSAMarketSummary = boolPtr(false) })
	inactive := addUser(store, "canceled")
	setPref(store, inactive, func(p *model.Preference) { p.EmailUSAMarketSummary = boolPtr(true) })

	summaryID := primitive.NewObjectID().Hex()
	store.summaries[summaryID] = model.MarketSummary{Content: "Stocks closed higher."}

	res, err := d.DispatchMarketSummary(context.Background(), MarketUSA, summaryID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 3 || res.Failed != 0 {
		t.Fatalf("got %+v, want 3 sent", res)
	}

	sent := map[string]bool{}
	for _, to := range email.sentTo {
		sent[to] = true
	}
	for _, id := range subscribed {
		if !sent[store.users[id].Email] {
			t.Fatalf("subscribed user %s did not receive the wrap", id)
		}
	}
	if sent[store.users[optedOut].Email] || sent[store.users[inactive].Email] {
		t.Fatalf("ineligible user received the wrap")
	}

	res, err = d.DispatchMarketSummary(context.Background(), MarketUSA, summaryID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 3 {
		t.Fatalf("second dispatch: got %+v, want everyone skipped", res)
	}
}

func TestDispatchMarketSummaryEmailFailureSkipsLedger(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store, &fakeFCM{configured: true}, &fakeEmail{configured: false})

	id := addUser(store, model.SubscriptionStatusActive)
	setPref(store, id, func(p *model.Preference) { p.EmailASXMarketSummary = boolPtr(true) })

	summaryID := primitive.NewObjectID().Hex()
	store.summaries[summaryID] = model.MarketSummary{Content: "Miners dragged the index lower."}

	res, err := d.DispatchMarketSummary(context.Background(), MarketASX, summaryID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed != 1 || res.Sent != 0 {
		t.Fatalf("got %+v, want 1 failed", res)
	}
	if store.ledgerCountFor(id) != 0 {
		t.Fatalf("ledger entry written despite failed send, retry later today would be suppressed")
	}
}

func TestDispatchMarketSummaryPushChannel(t *testing.T) {
	store := newFakeStore()
	fcm := &fakeFCM{configured: true}
	d := newTestDispatcher(store, fcm, &fakeEmail{configured: true})

	subscriber := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, subscriber, "tokSub")
	optedOut := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, optedOut, "tokOut")
	setPref(store, optedOut, func(p *model.Preference) { p.EuropeMarketSummary = boolPtr(false) })

	summaryID := primitive.NewObjectID().Hex()
	store.summaries[summaryID] = model.MarketSummary{Content: "European shares ended mixed."}

	res, err := d.DispatchMarketSummary(context.Background(), MarketEurope, summaryID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No stored row means summary pushes default to on.
	if res.Sent != 1 || res.Failed != 0 {
		t.Fatalf("got %+v, want 1 sent", res)
	}
	if len(fcm.lastReq.RegistrationIDs) != 1 || fcm.lastReq.RegistrationIDs[0] != "tokSub" {
		t.Fatalf("sent to tokens %v, want only tokSub", fcm.lastReq.RegistrationIDs)
	}
	if store.ledgerCountFor(subscriber) != 1 || store.ledgerCountFor(optedOut) != 0 {
		t.Fatalf("ledger entries do not match delivered users")
	}
}

func TestDispatchMarketSummaryUnknownMarket(t *testing.T) {
	d := newTestDispatcher(newFakeStore(), &fakeFCM{configured: true}, &fakeEmail{configured: true})
	_, err := d.DispatchMarketSummary(context.Background(), "nikkei", primitive.NewObjectID().Hex())
	if !errors.Is(err, ErrUnknownMarket) {
		t.Fatalf("got err %v, want ErrUnknownMarket", err)
	}
}

func TestDispatchWelcomeEmailOncePerDay(t *testing.T) {
	store := newFakeStore()
	email := &fakeEmail{configured: true}
	d := newTestDispatcher(store, &fakeFCM{configured: true}, email)

	id := addUser(store, model.SubscriptionStatusActive)

	res, err := d.DispatchWelcomeEmail(context.Background(), id)
	if err != nil || res.Sent != 1 {
		t.Fatalf("first welcome: got %+v, %v", res, err)
	}
	res, err = d.DispatchWelcomeEmail(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Sent != 0 || res.Skipped != 1 {
		t.Fatalf("second welcome: got %+v, want skipped", res)
	}
	if len(email.sentTo) != 1 {
		t.Fatalf("sent %d welcome email(s), want 1", len(email.sentTo))
	}
}

func TestResolveWatchlistTargets(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store, &fakeFCM{configured: true}, &fakeEmail{configured: true})

	defaulted := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, defaulted, "tokA")
	custom := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, custom, "tokB")
	setPref(store, custom, func(p *model.Preference) { p.PriceAlertThreshold = float64Ptr(0.10) })
	disabled := addUser(store, model.SubscriptionStatusActive)
	addDevice(store, disabled, "tokC")
	setPref(store, disabled, func(p *model.Preference) { p.WatchlistPriceAlerts = boolPtr(false) })
	deviceless := addUser(store, model.SubscriptionStatusActive)

	for _, id := range []string{defaulted, custom, disabled, deviceless} {
		objID, _ := primitive.ObjectIDFromHex(id)
		store.watchlist = append(store.watchlist, model.WatchlistItem{UserID: objID, Ticker: "TSLA"})
	}

	targets, err := d.ResolveWatchlistTargets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byUser := map[string]model.WatchlistTarget{}
	for _, target := range targets {
		byUser[target.UserID] = target
	}
	if len(targets) != 2 {
		t.Fatalf("got %d target(s), want 2: %+v", len(targets), targets)
	}
	if got := byUser[defaulted].Threshold; got != model.DefaultPriceAlertThreshold {
		t.Fatalf("defaulted user threshold %v, want %v", got, model.DefaultPriceAlertThreshold)
	}
	if got := byUser[custom].Threshold; got != 0.10 {
		t.Fatalf("custom user threshold %v, want 0.10", got)
	}
	if _, ok := byUser[disabled]; ok {
		t.Fatalf("user with alerts disabled resolved as a target")
	}
	if _, ok := byUser[deviceless]; ok {
		t.Fatalf("user without devices resolved as a target")
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strathlearn/api/internal/apperrs"
	"github.com/strathlearn/api/internal/db"
)

// fakeStore is an in-memory ReconcileStore.
type fakeStore struct {
	users map[string]db.User // keyed by user id
	subs  map[string]db.Subscription

	// failOn injects an error for a named method.
	failOn map[string]error

	createCalls int
	updateCalls int
	linkCalls   []db.UpdateUserCustomerIDParams
}

func newFakeStore(users ...db.User) *fakeStore {
	s := &fakeStore{
		users:  make(map[string]db.User),
		subs:   make(map[string]db.Subscription),
		failOn: make(map[string]error),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (db.User, error) {
	if err := s.failOn["GetUserByEmail"]; err != nil {
		return db.User{}, err
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *fakeStore) GetUserByID(_ context.Context, id string) (db.User, error) {
	if err := s.failOn["GetUserByID"]; err != nil {
		return db.User{}, err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *fakeStore) GetUserByCustomerID(_ context.Context, customerID string) (db.User, error) {
	if err := s.failOn["GetUserByCustomerID"]; err != nil {
		return db.User{}, err
	}
	for _, u := range s.users {
		if u.CustomerID.Valid && u.CustomerID.String == customerID {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (s *fakeStore) UpdateUserCustomerID(_ context.Context, arg db.UpdateUserCustomerIDParams) (db.User, error) {
	if err := s.failOn["UpdateUserCustomerID"]; err != nil {
		return db.User{}, err
	}
	u, ok := s.users[arg.ID]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	u.CustomerID = pgtype.Text{String: arg.CustomerID, Valid: true}
	s.users[arg.ID] = u
	s.linkCalls = append(s.linkCalls, arg)
	return u, nil
}

func (s *fakeStore) GetSubscriptionByID(_ context.Context, id string) (db.Subscription, error) {
	if err := s.failOn["GetSubscriptionByID"]; err != nil {
		return db.Subscription{}, err
	}
	if sub, ok := s.subs[id]; ok {
		return sub, nil
	}
	return db.Subscription{}, pgx.ErrNoRows
}

func (s *fakeStore) CreateSubscription(_ context.Context, arg db.CreateSubscriptionParams) (db.Subscription, error) {
	if err := s.failOn["CreateSubscription"]; err != nil {
		return db.Subscription{}, err
	}
	s.createCalls++
	sub := db.Subscription{
		ID:                arg.ID,
		UserID:            arg.UserID,
		Status:            arg.Status,
		ProductID:         arg.ProductID,
		Amount:            arg.Amount,
		Currency:          arg.Currency,
		Interval:          arg.Interval,
		CurrentPeriodEnd:  arg.CurrentPeriodEnd,
		CancelAtPeriodEnd: arg.CancelAtPeriodEnd,
	}
	s.subs[arg.ID] = sub
	return sub, nil
}

func (s *fakeStore) UpdateSubscriptionRenewal(_ context.Context, arg db.UpdateSubscriptionRenewalParams) (db.Subscription, error) {
	if err := s.failOn["UpdateSubscriptionRenewal"]; err != nil {
		return db.Subscription{}, err
	}
	sub, ok := s.subs[arg.ID]
	if !ok {
		return db.Subscription{}, pgx.ErrNoRows
	}
	sub.Status = arg.Status
	sub.CurrentPeriodEnd = arg.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = arg.CancelAtPeriodEnd
	s.subs[arg.ID] = sub
	s.updateCalls++
	return sub, nil
}

func testUser(id, email string) db.User {
	return db.User{ID: id, Email: email, Name: "Test User"}
}

func orderEvent() OrderPaidEvent {
	return OrderPaidEvent{
		Customer: Customer{ID: "cus_1", Email: "a@x.com"},
		Subscription: &SubscriptionEvent{
			ID: "sub_1",
		},
		ProductID: "prod_1",
		Amount:    900,
		Currency:  "usd",
	}
}

func TestReconcileOrderPaidCreatesSubscription(t *testing.T) {
	store := newFakeStore(testUser("u1", "a@x.com"))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	outcome, err := ReconcileOrderPaid(context.Background(), store, now, orderEvent())
	require.NoError(t, err)

	assert.True(t, outcome.Created)
	assert.False(t, outcome.Updated)
	assert.Equal(t, "u1", outcome.UserID)
	assert.Equal(t, "sub_1", outcome.SubscriptionID)

	sub, ok := store.subs["sub_1"]
	require.True(t, ok)
	assert.Equal(t, "u1", sub.UserID)
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.Equal(t, IntervalMonth, sub.Interval)
	assert.Equal(t, now.Add(30*24*time.Hour), sub.CurrentPeriodEnd.Time)
	assert.Equal(t, int64(900), sub.Amount)

	// Customer id backlink is written on first contact
	require.Len(t, store.linkCalls, 1)
	assert.Equal(t, "cus_1", store.linkCalls[0].CustomerID)
	assert.Equal(t, "u1", store.linkCalls[0].ID)
}

func TestReconcileOrderPaidRedeliveryUpdatesInPlace(t *testing.T) {
	store := newFakeStore(testUser("u1", "a@x.com"))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := ReconcileOrderPaid(context.Background(), store, now, orderEvent())
	require.NoError(t, err)

	// Redelivery carries the provider's current view of the subscription
	ev := orderEvent()
	ev.Subscription.Status = SubscriptionStatusCanceled
	ev.Subscription.CancelAtPeriodEnd = true
	ev.Subscription.CurrentPeriodEnd = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	outcome, err := ReconcileOrderPaid(context.Background(), store, now.Add(time.Hour), ev)
	require.NoError(t, err)

	assert.False(t, outcome.Created)
	assert.True(t, outcome.Updated)

	require.Len(t, store.subs, 1)
	sub := store.subs["sub_1"]
	assert.Equal(t, SubscriptionStatusCanceled, sub.Status)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, ev.Subscription.CurrentPeriodEnd, sub.CurrentPeriodEnd.Time)

	// Immutable fields survive redelivery untouched
	assert.Equal(t, "prod_1", sub.ProductID)
	assert.Equal(t, int64(900), sub.Amount)
	assert.Equal(t, 1, store.createCalls)
	assert.Equal(t, 1, store.updateCalls)
}

func TestReconcileOrderPaidUnresolvedCustomer(t *testing.T) {
	store := newFakeStore() // no users at all

	outcome, err := ReconcileOrderPaid(context.Background(), store, time.Now(), orderEvent())
	require.NoError(t, err)

	assert.True(t, outcome.Unresolved)
	assert.Empty(t, outcome.UserID)
	assert.Empty(t, store.subs)
	assert.Empty(t, store.linkCalls)
}

func TestReconcileOrderPaidNoCustomerIdentity(t *testing.T) {
	store := newFakeStore(testUser("u1", "a@x.com"))

	ev := orderEvent()
	ev.Customer = Customer{}

	_, err := ReconcileOrderPaid(context.Background(), store, time.Now(), ev)
	require.Error(t, err)
	assert.True(t, apperrs.CodeIs(err, apperrs.CodeInvalidInput))
}

func TestReconcileOrderPaidLookupErrorPropagates(t *testing.T) {
	store := newFakeStore(testUser("u1", "a@x.com"))
	store.failOn["GetUserByEmail"] = errors.New("connection reset")

	_, err := ReconcileOrderPaid(context.Background(), store, time.Now(), orderEvent())
	require.Error(t, err)
	assert.Empty(t, store.subs)
}

func TestReconcileOrderPaidCreateFailurePropagates(t *testing.T) {
	store := newFakeStore(testUser("u1", "a@x.com"))
	store.failOn["CreateSubscription"] = errors.New("deadlock detected")

	outcome, err := ReconcileOrderPaid(context.Background(), store, time.Now(), orderEvent())
	require.Error(t, err)
	assert.False(t, outcome.Created)
}

func TestReconcileOrderPaidResolvesByExternalID(t *testing.T) {
	store := newFakeStore(testUser("u1", "other@x.com"))

	ev := orderEvent()
	ev.Customer = Customer{ID: "cus_1", Email: "unknown@x.com", ExternalID: "u1"}

	outcome, err := ReconcileOrderPaid(context.Background(), store, time.Now(), ev)
	require.NoError(t, err)
	assert.Equal(t, "u1", outcome.UserID)
	assert.True(t, outcome.Created)
}

func TestReconcileOrderPaidResolvesByCustomerID(t *testing.T) {
	u := testUser("u1", "other@x.com")
	u.CustomerID = pgtype.Text{String: "cus_1", Valid: true}
	store := newFakeStore(u)

	ev := orderEvent()
	ev.Customer = Customer{ID: "cus_1", Email: "unknown@x.com"}

	outcome, err := ReconcileOrderPaid(context.Background(), store, time.Now(), ev)
	require.NoError(t, err)
	assert.Equal(t, "u1", outcome.UserID)

	// The backlink already matches, so no redundant write happens
	assert.Empty(t, store.linkCalls)
}

func TestReconcileOrderPaidOrderWithoutSubscription(t *testing.T) {
	store := newFakeStore(testUser("u1", "a@x.com"))

	ev := orderEvent()
	ev.Subscription = nil

	outcome, err := ReconcileOrderPaid(context.Background(), store, time.Now(), ev)
	require.NoError(t, err)

	assert.Equal(t, "u1", outcome.UserID)
	assert.Empty(t, outcome.SubscriptionID)
	assert.Empty(t, store.subs)
	require.Len(t, store.linkCalls, 1)
}

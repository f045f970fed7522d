package registration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventreg/internal/audit"
	"eventreg/internal/catalog"
	id "eventreg/pkg/domain"
	dErrors "eventreg/pkg/domain-errors"
	"eventreg/pkg/token"
)

func TestSubmit_PaidRegistrationLifecycle(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	svc := f.service(WithClock(fixedClock(now)))

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 2}, validRegistrant(), nil)
	require.NoError(t, err)

	assert.Equal(t, StatusUnsubmitted, reg.Status)
	assert.Equal(t, catalog.Money{Amount: 2000, Currency: "USD"}, reg.Total)
	assert.Len(t, reg.Token, token.Length)
	assert.Equal(t, now, reg.CreatedAt)
	require.Len(t, reg.Lines, 1)
	assert.Equal(t, 2, reg.Lines[0].Quantity)
	assert.Equal(t, "General Admission", reg.Lines[0].Title)

	paid, err := svc.MarkPaid(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusValid, paid.Status)

	stored, err := f.store.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusValid, stored.Status)
}

func TestSubmit_FreeRegistrationWithConfirmation(t *testing.T) {
	limit := 24 * time.Hour
	f := newFixture(withRequiresConfirmation(&limit))
	svc := f.service()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.freeTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusUnconfirmed, reg.Status)
	assert.True(t, reg.Total.IsZero())

	t.Run("wrong token is rejected", func(t *testing.T) {
		_, err := svc.Confirm(context.Background(), reg.ID, "0000000000000000000000000000000000009999")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenMismatch))
	})

	t.Run("matching token confirms", func(t *testing.T) {
		confirmed, err := svc.Confirm(context.Background(), reg.ID, reg.Token)
		require.NoError(t, err)
		assert.Equal(t, StatusValid, confirmed.Status)
	})

	t.Run("confirming twice reports an invalid transition", func(t *testing.T) {
		_, err := svc.Confirm(context.Background(), reg.ID, reg.Token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestSubmit_FreeRegistrationWithoutConfirmationIsValidImmediately(t *testing.T) {
	f := newFixture()
	svc := f.service()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.freeTicket.ID: 2}, validRegistrant(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusValid, reg.Status)
}

func TestSubmit_ValidationFailurePersistsNothing(t *testing.T) {
	f := newFixture()
	svc := f.service()

	_, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{}, Registrant{}, nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	all, err := f.store.FindByOccurrence(context.Background(), f.occurrence.ID, FindFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmit_UnknownOccurrence(t *testing.T) {
	f := newFixture()
	svc := f.service()

	_, err := svc.Submit(context.Background(), id.NewOccurrenceID(),
		Selection{f.paidTicket.ID: 1}, validRegistrant(), nil)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSubmit_IdentityOverridesContactFields(t *testing.T) {
	f := newFixture()
	svc := f.service()
	memberID := id.NewMemberID()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 1},
		Registrant{Name: "Typed Name", Email: "typed@example.com"},
		&Identity{MemberID: memberID, Name: "Member Name", Email: "member@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Member Name", reg.Name)
	assert.Equal(t, "member@example.com", reg.Email)
	assert.Equal(t, memberID, reg.MemberID)
}

func TestSubmit_PersistsNormalizedEmail(t *testing.T) {
	f := newFixture()
	svc := f.service()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 1},
		Registrant{Name: "Jane Doe", Email: "  Jane@Example.COM "}, nil)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", reg.Email)

	stored, err := f.store.GetByID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", stored.Email)
}

func TestSubmit_ResubmitDraftKeepsTokenAndCreationTime(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	clock := now
	svc := f.service(WithClock(func() time.Time { return clock }))

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)

	clock = now.Add(time.Hour)
	updated, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 3}, validRegistrant(), nil,
		WithExistingRegistration(reg.ID))
	require.NoError(t, err)

	assert.Equal(t, reg.ID, updated.ID)
	assert.Equal(t, reg.Token, updated.Token)
	assert.Equal(t, reg.CreatedAt, updated.CreatedAt)
	assert.Equal(t, catalog.Money{Amount: 3000, Currency: "USD"}, updated.Total)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 3, updated.Lines[0].Quantity)
}

func TestSubmit_CompletedRegistrationCannotBeResubmitted(t *testing.T) {
	f := newFixture()
	svc := f.service()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.freeTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)
	require.Equal(t, StatusValid, reg.Status)

	_, err = svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.freeTicket.ID: 2}, validRegistrant(), nil,
		WithExistingRegistration(reg.ID))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestGet_RequiresMatchingToken(t *testing.T) {
	f := newFixture()
	svc := f.service()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)

	t.Run("holder sees the registration", func(t *testing.T) {
		got, err := svc.Get(context.Background(), reg.ID, reg.Token)
		require.NoError(t, err)
		assert.Equal(t, reg.ID, got.ID)
	})

	t.Run("wrong token looks like an unknown registration", func(t *testing.T) {
		_, err := svc.Get(context.Background(), reg.ID, "0000000000000000000000000000000000009999")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Get(context.Background(), id.NewRegistrationID(), reg.Token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestCancel_IsIdempotentAndAuditedOnce(t *testing.T) {
	f := newFixture()
	inbox := make(chan audit.Event, 16)
	svc := f.service(WithAuditPublisher(audit.NewPublisher(inbox, testLogger())))

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.paidTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)

	canceled, err := svc.Cancel(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, canceled.Status)

	again, err := svc.Cancel(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, again.Status)

	// One submit event plus exactly one cancel event; the no-op repeat stays
	// silent.
	close(inbox)
	var actions []audit.Action
	for event := range inbox {
		actions = append(actions, event.Action)
	}
	assert.Equal(t, []audit.Action{audit.ActionSubmitted, audit.ActionCanceled}, actions)
}

func TestExpire_OnlyUnconfirmedRegistrations(t *testing.T) {
	limit := time.Hour
	f := newFixture(withRequiresConfirmation(&limit))
	svc := f.service()

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.freeTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)
	require.Equal(t, StatusUnconfirmed, reg.Status)

	expired, err := svc.Expire(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, expired.Status)

	_, err = svc.Expire(context.Background(), reg.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func TestDeadline_FollowsEventPolicy(t *testing.T) {
	limit := 48 * time.Hour
	f := newFixture(withRequiresConfirmation(&limit))
	now := time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	svc := f.service(WithClock(fixedClock(now)))

	reg, err := svc.Submit(context.Background(), f.occurrence.ID,
		Selection{f.freeTicket.ID: 1}, validRegistrant(), nil)
	require.NoError(t, err)

	deadline, ok, err := svc.Deadline(context.Background(), reg)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, now.Add(limit), deadline)

	confirmed, err := svc.Confirm(context.Background(), reg.ID, reg.Token)
	require.NoError(t, err)

	_, ok, err = svc.Deadline(context.Background(), confirmed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmit_ConcurrentSubmissionsRespectCapacity(t *testing.T) {
	f := newFixture()
	single := 1
	lastSeat := f.putTicketType("Last Seat", catalog.Money{Amount: 2500, Currency: "USD"}, catalog.TicketKindPaid, &single)
	svc := f.service()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			registrant := Registrant{
				Name:  "Racer",
				Email: string(rune('a'+i)) + "@example.com",
			}
			_, errs[i] = svc.Submit(context.Background(), f.occurrence.ID,
				Selection{lastSeat.ID: 1}, registrant, nil)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, winners)

	taken, err := f.store.SumQuantityForType(context.Background(), lastSeat.ID, StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, 1, taken)
}

package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kirimwa/dispatch-service/internal/core_domain"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/domain"
	"github.com/kirimwa/dispatch-service/internal/dispatch_service/provider"
)

// --- Mocks ---

// scriptedProvider returns per-recipient outcomes and records every call.
type scriptedProvider struct {
	mu       sync.Mutex
	calls    []provider.SendRequestDetails
	outcomes map[string]provider.SendResponseDetails // keyed by recipient phone
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{outcomes: make(map[string]provider.SendResponseDetails)}
}

func (p *scriptedProvider) failFor(phone, errMsg string) {
	p.outcomes[phone] = provider.SendResponseDetails{IsSuccess: false, ErrorMessage: errMsg}
}

func (p *scriptedProvider) Send(_ context.Context, details provider.SendRequestDetails) provider.SendResponseDetails {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, details)
	if out, ok := p.outcomes[details.Recipient]; ok {
		return out
	}
	return provider.SendResponseDetails{IsSuccess: true, ProviderPayload: []byte(`{"status":true}`)}
}

func (p *scriptedProvider) GetName() string { return "scripted" }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type MockRunRecorder struct {
	mock.Mock
}

func (m *MockRunRecorder) RecordRun(ctx context.Context, run core_domain.DispatchRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

// recordingSleeper collects requested delays without actually sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

// --- Test setup ---

type dispatchTestComponents struct {
	svc      *DispatchAppService
	prov     *scriptedProvider
	recorder *MockRunRecorder
	sleeper  *recordingSleeper
}

func setupDispatchTest(t *testing.T) *dispatchTestComponents {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prov := newScriptedProvider()
	recorder := new(MockRunRecorder)

	svc := NewDispatchAppService(
		func(provider.Credentials) provider.DeliveryProvider { return prov },
		recorder,
		nil, // no NATS in unit tests
		logger,
	)
	sleeper := &recordingSleeper{}
	// Deterministic pacing: no real waiting, fixed jitter.
	svc.pacer = newPacer(sleeper.sleep, func(time.Duration) time.Duration { return 1999 * time.Millisecond })

	return &dispatchTestComponents{svc: svc, prov: prov, recorder: recorder, sleeper: sleeper}
}

func testCreds() provider.Credentials {
	return provider.Credentials{APIKey: "key", SenderID: "628000001"}
}

func pendingContacts() []core_domain.Contact {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return []core_domain.Contact{
		core_domain.NewContact(1, "Ana", "6281111", now),
		core_domain.NewContact(2, "Budi", "6282222", now),
	}
}

// --- Tests ---

func TestDispatch_BulkAllSucceed(t *testing.T) {
	c := setupDispatchTest(t)
	c.recorder.On("RecordRun", mock.Anything, mock.Anything).Return(nil).Once()

	contacts := pendingContacts()
	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    contacts,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	require.Len(t, outcome.Results, 2)
	assert.Equal(t, core_domain.ResultStatusSuccess, outcome.Results[0].Status)
	assert.Equal(t, core_domain.ResultStatusSuccess, outcome.Results[1].Status)
	assert.Equal(t, "Hi Ana", outcome.Results[0].Message)
	assert.Equal(t, "Hi Budi", outcome.Results[1].Message)

	for _, contact := range outcome.Contacts {
		assert.Equal(t, core_domain.ContactStatusSent, contact.Status)
		require.NotNil(t, contact.SentAt)
		assert.Empty(t, contact.Error)
	}
	// The caller's slice shares backing storage: partial progress is visible
	// without waiting for the return value.
	assert.Equal(t, core_domain.ContactStatusSent, contacts[0].Status)

	// Exactly one pacing delay between the two sends, within [3s, 5s).
	require.Len(t, c.sleeper.delays, 1)
	delay := c.sleeper.delays[0]
	assert.Equal(t, 3000*time.Millisecond+1999*time.Millisecond, delay)
	assert.GreaterOrEqual(t, delay, bulkBaseDelay)
	assert.Less(t, delay, bulkBaseDelay+bulkJitterMax)

	assert.Equal(t, 2, outcome.Run.TotalRecipients)
	assert.Equal(t, 2, outcome.Run.SuccessCount)
	assert.Equal(t, 0, outcome.Run.FailedCount)
	c.recorder.AssertExpectations(t)
}

func TestDispatch_PerRecipientFailureDoesNotAbortRun(t *testing.T) {
	c := setupDispatchTest(t)
	c.recorder.On("RecordRun", mock.Anything, mock.Anything).Return(nil).Once()
	c.prov.failFor("6281111", "balance exhausted")

	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    pendingContacts(),
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)

	first := outcome.Results[0]
	assert.Equal(t, core_domain.ResultStatusFailed, first.Status)
	assert.Equal(t, "balance exhausted", first.Error)
	assert.Equal(t, "Hi Ana", first.Message)
	assert.Equal(t, core_domain.ContactStatusFailed, outcome.Contacts[0].Status)
	assert.Equal(t, "balance exhausted", outcome.Contacts[0].Error)
	assert.Nil(t, outcome.Contacts[0].SentAt)

	// The second contact was still attempted and succeeded.
	assert.Equal(t, core_domain.ResultStatusSuccess, outcome.Results[1].Status)
	assert.Equal(t, core_domain.ContactStatusSent, outcome.Contacts[1].Status)

	assert.Equal(t, 1, outcome.Run.SuccessCount)
	assert.Equal(t, 1, outcome.Run.FailedCount)
	assert.Equal(t, outcome.Run.TotalRecipients, outcome.Run.SuccessCount+outcome.Run.FailedCount)
}

func TestDispatch_SingleTargetForceResend(t *testing.T) {
	c := setupDispatchTest(t)
	c.recorder.On("RecordRun", mock.Anything, mock.Anything).Return(nil).Once()

	contacts := pendingContacts()
	sentAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	contacts[1].MarkSent(sentAt) // already sent; resend anyway

	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials:     testCreds(),
		Template:        "Hi {name}",
		Contacts:        contacts,
		TargetContactID: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, c.prov.callCount())
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, int64(2), outcome.Results[0].Contact.ID)
	// The pending contact outside the eligible set is untouched.
	assert.Equal(t, core_domain.ContactStatusPending, outcome.Contacts[0].Status)
	// Single recipient: no pacing delay at all.
	assert.Empty(t, c.sleeper.delays)
}

func TestDispatch_SingleTargetNotFound(t *testing.T) {
	c := setupDispatchTest(t)

	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials:     testCreds(),
		Template:        "Hi {name}",
		Contacts:        pendingContacts(),
		TargetContactID: 999,
	})
	assert.ErrorIs(t, err, domain.ErrContactNotFound)
	assert.Nil(t, outcome)
	assert.Zero(t, c.prov.callCount())
	c.recorder.AssertNotCalled(t, "RecordRun", mock.Anything, mock.Anything)
}

func TestDispatch_NoPendingContacts(t *testing.T) {
	c := setupDispatchTest(t)

	contacts := pendingContacts()
	now := time.Now().UTC()
	contacts[0].MarkSent(now)
	contacts[1].MarkFailed("rejected", now)

	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    contacts,
	})
	assert.ErrorIs(t, err, domain.ErrNoPendingContacts)
	assert.Nil(t, outcome)
	assert.Zero(t, c.prov.callCount())
	// Precondition failure leaves no state change behind.
	assert.Equal(t, core_domain.ContactStatusSent, contacts[0].Status)
	assert.Equal(t, core_domain.ContactStatusFailed, contacts[1].Status)
}

func TestDispatch_PreconditionErrors(t *testing.T) {
	c := setupDispatchTest(t)

	tests := []struct {
		name    string
		cmd     DispatchCommand
		wantErr error
	}{
		{
			name:    "missing credentials",
			cmd:     DispatchCommand{Template: "Hi", Contacts: pendingContacts()},
			wantErr: domain.ErrMissingCredentials,
		},
		{
			name:    "missing sender id",
			cmd:     DispatchCommand{Credentials: provider.Credentials{APIKey: "key"}, Template: "Hi", Contacts: pendingContacts()},
			wantErr: domain.ErrMissingCredentials,
		},
		{
			name:    "empty template",
			cmd:     DispatchCommand{Credentials: testCreds(), Template: "  \n ", Contacts: pendingContacts()},
			wantErr: domain.ErrEmptyTemplate,
		},
		{
			name:    "no contacts",
			cmd:     DispatchCommand{Credentials: testCreds(), Template: "Hi"},
			wantErr: domain.ErrNoContacts,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := c.svc.Dispatch(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, outcome)
		})
	}
	assert.Zero(t, c.prov.callCount())
}

func TestDispatch_NonEligibleContactsUntouched(t *testing.T) {
	c := setupDispatchTest(t)
	c.recorder.On("RecordRun", mock.Anything, mock.Anything).Return(nil).Once()

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	contacts := []core_domain.Contact{
		core_domain.NewContact(1, "Ana", "6281111", now),
		core_domain.NewContact(2, "Budi", "6282222", now),
		core_domain.NewContact(3, "Citra", "6283333", now),
	}
	contacts[1].MarkSent(now)
	contacts[2].MarkFailed("earlier failure", now)
	sentSnapshot := contacts[1]
	failedSnapshot := contacts[2]

	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    contacts,
	})
	require.NoError(t, err)

	require.Len(t, outcome.Results, 1)
	assert.Equal(t, int64(1), outcome.Results[0].Contact.ID)
	assert.Equal(t, sentSnapshot, outcome.Contacts[1])
	assert.Equal(t, failedSnapshot, outcome.Contacts[2])
	// The full list comes back, untouched entries included.
	assert.Len(t, outcome.Contacts, 3)
}

func TestDispatch_CancelledBetweenRecipients(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	prov := newScriptedProvider()
	recorder := new(MockRunRecorder)
	recorder.On("RecordRun", mock.Anything, mock.Anything).Return(nil).Once()

	svc := NewDispatchAppService(
		func(provider.Credentials) provider.DeliveryProvider { return prov },
		recorder,
		nil,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel during the first pacing delay, before the second send.
	svc.pacer = newPacer(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}, func(time.Duration) time.Duration { return 0 })

	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	contacts := []core_domain.Contact{
		core_domain.NewContact(1, "Ana", "6281111", now),
		core_domain.NewContact(2, "Budi", "6282222", now),
		core_domain.NewContact(3, "Citra", "6283333", now),
	}

	outcome, err := svc.Dispatch(ctx, DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    contacts,
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.True(t, outcome.Cancelled)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, 1, prov.callCount())
	// The processed contact keeps its mutated status; the rest stay pending.
	assert.Equal(t, core_domain.ContactStatusSent, outcome.Contacts[0].Status)
	assert.Equal(t, core_domain.ContactStatusPending, outcome.Contacts[1].Status)
	assert.Equal(t, core_domain.ContactStatusPending, outcome.Contacts[2].Status)
	// The partial run is still recorded even though the context is cancelled.
	recorder.AssertExpectations(t)
}

func TestDispatch_RecorderFailureDoesNotFailRun(t *testing.T) {
	c := setupDispatchTest(t)
	c.recorder.On("RecordRun", mock.Anything, mock.Anything).Return(errors.New("history store down")).Once()

	outcome, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    pendingContacts(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Run.SuccessCount)
	c.recorder.AssertExpectations(t)
}

func TestDispatch_RecorderReceivesAssembledRun(t *testing.T) {
	c := setupDispatchTest(t)
	c.prov.failFor("6282222", "number blocked")

	var recorded core_domain.DispatchRun
	c.recorder.On("RecordRun", mock.Anything, mock.MatchedBy(func(run core_domain.DispatchRun) bool {
		recorded = run
		return true
	})).Return(nil).Once()

	_, err := c.svc.Dispatch(context.Background(), DispatchCommand{
		Credentials: testCreds(),
		Template:    "Hi {name}",
		Contacts:    pendingContacts(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi {name}", recorded.Template)
	assert.Equal(t, 2, recorded.TotalRecipients)
	assert.Equal(t, 1, recorded.SuccessCount)
	assert.Equal(t, 1, recorded.FailedCount)
	require.Len(t, recorded.Results, 2)
	assert.Equal(t, "number blocked", recorded.Results[1].Error)
}

func TestPacerDelayBounds(t *testing.T) {
	p := newPacer(nil, nil)

	assert.Equal(t, 1000*time.Millisecond, p.delayFor(true))

	// Bulk delays are redrawn each time and always land in [3s, 5s).
	for i := 0; i < 100; i++ {
		d := p.delayFor(false)
		assert.GreaterOrEqual(t, d, bulkBaseDelay)
		assert.Less(t, d, bulkBaseDelay+bulkJitterMax)
	}
}

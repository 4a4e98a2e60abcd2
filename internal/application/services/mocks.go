package services

import (
	"context"
	"sync"
	"time"

	"github.com/pccbooth/payment-gateway/internal/application"
	"github.com/pccbooth/payment-gateway/internal/domain"
)

// In-memory fakes for the application ports. The repository fake mirrors the
// storage-layer guard semantics (terminal absorption, atomic redemption
// claim) so the reconciliation races can be exercised without a database.

// MockSessionRepository
type MockSessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.PaySession // keyed by session ID
	byIntent map[string]string             // payment intent ID -> session ID

	CreateFn              func(ctx context.Context, session *domain.PaySession) error
	UpdateStatusFn        func(ctx context.Context, paymentIntentID string, status domain.SessionStatus) (*domain.PaySession, bool, error)
	ClaimRedemptionFn     func(ctx context.Context, sessionID string, at time.Time) (bool, error)
	FindExpiredSessionsFn func(ctx context.Context, now time.Time, limit int) ([]*domain.PaySession, error)
	RevenueByDayFn        func(ctx context.Context, since time.Time) ([]application.DailyRevenue, error)
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.PaySession),
		byIntent: make(map[string]string),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.PaySession) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.SessionID] = &copied
	if session.PaymentIntentID != nil {
		m.byIntent[*session.PaymentIntentID] = session.SessionID
	}
	return nil
}

func (m *MockSessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.PaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookup(sessionID)
}

func (m *MockSessionRepository) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.PaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID, ok := m.byIntent[paymentIntentID]
	if !ok {
		return nil, application.ErrSessionNotFound
	}
	return m.lookup(sessionID)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, paymentIntentID string, status domain.SessionStatus) (*domain.PaySession, bool, error) {
	if m.UpdateStatusFn != nil {
		return m.UpdateStatusFn(ctx, paymentIntentID, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID, ok := m.byIntent[paymentIntentID]
	if !ok {
		return nil, false, application.ErrSessionNotFound
	}
	session := m.sessions[sessionID]
	if session.IsTerminal() || session.Status == status {
		snapshot := *session
		return &snapshot, false, nil
	}
	session.Status = status
	session.UpdatedAt = time.Now()
	snapshot := *session
	return &snapshot, true, nil
}

func (m *MockSessionRepository) ClaimRedemption(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	if m.ClaimRedemptionFn != nil {
		return m.ClaimRedemptionFn(ctx, sessionID, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return false, application.ErrSessionNotFound
	}
	if session.RedeemAt != nil {
		return false, nil
	}
	session.RedeemAt = &at
	return true, nil
}

func (m *MockSessionRepository) RecordRedemption(ctx context.Context, sessionID string, outcome domain.RedeemOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return application.ErrSessionNotFound
	}
	session.Redeemed = outcome.Ok
	session.RedeemResult = &outcome
	session.UpdatedAt = time.Now()
	return nil
}

func (m *MockSessionRepository) MarkExpired(ctx context.Context, paymentIntentID string, at time.Time) (*domain.PaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID, ok := m.byIntent[paymentIntentID]
	if !ok {
		return nil, application.ErrSessionNotFound
	}
	session := m.sessions[sessionID]
	if !session.IsTerminal() {
		session.Status = domain.StatusCanceled
		session.Expired = true
		session.ExpiredAt = &at
		session.UpdatedAt = at
	}
	snapshot := *session
	return &snapshot, nil
}

func (m *MockSessionRepository) FindExpiredSessions(ctx context.Context, now time.Time, limit int) ([]*domain.PaySession, error) {
	if m.FindExpiredSessionsFn != nil {
		return m.FindExpiredSessionsFn(ctx, now, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PaySession
	for _, session := range m.sessions {
		if !session.IsTerminal() && session.IsExpiredAt(now) {
			snapshot := *session
			out = append(out, &snapshot)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockSessionRepository) ListRecent(ctx context.Context, limit int) ([]*domain.PaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.PaySession
	for _, session := range m.sessions {
		snapshot := *session
		out = append(out, &snapshot)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockSessionRepository) RevenueByDay(ctx context.Context, since time.Time) ([]application.DailyRevenue, error) {
	if m.RevenueByDayFn != nil {
		return m.RevenueByDayFn(ctx, since)
	}
	return nil, nil
}

// Get returns the stored session without copying, for test assertions.
func (m *MockSessionRepository) Get(sessionID string) *domain.PaySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

func (m *MockSessionRepository) lookup(sessionID string) (*domain.PaySession, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, application.ErrSessionNotFound
	}
	snapshot := *session
	return &snapshot, nil
}

// MockPaymentGateway
type MockPaymentGateway struct {
	mu sync.Mutex

	CreateIntentFn   func(ctx context.Context, req application.CreateIntentRequest) (*application.PaymentIntent, error)
	RetrieveIntentFn func(ctx context.Context, id string) (*application.PaymentIntent, error)
	CancelIntentFn   func(ctx context.Context, id string) (*application.PaymentIntent, error)

	CreateCalls   []application.CreateIntentRequest
	CancelCalls   []string
	RetrieveCalls []string
}

func (m *MockPaymentGateway) CreateIntent(ctx context.Context, req application.CreateIntentRequest) (*application.PaymentIntent, error) {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, req)
	m.mu.Unlock()
	if m.CreateIntentFn != nil {
		return m.CreateIntentFn(ctx, req)
	}
	return &application.PaymentIntent{
		ID:           "pi_mock",
		Status:       "requires_action",
		ClientSecret: "pi_mock_secret",
		AmountSatang: req.AmountSatang,
		Currency:     req.Currency,
		QRImageURL:   "https://qr.example/pi_mock.png",
		Metadata:     req.Metadata,
	}, nil
}

func (m *MockPaymentGateway) RetrieveIntent(ctx context.Context, id string) (*application.PaymentIntent, error) {
	m.mu.Lock()
	m.RetrieveCalls = append(m.RetrieveCalls, id)
	m.mu.Unlock()
	if m.RetrieveIntentFn != nil {
		return m.RetrieveIntentFn(ctx, id)
	}
	return &application.PaymentIntent{ID: id, Status: "processing"}, nil
}

func (m *MockPaymentGateway) CancelIntent(ctx context.Context, id string) (*application.PaymentIntent, error) {
	m.mu.Lock()
	m.CancelCalls = append(m.CancelCalls, id)
	m.mu.Unlock()
	if m.CancelIntentFn != nil {
		return m.CancelIntentFn(ctx, id)
	}
	return &application.PaymentIntent{ID: id, Status: "canceled"}, nil
}

// MockPromoClient
type MockPromoClient struct {
	mu sync.Mutex

	ValidateFn func(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error)
	RedeemFn   func(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*domain.RedeemOutcome, error)

	RedeemCalls int
}

func (m *MockPromoClient) Validate(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*application.PromoValidation, error) {
	if m.ValidateFn != nil {
		return m.ValidateFn(ctx, code, userNumber, orderAmountTHB)
	}
	return &application.PromoValidation{Ok: true}, nil
}

func (m *MockPromoClient) Redeem(ctx context.Context, code, userNumber string, orderAmountTHB float64) (*domain.RedeemOutcome, error) {
	m.mu.Lock()
	m.RedeemCalls++
	m.mu.Unlock()
	if m.RedeemFn != nil {
		return m.RedeemFn(ctx, code, userNumber, orderAmountTHB)
	}
	return &domain.RedeemOutcome{Ok: true}, nil
}

// MockUserDirectory
type MockUserDirectory struct {
	EmailByNumberFn func(ctx context.Context, userNumber string) (string, error)
}

func (m *MockUserDirectory) EmailByNumber(ctx context.Context, userNumber string) (string, error) {
	if m.EmailByNumberFn != nil {
		return m.EmailByNumberFn(ctx, userNumber)
	}
	return "", nil
}

// MockWebhookEventStore
type MockWebhookEventStore struct {
	mu   sync.Mutex
	seen map[string]bool

	MarkProcessedFn func(ctx context.Context, eventID, eventType string) (bool, error)
}

func NewMockWebhookEventStore() *MockWebhookEventStore {
	return &MockWebhookEventStore{seen: make(map[string]bool)}
}

func (m *MockWebhookEventStore) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	if m.MarkProcessedFn != nil {
		return m.MarkProcessedFn(ctx, eventID, eventType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

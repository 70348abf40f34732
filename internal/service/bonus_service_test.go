package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"bonusdesk/internal/errors"
	"bonusdesk/internal/model"
	"bonusdesk/internal/query"
	"bonusdesk/internal/repository"
)

// MockBonusRepository is a mock implementation of BonusRepository.
type MockBonusRepository struct {
	mock.Mock
}

func (m *MockBonusRepository) Create(ctx context.Context, bonus *model.Bonus) error {
	args := m.Called(ctx, bonus)
	return args.Error(0)
}

func (m *MockBonusRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Bonus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bonus), args.Error(1)
}

func (m *MockBonusRepository) FindByIDDetailed(ctx context.Context, id uuid.UUID) (*model.Bonus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Bonus), args.Error(1)
}

func (m *MockBonusRepository) ExistsForRecipientBetween(ctx context.Context, recipientID uuid.UUID, from, to time.Time) (bool, error) {
	args := m.Called(ctx, recipientID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockBonusRepository) List(ctx context.Context, opts query.ListOptions) ([]model.Bonus, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Bonus), args.Error(1)
}

func (m *MockBonusRepository) Transition(ctx context.Context, id uuid.UUID, to model.BonusStatus, actorID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, id, to, actorID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBonusRepository) UpdateFieldsIfPending(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (int64, error) {
	args := m.Called(ctx, id, fields)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBonusRepository) DeleteIfPending(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBonusRepository) AddComment(ctx context.Context, comment *model.BonusComment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockBonusRepository) StatusTotals(ctx context.Context) ([]repository.StatusTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.StatusTotal), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

// recordingNotifier records notifications instead of sending mail.
type recordingNotifier struct {
	mu       sync.Mutex
	approved []string
	rejected []string
	verify   []string
	otps     []string
}

func (n *recordingNotifier) BonusApproved(to string, bonus *model.Bonus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.approved = append(n.approved, to)
}

func (n *recordingNotifier) BonusRejected(to string, bonus *model.Bonus) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected = append(n.rejected, to)
}

func (n *recordingNotifier) AccountVerification(to, link string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.verify = append(n.verify, to)
}

func (n *recordingNotifier) PasswordResetCode(to, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, code)
}

func newTestBonusService(bonusRepo repository.BonusRepository, userRepo repository.UserRepository, notifier *recordingNotifier, now time.Time) *bonusService {
	return &bonusService{
		bonusRepo: bonusRepo,
		userRepo:  userRepo,
		checker:   NewEligibilityChecker(bonusRepo),
		notifier:  notifier,
		log:       zerolog.Nop(),
		now:       func() time.Time { return now },
	}
}

func TestBonusService_Create(t *testing.T) {
	recipientID := uuid.New()
	managerID := uuid.New()
	day25 := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
	day10 := time.Date(2026, time.August, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		now           time.Time
		amount        decimal.Decimal
		setupMocks    func(*MockBonusRepository, *MockUserRepository)
		expectedError error
	}{
		{
			name:   "successful creation on day 25",
			now:    day25,
			amount: decimal.NewFromInt(500),
			setupMocks: func(br *MockBonusRepository, ur *MockUserRepository) {
				ur.On("FindByID", mock.Anything, recipientID).Return(&model.User{ID: recipientID}, nil)
				br.On("ExistsForRecipientBetween", mock.Anything, recipientID, mock.Anything, mock.Anything).Return(false, nil)
				br.On("Create", mock.Anything, mock.AnythingOfType("*model.Bonus")).Return(nil)
			},
			expectedError: nil,
		},
		{
			name:   "window closed on day 10",
			now:    day10,
			amount: decimal.NewFromInt(500),
			setupMocks: func(br *MockBonusRepository, ur *MockUserRepository) {
				ur.On("FindByID", mock.Anything, recipientID).Return(&model.User{ID: recipientID}, nil)
			},
			expectedError: errors.ErrWindowClosed,
		},
		{
			name:   "recipient already has a bonus this month",
			now:    day25,
			amount: decimal.NewFromInt(500),
			setupMocks: func(br *MockBonusRepository, ur *MockUserRepository) {
				ur.On("FindByID", mock.Anything, recipientID).Return(&model.User{ID: recipientID}, nil)
				br.On("ExistsForRecipientBetween", mock.Anything, recipientID, mock.Anything, mock.Anything).Return(true, nil)
			},
			expectedError: errors.ErrAlreadyAwarded,
		},
		{
			name:          "negative amount",
			now:           day25,
			amount:        decimal.NewFromInt(-1),
			setupMocks:    func(br *MockBonusRepository, ur *MockUserRepository) {},
			expectedError: errors.ErrInvalidAmount,
		},
		{
			name:   "recipient missing",
			now:    day25,
			amount: decimal.NewFromInt(500),
			setupMocks: func(br *MockBonusRepository, ur *MockUserRepository) {
				ur.On("FindByID", mock.Anything, recipientID).Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: errors.ErrUserNotFound,
		},
		{
			name:   "duplicate key from concurrent creation",
			now:    day25,
			amount: decimal.NewFromInt(500),
			setupMocks: func(br *MockBonusRepository, ur *MockUserRepository) {
				ur.On("FindByID", mock.Anything, recipientID).Return(&model.User{ID: recipientID}, nil)
				br.On("ExistsForRecipientBetween", mock.Anything, recipientID, mock.Anything, mock.Anything).Return(false, nil)
				br.On("Create", mock.Anything, mock.AnythingOfType("*model.Bonus")).Return(gorm.ErrDuplicatedKey)
			},
			expectedError: errors.ErrDuplicateBonus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bonusRepo := new(MockBonusRepository)
			userRepo := new(MockUserRepository)
			tt.setupMocks(bonusRepo, userRepo)

			svc := newTestBonusService(bonusRepo, userRepo, &recordingNotifier{}, tt.now)
			bonus, err := svc.Create(context.Background(), CreateBonusInput{
				Title:       "Q3 performance",
				Amount:      tt.amount,
				Reason:      "Q3 performance",
				RecipientID: recipientID,
				CreatedByID: managerID,
			})

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, bonus)
			} else {
				require.NoError(t, err)
				require.NotNil(t, bonus)
				assert.Equal(t, model.BonusStatusPending, bonus.Status)
				assert.Equal(t, "August", bonus.Month)
				assert.Equal(t, "2026-08", bonus.MonthKey)
				assert.Nil(t, bonus.ApprovedByID)
				assert.Nil(t, bonus.RejectedByID)
			}
			bonusRepo.AssertExpectations(t)
			userRepo.AssertExpectations(t)
		})
	}
}

func TestBonusService_CreateWindowBoundaries(t *testing.T) {
	recipientID := uuid.New()

	for _, tt := range []struct {
		day     int
		allowed bool
	}{
		{21, false},
		{22, true},
		{30, true},
		{31, false},
	} {
		now := time.Date(2026, time.July, tt.day, 9, 0, 0, 0, time.UTC)

		bonusRepo := new(MockBonusRepository)
		userRepo := new(MockUserRepository)
		userRepo.On("FindByID", mock.Anything, recipientID).Return(&model.User{ID: recipientID}, nil)
		if tt.allowed {
			bonusRepo.On("ExistsForRecipientBetween", mock.Anything, recipientID, mock.Anything, mock.Anything).Return(false, nil)
			bonusRepo.On("Create", mock.Anything, mock.AnythingOfType("*model.Bonus")).Return(nil)
		}

		svc := newTestBonusService(bonusRepo, userRepo, &recordingNotifier{}, now)
		_, err := svc.Create(context.Background(), CreateBonusInput{
			Title:       "boundary",
			Amount:      decimal.NewFromInt(100),
			Reason:      "boundary",
			RecipientID: recipientID,
			CreatedByID: uuid.New(),
		})

		if tt.allowed {
			assert.NoError(t, err, "day %d should be inside the window", tt.day)
		} else {
			assert.ErrorIs(t, err, errors.ErrWindowClosed, "day %d should be outside the window", tt.day)
		}
	}
}

func TestBonusService_Approve(t *testing.T) {
	bonusID := uuid.New()
	approverID := uuid.New()
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

	t.Run("successful approval notifies the creator", func(t *testing.T) {
		bonusRepo := new(MockBonusRepository)
		notifier := &recordingNotifier{}

		approvalDate := now
		decided := &model.Bonus{
			ID:           bonusID,
			Status:       model.BonusStatusApproved,
			ApprovedByID: &approverID,
			ApprovalDate: &approvalDate,
			CreatedBy:    &model.User{Email: "manager@example.com"},
		}
		bonusRepo.On("Transition", mock.Anything, bonusID, model.BonusStatusApproved, approverID, now).Return(int64(1), nil)
		bonusRepo.On("FindByIDDetailed", mock.Anything, bonusID).Return(decided, nil)

		svc := newTestBonusService(bonusRepo, new(MockUserRepository), notifier, now)
		bonus, err := svc.Approve(context.Background(), bonusID, approverID)

		require.NoError(t, err)
		assert.Equal(t, model.BonusStatusApproved, bonus.Status)
		require.NotNil(t, bonus.ApprovedByID)
		assert.Equal(t, approverID, *bonus.ApprovedByID)
		assert.Nil(t, bonus.RejectedByID)
		assert.Equal(t, []string{"manager@example.com"}, notifier.approved)
		bonusRepo.AssertExpectations(t)
	})

	t.Run("approving a decided bonus is a conflict", func(t *testing.T) {
		bonusRepo := new(MockBonusRepository)
		bonusRepo.On("Transition", mock.Anything, bonusID, model.BonusStatusApproved, approverID, now).Return(int64(0), nil)
		bonusRepo.On("FindByID", mock.Anything, bonusID).Return(&model.Bonus{ID: bonusID, Status: model.BonusStatusApproved}, nil)

		notifier := &recordingNotifier{}
		svc := newTestBonusService(bonusRepo, new(MockUserRepository), notifier, now)
		_, err := svc.Approve(context.Background(), bonusID, approverID)

		assert.ErrorIs(t, err, errors.ErrAlreadyDecided)
		assert.Empty(t, notifier.approved)
		bonusRepo.AssertExpectations(t)
	})

	t.Run("approving a missing bonus is not found", func(t *testing.T) {
		bonusRepo := new(MockBonusRepository)
		bonusRepo.On("Transition", mock.Anything, bonusID, model.BonusStatusApproved, approverID, now).Return(int64(0), nil)
		bonusRepo.On("FindByID", mock.Anything, bonusID).Return(nil, gorm.ErrRecordNotFound)

		svc := newTestBonusService(bonusRepo, new(MockUserRepository), &recordingNotifier{}, now)
		_, err := svc.Approve(context.Background(), bonusID, approverID)

		assert.ErrorIs(t, err, errors.ErrBonusNotFound)
		bonusRepo.AssertExpectations(t)
	})
}

func TestBonusService_Reject(t *testing.T) {
	bonusID := uuid.New()
	rejecterID := uuid.New()
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

	bonusRepo := new(MockBonusRepository)
	notifier := &recordingNotifier{}

	rejectionDate := now
	decided := &model.Bonus{
		ID:            bonusID,
		Status:        model.BonusStatusRejected,
		RejectedByID:  &rejecterID,
		RejectionDate: &rejectionDate,
		CreatedBy:     &model.User{Email: "manager@example.com"},
	}
	bonusRepo.On("Transition", mock.Anything, bonusID, model.BonusStatusRejected, rejecterID, now).Return(int64(1), nil)
	bonusRepo.On("FindByIDDetailed", mock.Anything, bonusID).Return(decided, nil)

	svc := newTestBonusService(bonusRepo, new(MockUserRepository), notifier, now)
	bonus, err := svc.Reject(context.Background(), bonusID, rejecterID)

	require.NoError(t, err)
	assert.Equal(t, model.BonusStatusRejected, bonus.Status)
	require.NotNil(t, bonus.RejectedByID)
	assert.Nil(t, bonus.ApprovedByID)
	assert.Equal(t, []string{"manager@example.com"}, notifier.rejected)
	bonusRepo.AssertExpectations(t)
}

func TestBonusService_UpdateRequiresPending(t *testing.T) {
	bonusID := uuid.New()
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)
	title := "updated"

	bonusRepo := new(MockBonusRepository)
	bonusRepo.On("UpdateFieldsIfPending", mock.Anything, bonusID, map[string]interface{}{"title": title}).Return(int64(0), nil)
	bonusRepo.On("FindByID", mock.Anything, bonusID).Return(&model.Bonus{ID: bonusID, Status: model.BonusStatusApproved}, nil)

	svc := newTestBonusService(bonusRepo, new(MockUserRepository), &recordingNotifier{}, now)
	_, err := svc.Update(context.Background(), bonusID, UpdateBonusInput{Title: &title})

	assert.ErrorIs(t, err, errors.ErrBonusNotPending)
	bonusRepo.AssertExpectations(t)
}

func TestBonusService_DeleteRequiresPending(t *testing.T) {
	bonusID := uuid.New()
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

	bonusRepo := new(MockBonusRepository)
	bonusRepo.On("DeleteIfPending", mock.Anything, bonusID).Return(int64(0), nil)
	bonusRepo.On("FindByID", mock.Anything, bonusID).Return(&model.Bonus{ID: bonusID, Status: model.BonusStatusRejected}, nil)

	svc := newTestBonusService(bonusRepo, new(MockUserRepository), &recordingNotifier{}, now)
	err := svc.Delete(context.Background(), bonusID)

	assert.ErrorIs(t, err, errors.ErrBonusNotPending)
	bonusRepo.AssertExpectations(t)
}

func TestBonusService_Stats(t *testing.T) {
	now := time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC)

	bonusRepo := new(MockBonusRepository)
	bonusRepo.On("StatusTotals", mock.Anything).Return([]repository.StatusTotal{
		{Status: model.BonusStatusPending, Count: 2, Total: decimal.NewFromInt(700)},
		{Status: model.BonusStatusApproved, Count: 3, Total: decimal.NewFromInt(1500)},
	}, nil)

	svc := newTestBonusService(bonusRepo, new(MockUserRepository), &recordingNotifier{}, now)
	stats, err := svc.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalCount)
	assert.True(t, stats.TotalAmount.Equal(decimal.NewFromInt(2200)))
}

// memoryBonusRepo is a minimal in-memory store used to exercise the
// per-recipient critical section with real concurrency.
type memoryBonusRepo struct {
	MockBonusRepository
	mu      sync.Mutex
	bonuses []*model.Bonus
}

func (r *memoryBonusRepo) ExistsForRecipientBetween(ctx context.Context, recipientID uuid.UUID, from, to time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bonuses {
		if b.RecipientID == recipientID && !b.CreatedAt.Before(from) && !b.CreatedAt.After(to) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBonusRepo) Create(ctx context.Context, bonus *model.Bonus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bonuses {
		if b.RecipientID == bonus.RecipientID && b.MonthKey == bonus.MonthKey {
			return gorm.ErrDuplicatedKey
		}
	}
	bonus.CreatedAt = time.Now()
	r.bonuses = append(r.bonuses, bonus)
	return nil
}

func TestBonusService_ConcurrentCreateSameRecipient(t *testing.T) {
	recipientID := uuid.New()
	now := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

	bonusRepo := &memoryBonusRepo{}
	userRepo := new(MockUserRepository)
	userRepo.On("FindByID", mock.Anything, recipientID).Return(&model.User{ID: recipientID}, nil)

	svc := newTestBonusService(bonusRepo, userRepo, &recordingNotifier{}, now)

	const attempts = 2
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateBonusInput{
				Title:       "race",
				Amount:      decimal.NewFromInt(100),
				Reason:      "race",
				RecipientID: recipientID,
				CreatedByID: uuid.New(),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var successes, failures int
	for err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, errors.ErrAlreadyAwarded)
			failures++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
	assert.Len(t, bonusRepo.bonuses, 1)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type rewardsFixture struct {
	db       *gorm.DB
	tenant   models.Tenant
	merchant models.Merchant
	other    models.Merchant
	event    models.MarketingEvent
}

func setupRewardsServiceTest(t *testing.T) rewardsFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	fx := rewardsFixture{db: db}
	fx.tenant = models.Tenant{Name: "BluBoy India", Code: "BLUIND", Status: constants.StatusActive}
	if err := db.Create(&fx.tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	fx.merchant = models.Merchant{TenantID: fx.tenant.ID, Name: "Cafe Coffee Day", Code: "CCD", Status: constants.StatusActive}
	if err := db.Create(&fx.merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	fx.other = models.Merchant{TenantID: fx.tenant.ID, Name: "Pizza Hut", Code: "PHT", Status: constants.StatusActive}
	if err := db.Create(&fx.other).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	now := time.Now()
	fx.event = models.MarketingEvent{
		Name:           "Monsoon Rewards",
		TenantID:       fx.tenant.ID,
		MerchantID:     fx.merchant.ID,
		MinRewardValue: models.NewMoneyFromCents(10000),
		MaxRewardValue: models.NewMoneyFromCents(50000),
		TotalRewards:   10,
		StartDate:      now.Add(-time.Hour),
		EndDate:        now.Add(24 * time.Hour),
		Status:         constants.EventStatusActive,
	}
	if err := db.Create(&fx.event).Error; err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	return fx
}

func createTestReward(t *testing.T, fx rewardsFixture, merchant models.Merchant, part1 string, cents int64, status string) *models.Reward {
	t.Helper()
	reward := &models.Reward{
		EventID:    fx.event.ID,
		MerchantID: merchant.ID,
		CodePart1:  part1,
		CodePart2:  "X9Y8Z7W6",
		FullCode:   part1 + "-X9Y8Z7W6",
		Value:      models.NewMoneyFromCents(cents),
		Status:     status,
	}
	if err := fx.db.Create(reward).Error; err != nil {
		t.Fatalf("create reward failed: %v", err)
	}
	return reward
}

func newTestClaimService(db *gorm.DB) *ClaimService {
	return NewClaimService(repository.NewRewardRepository(db), repository.NewRewardClaimLogRepository(db), nil)
}

func merchantScope(merchantIDs ...uint) AccessScope {
	return AccessScope{Role: constants.RoleMerchantAdmin, Email: "ops@cafecoffeeday.in", MerchantIDs: merchantIDs}
}

func TestClaimVerifyThenCommitDisclosesFullCodeOnlyAfterCommit(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	reward := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	svc := newTestClaimService(fx.db)
	scope := merchantScope(fx.merchant.ID)

	view, err := svc.Verify(context.Background(), "ccdab123", scope)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if view.RewardID != reward.ID || view.CodePart1 != "CCDAB123" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Value.String() != "250.00" {
		t.Fatalf("value want 250.00 got %s", view.Value.String())
	}
	if view.FullCode != "" || view.ClaimedAt != nil {
		t.Fatalf("full code must not be disclosed before commit: %+v", view)
	}

	committed, err := svc.Commit(context.Background(), view.RewardID, view.Status, ClaimActor{
		Scope:     scope,
		Email:     scope.Email,
		Role:      scope.Role,
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if committed.FullCode != "CCDAB123-X9Y8Z7W6" {
		t.Fatalf("full code want CCDAB123-X9Y8Z7W6 got %s", committed.FullCode)
	}
	if committed.ClaimedAt == nil || committed.Status != constants.RewardStatusClaimed {
		t.Fatalf("commit view missing claim data: %+v", committed)
	}

	var stored models.Reward
	if err := fx.db.First(&stored, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if stored.Status != constants.RewardStatusClaimed || stored.ClaimedAt == nil {
		t.Fatalf("reward not persisted as claimed: %+v", stored)
	}
	var logs []models.RewardClaimLog
	if err := fx.db.Find(&logs).Error; err != nil {
		t.Fatalf("load claim logs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].OperatorEmail != scope.Email || logs[0].RequestID != "req-1" {
		t.Fatalf("unexpected claim logs: %+v", logs)
	}

	if _, err := svc.Verify(context.Background(), "CCDAB123", scope); ClaimErrorKind(err) != constants.ClaimErrorAlreadyClaimed {
		t.Fatalf("re-verify want AlreadyClaimed got %v", err)
	}
}

func TestClaimVerifyRejectsMalformedCodeWithoutStoreAccess(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock failed: %v", err)
	}
	defer mockDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("open gorm failed: %v", err)
	}
	svc := newTestClaimService(db)

	for _, code := range []string{"", "CCD123", "CCDAB1234", "  CCDAB  ", " CCDAB123", "CCDAB123\t", " ccdab123 "} {
		if _, err := svc.Verify(context.Background(), code, UnrestrictedScope()); ClaimErrorKind(err) != constants.ClaimErrorInvalidFormat {
			t.Fatalf("code %q want InvalidFormat got %v", code, err)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected store access: %v", err)
	}
}

func TestClaimVerifyMapsNetworkErrorToStoreUnavailable(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock failed: %v", err)
	}
	defer mockDB.Close()
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{})
	if err != nil {
		t.Fatalf("open gorm failed: %v", err)
	}
	mock.ExpectQuery("SELECT").WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	svc := newTestClaimService(db)
	_, err = svc.Verify(context.Background(), "CCDAB123", UnrestrictedScope())
	if ClaimErrorKind(err) != constants.ClaimErrorStoreUnavailable {
		t.Fatalf("want StoreUnavailable got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestClaimVerifyNamedFailures(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	svc := newTestClaimService(fx.db)
	createTestReward(t, fx, fx.merchant, "CCDEXP01", 1000, constants.RewardStatusExpired)
	createTestReward(t, fx, fx.merchant, "CCDCAN01", 1000, constants.RewardStatusCancelled)
	createTestReward(t, fx, fx.other, "PHTAB123", 1000, constants.RewardStatusAvailable)
	stale := createTestReward(t, fx, fx.merchant, "CCDOLD01", 1000, constants.RewardStatusDistributed)
	past := time.Now().Add(-time.Minute)
	if err := fx.db.Model(stale).Update("expires_at", past).Error; err != nil {
		t.Fatalf("set expires_at failed: %v", err)
	}

	scope := merchantScope(fx.merchant.ID)
	cases := []struct {
		code string
		want string
	}{
		{"CCDZZZ99", constants.ClaimErrorNotFound},
		{"CCDEXP01", constants.ClaimErrorExpired},
		{"CCDCAN01", constants.ClaimErrorCancelled},
		{"PHTAB123", constants.ClaimErrorNotFound},
		{"CCDOLD01", constants.ClaimErrorExpired},
	}
	for _, tc := range cases {
		if _, err := svc.Verify(context.Background(), tc.code, scope); ClaimErrorKind(err) != tc.want {
			t.Fatalf("code %s want %s got %v", tc.code, tc.want, err)
		}
	}
}

func TestClaimCommitConcurrentExactlyOnce(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	reward := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	svc := newTestClaimService(fx.db)
	actor := ClaimActor{Scope: merchantScope(fx.merchant.ID), Email: "ops@cafecoffeeday.in", Role: constants.RoleMerchantAdmin}

	const workers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		kinds     []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Commit(context.Background(), reward.ID, constants.RewardStatusAvailable, actor)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			kinds = append(kinds, ClaimErrorKind(err))
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("exactly one commit should succeed, got %d (failures=%v)", successes, kinds)
	}
	for _, kind := range kinds {
		if kind != constants.ClaimErrorAlreadyClaimed {
			t.Fatalf("losing commits want AlreadyClaimed got %s", kind)
		}
	}
	var count int64
	if err := fx.db.Model(&models.RewardClaimLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count claim logs failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("claim log rows want 1 got %d", count)
	}
}

func TestClaimCommitStaleExpectedStatusIsConflict(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	reward := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	svc := newTestClaimService(fx.db)

	// 校验后被另一个流程发放
	if err := fx.db.Model(reward).Update("status", constants.RewardStatusDistributed).Error; err != nil {
		t.Fatalf("distribute reward failed: %v", err)
	}
	_, err := svc.Commit(context.Background(), reward.ID, constants.RewardStatusAvailable, ClaimActor{Scope: UnrestrictedScope()})
	if ClaimErrorKind(err) != constants.ClaimErrorConflict {
		t.Fatalf("want Conflict got %v", err)
	}
	var stored models.Reward
	if err := fx.db.First(&stored, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if stored.Status != constants.RewardStatusDistributed {
		t.Fatalf("reward must stay DISTRIBUTED, got %s", stored.Status)
	}
}

func TestClaimCommitOutsideScopeIsNotFound(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	reward := createTestReward(t, fx, fx.other, "PHTAB123", 25000, constants.RewardStatusAvailable)
	svc := newTestClaimService(fx.db)

	_, err := svc.Commit(context.Background(), reward.ID, constants.RewardStatusAvailable, ClaimActor{Scope: merchantScope(fx.merchant.ID)})
	if ClaimErrorKind(err) != constants.ClaimErrorNotFound {
		t.Fatalf("want NotFound got %v", err)
	}
}

func TestClaimCommitCanceledContextIsStoreUnavailable(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	reward := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	svc := newTestClaimService(fx.db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Commit(ctx, reward.ID, constants.RewardStatusAvailable, ClaimActor{Scope: UnrestrictedScope()})
	if ClaimErrorKind(err) != constants.ClaimErrorStoreUnavailable {
		t.Fatalf("want StoreUnavailable got %v", err)
	}
	var stored models.Reward
	if err := fx.db.First(&stored, reward.ID).Error; err != nil {
		t.Fatalf("reload reward failed: %v", err)
	}
	if stored.Status != constants.RewardStatusAvailable {
		t.Fatalf("reward must stay AVAILABLE, got %s", stored.Status)
	}
}

func TestClaimErrorKindDefaultsToClaimFailed(t *testing.T) {
	if kind := ClaimErrorKind(errors.New("boom")); kind != constants.ClaimErrorClaimFailed {
		t.Fatalf("want ClaimFailed got %s", kind)
	}
	wrapped := fmt.Errorf("outer: %w", newClaimError(constants.ClaimErrorExpired, nil))
	if kind := ClaimErrorKind(wrapped); kind != constants.ClaimErrorExpired {
		t.Fatalf("want Expired got %s", kind)
	}
	conflict := &repository.StatusConflictError{ID: 1, Expected: constants.RewardStatusAvailable, Current: constants.RewardStatusClaimed}
	if kind := ClaimErrorKind(mapCommitError(conflict)); kind != constants.ClaimErrorAlreadyClaimed {
		t.Fatalf("conflict on CLAIMED want AlreadyClaimed got %s", kind)
	}
}

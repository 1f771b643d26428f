package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/constants"
	handlershared "github.com/bluboy-rewards/internal/http/handlers/shared"
	"github.com/bluboy-rewards/internal/http/response"
	"github.com/bluboy-rewards/internal/identity"
	"github.com/bluboy-rewards/internal/models"
	"github.com/bluboy-rewards/internal/provider"
	"github.com/bluboy-rewards/internal/repository"
	"github.com/bluboy-rewards/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type claimFixture struct {
	db       *gorm.DB
	router   *gin.Engine
	merchant models.Merchant
	reward   models.Reward
}

type claimEnvelope struct {
	StatusCode int                        `json:"status_code"`
	Msg        string                     `json:"msg"`
	Data       service.ClaimWorkflowState `json:"data"`
}

func setupClaimHandlerTest(t *testing.T, withIdentity bool) claimFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
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

	tenant := models.Tenant{Name: "BluBoy India", Code: "BLUIND", Status: constants.StatusActive}
	if err := db.Create(&tenant).Error; err != nil {
		t.Fatalf("create tenant failed: %v", err)
	}
	merchant := models.Merchant{TenantID: tenant.ID, Name: "Cafe Coffee Day", Code: "CCD", Status: constants.StatusActive}
	if err := db.Create(&merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	now := time.Now()
	event := models.MarketingEvent{
		Name:           "Monsoon Rewards",
		TenantID:       tenant.ID,
		MerchantID:     merchant.ID,
		MinRewardValue: models.NewMoneyFromCents(10000),
		MaxRewardValue: models.NewMoneyFromCents(50000),
		TotalRewards:   10,
		StartDate:      now.Add(-time.Hour),
		EndDate:        now.Add(24 * time.Hour),
		Status:         constants.EventStatusActive,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	reward := models.Reward{
		EventID:    event.ID,
		MerchantID: merchant.ID,
		CodePart1:  "CCDAB123",
		CodePart2:  "X9Y8Z7W6",
		FullCode:   "CCDAB123-X9Y8Z7W6",
		Value:      models.NewMoneyFromCents(25000),
		Status:     constants.RewardStatusAvailable,
	}
	if err := db.Create(&reward).Error; err != nil {
		t.Fatalf("create reward failed: %v", err)
	}

	claims := service.NewClaimService(repository.NewRewardRepository(db), repository.NewRewardClaimLogRepository(db), nil)
	container := &provider.Container{
		ClaimService:        claims,
		ClaimSessionService: service.NewClaimSessionService(claims, service.NewClaimSessionStore(cache.New(nil), 16), time.Minute),
	}
	h := New(container)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if withIdentity {
			c.Set(handlershared.IdentityContextKey, &identity.Identity{
				Email:     "ops@cafecoffeeday.in",
				Role:      constants.RoleMerchantAdmin,
				SessionID: "sess-1",
			})
			c.Set(handlershared.ScopeContextKey, service.AccessScope{
				Role:        constants.RoleMerchantAdmin,
				Email:       "ops@cafecoffeeday.in",
				MerchantIDs: []uint{merchant.ID},
			})
		}
		c.Next()
	})
	router.GET("/claim", h.GetClaimSession)
	router.POST("/claim/verify", h.VerifyClaim)
	router.POST("/claim/commit", h.CommitClaim)
	router.POST("/claim/reset", h.ResetClaim)

	return claimFixture{db: db, router: router, merchant: merchant, reward: reward}
}

func doClaimRequest(t *testing.T, router *gin.Engine, method, path string, body interface{}) claimEnvelope {
	t.Helper()
	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		payload = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", rec.Code)
	}
	var envelope claimEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response failed: %v body=%s", err, rec.Body.String())
	}
	return envelope
}

func TestClaimHandlersVerifyThenCommit(t *testing.T) {
	fx := setupClaimHandlerTest(t, true)

	initial := doClaimRequest(t, fx.router, http.MethodGet, "/claim", nil)
	if initial.StatusCode != response.CodeOK || initial.Data.Phase != constants.ClaimPhaseInput {
		t.Fatalf("unexpected initial state: %+v", initial)
	}

	verified := doClaimRequest(t, fx.router, http.MethodPost, "/claim/verify", ClaimVerifyRequest{Code: "ccdab123"})
	if verified.Data.Phase != constants.ClaimPhaseVerified || verified.Data.Reward == nil {
		t.Fatalf("unexpected verified state: %+v", verified)
	}
	if verified.Data.Reward.FullCode != "" {
		t.Fatalf("full code leaked before commit: %+v", verified.Data.Reward)
	}

	committed := doClaimRequest(t, fx.router, http.MethodPost, "/claim/commit", nil)
	if committed.Data.Phase != constants.ClaimPhaseSuccess || committed.Data.Reward == nil {
		t.Fatalf("unexpected commit state: %+v", committed)
	}
	if committed.Data.Reward.FullCode != "CCDAB123-X9Y8Z7W6" {
		t.Fatalf("full code want CCDAB123-X9Y8Z7W6 got %q", committed.Data.Reward.FullCode)
	}

	var stored models.Reward
	if err := fx.db.First(&stored, fx.reward.ID).Error; err != nil {
		t.Fatalf("load reward failed: %v", err)
	}
	if stored.Status != constants.RewardStatusClaimed || stored.ClaimedAt == nil {
		t.Fatalf("reward not claimed: %+v", stored)
	}
}

func TestClaimHandlersCommitWithoutVerifyIsConflict(t *testing.T) {
	fx := setupClaimHandlerTest(t, true)
	resp := doClaimRequest(t, fx.router, http.MethodPost, "/claim/commit", nil)
	if resp.StatusCode != response.CodeConflict {
		t.Fatalf("status_code want %d got %d", response.CodeConflict, resp.StatusCode)
	}
}

func TestClaimHandlersUnknownCodeReturnsErrorPhase(t *testing.T) {
	fx := setupClaimHandlerTest(t, true)
	resp := doClaimRequest(t, fx.router, http.MethodPost, "/claim/verify", ClaimVerifyRequest{Code: "ZZZZ9999"})
	if resp.StatusCode != response.CodeOK {
		t.Fatalf("business failure should not be an api error: %+v", resp)
	}
	if resp.Data.Phase != constants.ClaimPhaseError || resp.Data.ErrorKind != constants.ClaimErrorNotFound {
		t.Fatalf("unexpected error state: %+v", resp.Data)
	}

	reset := doClaimRequest(t, fx.router, http.MethodPost, "/claim/reset", nil)
	if reset.Data.Phase != constants.ClaimPhaseInput {
		t.Fatalf("reset should return input phase: %+v", reset.Data)
	}
}

func TestClaimHandlersRequireIdentity(t *testing.T) {
	fx := setupClaimHandlerTest(t, false)
	resp := doClaimRequest(t, fx.router, http.MethodPost, "/claim/verify", ClaimVerifyRequest{Code: "CCDAB123"})
	if resp.StatusCode != response.CodeUnauthorized {
		t.Fatalf("status_code want %d got %d", response.CodeUnauthorized, resp.StatusCode)
	}
}

func TestClaimSessionKeyPrefersSessionID(t *testing.T) {
	if got := claimSessionKey(&identity.Identity{Email: "a@b.in", SessionID: "s1"}); got != "s1" {
		t.Fatalf("want s1 got %s", got)
	}
	if got := claimSessionKey(&identity.Identity{Email: "a@b.in"}); got != "a@b.in" {
		t.Fatalf("want email fallback got %s", got)
	}
	if got := claimSessionKey(nil); got != "" {
		t.Fatalf("nil identity should yield empty key, got %s", got)
	}
}

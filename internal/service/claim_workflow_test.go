package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluboy-rewards/internal/cache"
	"github.com/bluboy-rewards/internal/constants"
)

func TestClaimWorkflowHappyPath(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	scope := merchantScope(fx.merchant.ID)
	workflow := NewClaimWorkflow(newTestClaimService(fx.db), ClaimActor{Scope: scope, Email: scope.Email, Role: scope.Role})

	state, err := workflow.Verify(context.Background(), NewClaimWorkflowState(), "ccdab123")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if state.Phase != constants.ClaimPhaseVerified || state.Reward == nil || state.Reward.FullCode != "" {
		t.Fatalf("unexpected verified state: %+v", state)
	}

	state, err = workflow.Commit(context.Background(), state)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if state.Phase != constants.ClaimPhaseSuccess || state.Reward.FullCode != "CCDAB123-X9Y8Z7W6" {
		t.Fatalf("unexpected success state: %+v", state)
	}
	if state.Reward.Value.String() != "250.00" {
		t.Fatalf("value want 250.00 got %s", state.Reward.Value.String())
	}
}

func TestClaimWorkflowPhaseGuards(t *testing.T) {
	workflow := NewClaimWorkflow(nil, ClaimActor{})
	verified := ClaimWorkflowState{Phase: constants.ClaimPhaseVerified}
	if _, err := workflow.Verify(context.Background(), verified, "CCDAB123"); !errors.Is(err, ErrClaimPhaseInvalid) {
		t.Fatalf("verify from verified want ErrClaimPhaseInvalid got %v", err)
	}
	if _, err := workflow.Commit(context.Background(), NewClaimWorkflowState()); !errors.Is(err, ErrClaimPhaseInvalid) {
		t.Fatalf("commit from input want ErrClaimPhaseInvalid got %v", err)
	}
	if _, err := workflow.Commit(context.Background(), verified); !errors.Is(err, ErrClaimPhaseInvalid) {
		t.Fatalf("commit without reward want ErrClaimPhaseInvalid got %v", err)
	}
}

func TestClaimWorkflowFailureKeepsNoRewardData(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusClaimed)
	workflow := NewClaimWorkflow(newTestClaimService(fx.db), ClaimActor{Scope: UnrestrictedScope(), Locale: "en-US"})

	state, err := workflow.Verify(context.Background(), NewClaimWorkflowState(), "CCDAB123")
	if err != nil {
		t.Fatalf("verify should report failure through state, got %v", err)
	}
	if state.Phase != constants.ClaimPhaseError || state.ErrorKind != constants.ClaimErrorAlreadyClaimed {
		t.Fatalf("unexpected error state: %+v", state)
	}
	if state.Reward != nil || state.ErrorMessage == "" {
		t.Fatalf("error state must carry a message and no reward: %+v", state)
	}

	reset := workflow.Reset()
	if reset.Phase != constants.ClaimPhaseInput || reset.Code != "" {
		t.Fatalf("reset should return input state: %+v", reset)
	}
}

func TestClaimSessionServiceRoundTrip(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	store := NewClaimSessionStore(cache.New(nil), 8)
	sessions := NewClaimSessionService(newTestClaimService(fx.db), store, time.Minute)
	actor := ClaimActor{Scope: merchantScope(fx.merchant.ID), Email: "ops@cafecoffeeday.in"}
	ctx := context.Background()

	if _, err := sessions.Get(ctx, " "); !errors.Is(err, ErrForbidden) {
		t.Fatalf("empty session key want ErrForbidden got %v", err)
	}
	initial, err := sessions.Get(ctx, "sess-1")
	if err != nil || initial.Phase != constants.ClaimPhaseInput {
		t.Fatalf("fresh session want input got %+v %v", initial, err)
	}
	if _, err := sessions.Verify(ctx, "sess-1", "CCDAB123", actor); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	loaded, err := sessions.Get(ctx, "sess-1")
	if err != nil || loaded.Phase != constants.ClaimPhaseVerified {
		t.Fatalf("verified state should persist, got %+v %v", loaded, err)
	}
	done, err := sessions.Commit(ctx, "sess-1", actor)
	if err != nil || done.Phase != constants.ClaimPhaseSuccess {
		t.Fatalf("commit want success got %+v %v", done, err)
	}

	first := sessions.Reset(ctx, "sess-1", actor)
	second := sessions.Reset(ctx, "sess-1", actor)
	if first.Phase != constants.ClaimPhaseInput || second.Phase != constants.ClaimPhaseInput {
		t.Fatalf("reset must be idempotent: %+v %+v", first, second)
	}
	after, _ := sessions.Get(ctx, "sess-1")
	if after.Phase != constants.ClaimPhaseInput {
		t.Fatalf("state after reset want input got %s", after.Phase)
	}
}

// staleLoadStore 首次 Load 返回旧快照，模拟同会话并发读取
type staleLoadStore struct {
	ClaimSessionStore
	stale *ClaimWorkflowState
}

func (s *staleLoadStore) Load(ctx context.Context, key string) (*ClaimWorkflowState, bool, error) {
	if s.stale != nil {
		state := *s.stale
		s.stale = nil
		return &state, true, nil
	}
	return s.ClaimSessionStore.Load(ctx, key)
}

func TestClaimSessionConcurrentCommitKeepsSuccessState(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	claims := newTestClaimService(fx.db)
	store := NewClaimSessionStore(cache.New(nil), 8)
	sessions := NewClaimSessionService(claims, store, time.Minute)
	actor := ClaimActor{Scope: merchantScope(fx.merchant.ID), Email: "ops@cafecoffeeday.in"}
	ctx := context.Background()

	verified, err := sessions.Verify(ctx, "sess-1", "CCDAB123", actor)
	if err != nil || verified.Phase != constants.ClaimPhaseVerified {
		t.Fatalf("verify want verified got %+v %v", verified, err)
	}
	if done, err := sessions.Commit(ctx, "sess-1", actor); err != nil || done.Phase != constants.ClaimPhaseSuccess {
		t.Fatalf("first commit want success got %+v %v", done, err)
	}

	late := NewClaimSessionService(claims, &staleLoadStore{ClaimSessionStore: store, stale: &verified}, time.Minute)
	lost, err := late.Commit(ctx, "sess-1", actor)
	if err != nil {
		t.Fatalf("late commit failed: %v", err)
	}
	if lost.Phase != constants.ClaimPhaseError || lost.ErrorKind != constants.ClaimErrorAlreadyClaimed {
		t.Fatalf("late commit want AlreadyClaimed error got %+v", lost)
	}

	stored, err := sessions.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load session failed: %v", err)
	}
	if stored.Phase != constants.ClaimPhaseSuccess || stored.Reward == nil || stored.Reward.FullCode != "CCDAB123-X9Y8Z7W6" {
		t.Fatalf("success state should survive the late commit, got %+v", stored)
	}
}

func TestClaimSessionCommitFailureIsSavedWhileVerified(t *testing.T) {
	fx := setupRewardsServiceTest(t)
	reward := createTestReward(t, fx, fx.merchant, "CCDAB123", 25000, constants.RewardStatusAvailable)
	sessions := NewClaimSessionService(newTestClaimService(fx.db), NewClaimSessionStore(cache.New(nil), 8), time.Minute)
	actor := ClaimActor{Scope: merchantScope(fx.merchant.ID), Email: "ops@cafecoffeeday.in"}
	ctx := context.Background()

	if _, err := sessions.Verify(ctx, "sess-1", "CCDAB123", actor); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if err := fx.db.Model(reward).Update("status", constants.RewardStatusCancelled).Error; err != nil {
		t.Fatalf("cancel reward failed: %v", err)
	}
	if _, err := sessions.Commit(ctx, "sess-1", actor); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	stored, _ := sessions.Get(ctx, "sess-1")
	if stored.Phase != constants.ClaimPhaseError || stored.ErrorKind != constants.ClaimErrorCancelled {
		t.Fatalf("error state should replace verified state, got %+v", stored)
	}
}

func TestMemoryClaimSessionStoreTTLAndLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryClaimSessionStore(2)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	_ = store.Save(ctx, "a", ClaimWorkflowState{Phase: constants.ClaimPhaseVerified}, time.Minute)
	_ = store.Save(ctx, "b", ClaimWorkflowState{Phase: constants.ClaimPhaseVerified}, 2*time.Minute)
	_ = store.Save(ctx, "c", ClaimWorkflowState{Phase: constants.ClaimPhaseVerified}, 3*time.Minute)
	if store.Len() != 2 {
		t.Fatalf("store should stay within limit, len=%d", store.Len())
	}
	if _, hit, _ := store.Load(ctx, "a"); hit {
		t.Fatalf("entry closest to expiry should be evicted")
	}

	now = now.Add(150 * time.Second)
	if _, hit, _ := store.Load(ctx, "b"); hit {
		t.Fatalf("expired entry should miss")
	}
	state, hit, err := store.Load(ctx, "c")
	if err != nil || !hit || state.Phase != constants.ClaimPhaseVerified {
		t.Fatalf("live entry should hit, got %+v %v %v", state, hit, err)
	}
}

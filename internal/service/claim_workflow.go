package service

import (
	"context"
	"time"

	"github.com/bluboy-rewards/internal/constants"
	"github.com/bluboy-rewards/internal/i18n"
)

// ClaimWorkflowState 核销界面状态机的可序列化快照
type ClaimWorkflowState struct {
	Phase        string           `json:"phase"`
	Code         string           `json:"code"`
	Reward       *ClaimRewardView `json:"reward,omitempty"`
	ErrorKind    string           `json:"error_kind,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewClaimWorkflowState 初始输入态
func NewClaimWorkflowState() ClaimWorkflowState {
	return ClaimWorkflowState{Phase: constants.ClaimPhaseInput}
}

// ClaimWorkflow 两阶段核销：input -> verified -> success，任一失败进入 error
type ClaimWorkflow struct {
	claims *ClaimService
	actor  ClaimActor
	now    func() time.Time
}

// NewClaimWorkflow 为一次操作创建工作流
func NewClaimWorkflow(claims *ClaimService, actor ClaimActor) *ClaimWorkflow {
	return &ClaimWorkflow{claims: claims, actor: actor, now: time.Now}
}

// Verify input -> verified | error
func (w *ClaimWorkflow) Verify(ctx context.Context, state ClaimWorkflowState, code string) (ClaimWorkflowState, error) {
	if state.Phase != constants.ClaimPhaseInput {
		return state, ErrClaimPhaseInvalid
	}
	code = NormalizeClaimCode(code)
	view, err := w.claims.Verify(ctx, code, w.actor.Scope)
	if err != nil {
		return w.failed(code, nil, err), nil
	}
	return ClaimWorkflowState{
		Phase:     constants.ClaimPhaseVerified,
		Code:      code,
		Reward:    view,
		UpdatedAt: w.now(),
	}, nil
}

// Commit verified -> success | error
func (w *ClaimWorkflow) Commit(ctx context.Context, state ClaimWorkflowState) (ClaimWorkflowState, error) {
	if state.Phase != constants.ClaimPhaseVerified || state.Reward == nil {
		return state, ErrClaimPhaseInvalid
	}
	view, err := w.claims.Commit(ctx, state.Reward.RewardID, state.Reward.Status, w.actor)
	if err != nil {
		// 失败时不保留奖励数据
		return w.failed(state.Code, nil, err), nil
	}
	return ClaimWorkflowState{
		Phase:     constants.ClaimPhaseSuccess,
		Code:      state.Code,
		Reward:    view,
		UpdatedAt: w.now(),
	}, nil
}

// Reset 任意状态回到输入态
func (w *ClaimWorkflow) Reset() ClaimWorkflowState {
	state := NewClaimWorkflowState()
	state.UpdatedAt = w.now()
	return state
}

func (w *ClaimWorkflow) failed(code string, view *ClaimRewardView, err error) ClaimWorkflowState {
	kind := ClaimErrorKind(err)
	return ClaimWorkflowState{
		Phase:        constants.ClaimPhaseError,
		Code:         code,
		Reward:       view,
		ErrorKind:    kind,
		ErrorMessage: i18n.T(w.actor.Locale, "claim."+kind),
		UpdatedAt:    w.now(),
	}
}

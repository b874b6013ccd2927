package usecases

import (
	"context"
	"time"

	"wecom-relay/internal/entities"
	"wecom-relay/internal/interfaces"
)

// tierPlan maps a membership tier to its quota window and denial text.
// A zero limit means the tier is unbounded and no counter is ever touched.
type tierPlan struct {
	periodFormat string
	limit        int
	denialText   string
}

var tierPlans = map[string]tierPlan{
	entities.TierDefault: {
		periodFormat: "2006-01-02",
		limit:        10,
		denialText:   "已达到今日上限，联系管理员开通会员可以提升发消息数量",
	},
	entities.TierStandard: {
		periodFormat: "2006-01",
		limit:        1000,
		denialText:   "已达到本月上限，联系管理员开通高级会员可以提升发消息数量",
	},
	entities.TierPremium: {
		periodFormat: "2006-01",
		limit:        3000,
		denialText:   "已达到本月上限，联系管理员开通专业会员可以提升发消息数量",
	},
	entities.TierProfessional: {},
}

// QuotaDecision is the outcome of a quota check. Message carries the tier's
// canned denial text when Allowed is false.
type QuotaDecision struct {
	Allowed bool
	Message string
}

// QuotaLedger gates messages on tiered, time-windowed send counters.
type QuotaLedger struct {
	memberships interfaces.MembershipStore
	counters    interfaces.QuotaStore
	now         func() time.Time
}

func NewQuotaLedger(memberships interfaces.MembershipStore, counters interfaces.QuotaStore) *QuotaLedger {
	return &QuotaLedger{
		memberships: memberships,
		counters:    counters,
		now:         time.Now,
	}
}

// CheckAndReserve resolves the sender's tier, derives the current period
// label and atomically takes one unit of quota. A denied attempt does not
// increment the counter.
func (l *QuotaLedger) CheckAndReserve(ctx context.Context, sender string) (QuotaDecision, error) {
	level, err := l.memberships.GetLevel(ctx, sender)
	if err != nil {
		return QuotaDecision{}, err
	}

	plan, ok := tierPlans[level]
	if !ok {
		plan = tierPlans[entities.TierDefault]
	}
	if plan.limit == 0 {
		return QuotaDecision{Allowed: true}, nil
	}

	period := l.now().UTC().Format(plan.periodFormat)
	_, allowed, err := l.counters.IncrementIfBelow(ctx, sender, period, plan.limit)
	if err != nil {
		return QuotaDecision{}, err
	}
	if !allowed {
		return QuotaDecision{Allowed: false, Message: plan.denialText}, nil
	}
	return QuotaDecision{Allowed: true}, nil
}

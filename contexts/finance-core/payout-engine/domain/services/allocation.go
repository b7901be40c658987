package services

import (
	"sort"
	"time"

	"clipay/contexts/finance-core/payout-engine/domain/entities"
	domainerrors "clipay/contexts/finance-core/payout-engine/domain/errors"

	"github.com/shopspring/decimal"
)

// RatePolicy selects how the daily budget is derived from the remaining budget.
type RatePolicy string

const (
	// RatePolicyOriginalSpan divides the remaining budget by the original
	// campaign span. This is the historical behaviour.
	RatePolicyOriginalSpan RatePolicy = "original_span"
	// RatePolicyRemainingDays re-amortises the remaining budget over the
	// days left in the campaign.
	RatePolicyRemainingDays RatePolicy = "remaining_days"
)

const (
	cycleDays           = 7
	defaultAmountPlaces = 2
)

var defaultXPMultiplier = decimal.New(1, -1)

func IsKnownRatePolicy(value RatePolicy) bool {
	return value == RatePolicyOriginalSpan || value == RatePolicyRemainingDays
}

// Calculator is the pure allocation engine. The zero value uses the
// original-span rate, a 0.1 xp multiplier and 2-place amounts.
type Calculator struct {
	Policy       RatePolicy
	XPMultiplier decimal.Decimal
	AmountPlaces int32
}

type PotBreakdown struct {
	TotalDays     int64
	DaysRemaining int64
	DailyBudget   decimal.Decimal
	WeeklyPot     decimal.Decimal
	Capped        bool
	Exhausted     bool
}

type Share struct {
	UserID  string
	Views   int64
	Ratio   decimal.Decimal
	Earning decimal.Decimal
	Amount  decimal.Decimal
	XPDelta decimal.Decimal
}

type Allocation struct {
	CampaignID  string
	Pot         PotBreakdown
	TotalViews  int64
	Shares      []Share
	Distributed decimal.Decimal
	Dust        decimal.Decimal
}

// Empty is true when nobody qualifies for a credit.
func (a Allocation) Empty() bool {
	return len(a.Shares) == 0
}

func (c Calculator) policy() RatePolicy {
	if c.Policy == "" {
		return RatePolicyOriginalSpan
	}
	return c.Policy
}

func (c Calculator) xpMultiplier() decimal.Decimal {
	if c.XPMultiplier.IsZero() {
		return defaultXPMultiplier
	}
	return c.XPMultiplier
}

func (c Calculator) amountPlaces() int32 {
	if c.AmountPlaces <= 0 {
		return defaultAmountPlaces
	}
	return c.AmountPlaces
}

// ComputePot sizes the current cycle's pot. The pot never exceeds the
// remaining budget and is zero once the campaign window has closed.
func (c Calculator) ComputePot(campaign entities.Campaign, today time.Time) (PotBreakdown, error) {
	if !campaign.WellFormed() {
		return PotBreakdown{}, domainerrors.ErrMalformedCampaign
	}

	totalDays := CampaignSpanDays(campaign)
	remaining := DaysRemaining(campaign, today)

	divisor := totalDays
	if c.policy() == RatePolicyRemainingDays {
		divisor = max(1, remaining)
	}
	// Reported only. The pot multiplies before it divides.
	daily := campaign.Budget.Div(decimal.NewFromInt(divisor))

	breakdown := PotBreakdown{
		TotalDays:     totalDays,
		DaysRemaining: remaining,
		DailyBudget:   daily,
		WeeklyPot:     decimal.Zero,
	}
	if remaining == 0 {
		breakdown.Exhausted = true
		return breakdown, nil
	}

	pot := campaign.Budget.
		Mul(decimal.NewFromInt(min(cycleDays, remaining))).
		Div(decimal.NewFromInt(divisor))
	if pot.GreaterThan(campaign.Budget) {
		pot = campaign.Budget
		breakdown.Capped = true
	}
	breakdown.WeeklyPot = pot
	return breakdown, nil
}

// Allocate computes the pot and splits it across approved videos.
func (c Calculator) Allocate(campaign entities.Campaign, videos []entities.Video, today time.Time) (Allocation, error) {
	pot, err := c.ComputePot(campaign, today)
	if err != nil {
		return Allocation{}, err
	}
	return c.Distribute(pot, AggregateViews(campaign.CampaignID, videos)), nil
}

// Distribute splits pot.WeeklyPot proportionally to views. Raw earnings keep
// full precision; credited amounts are rounded half-up and then trimmed so
// their sum never exceeds the pot.
func (c Calculator) Distribute(pot PotBreakdown, aggregate ViewAggregate) Allocation {
	allocation := Allocation{
		CampaignID:  aggregate.CampaignID,
		Pot:         pot,
		TotalViews:  aggregate.TotalViews,
		Shares:      []Share{},
		Distributed: decimal.Zero,
		Dust:        decimal.Zero,
	}
	if aggregate.TotalViews <= 0 || !pot.WeeklyPot.IsPositive() {
		return allocation
	}

	places := c.amountPlaces()
	total := decimal.NewFromInt(aggregate.TotalViews)
	shares := make([]Share, 0, len(aggregate.Contributions))
	sum := decimal.Zero
	for _, item := range aggregate.Contributions {
		if item.Views <= 0 {
			continue
		}
		views := decimal.NewFromInt(item.Views)
		earning := pot.WeeklyPot.Mul(views).Div(total)
		amount := earning.Round(places)
		shares = append(shares, Share{
			UserID:  item.UserID,
			Views:   item.Views,
			Ratio:   views.Div(total),
			Earning: earning,
			Amount:  amount,
		})
		sum = sum.Add(amount)
	}

	if sum.GreaterThan(pot.WeeklyPot) {
		sum = trimOverage(shares, sum, pot.WeeklyPot, places)
	}

	multiplier := c.xpMultiplier()
	credited := shares[:0]
	for _, share := range shares {
		if !share.Amount.IsPositive() {
			continue
		}
		share.XPDelta = share.Amount.Mul(multiplier)
		credited = append(credited, share)
	}

	allocation.Shares = credited
	allocation.Distributed = sum
	allocation.Dust = pot.WeeklyPot.Sub(sum)
	return allocation
}

// trimOverage removes one unit at a time from the most rounded-up shares
// (ties by user id) until the sum fits in the pot.
func trimOverage(shares []Share, sum decimal.Decimal, pot decimal.Decimal, places int32) decimal.Decimal {
	unit := decimal.New(1, -places)
	order := make([]int, len(shares))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		left := shares[order[i]].Amount.Sub(shares[order[i]].Earning)
		right := shares[order[j]].Amount.Sub(shares[order[j]].Earning)
		if !left.Equal(right) {
			return left.GreaterThan(right)
		}
		return shares[order[i]].UserID < shares[order[j]].UserID
	})

	for sum.GreaterThan(pot) {
		progressed := false
		for _, idx := range order {
			if !sum.GreaterThan(pot) {
				break
			}
			if !shares[idx].Amount.IsPositive() {
				continue
			}
			shares[idx].Amount = shares[idx].Amount.Sub(unit)
			sum = sum.Sub(unit)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return sum
}

package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCreator Role = "creator"
	RoleClipper Role = "clipper"
	RoleAdmin   Role = "admin"
)

// UserAccount balance is credited only by committed payouts.
type UserAccount struct {
	UserID    string
	Name      string
	Role      Role
	Balance   decimal.Decimal
	XP        decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RankTier string

const (
	RankTierBronze  RankTier = "bronze"
	RankTierSilver  RankTier = "silver"
	RankTierGold    RankTier = "gold"
	RankTierDiamond RankTier = "diamond"
)

var (
	silverFloor  = decimal.NewFromInt(1001)
	goldFloor    = decimal.NewFromInt(3001)
	diamondFloor = decimal.NewFromInt(8001)
)

func TierForXP(xp decimal.Decimal) RankTier {
	switch {
	case xp.GreaterThanOrEqual(diamondFloor):
		return RankTierDiamond
	case xp.GreaterThanOrEqual(goldFloor):
		return RankTierGold
	case xp.GreaterThanOrEqual(silverFloor):
		return RankTierSilver
	default:
		return RankTierBronze
	}
}

func (a UserAccount) Tier() RankTier {
	return TierForXP(a.XP)
}

package engine

import (
	"github.com/Bakary221/Om-Pay/configs"
	"github.com/Bakary221/Om-Pay/internal/models"
	"github.com/shopspring/decimal"
)

type Limit struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// FeeTier charges a flat Fee for amounts in [From, To] inclusive.
type FeeTier struct {
	From decimal.Decimal
	To   decimal.Decimal
	Fee  decimal.Decimal
}

type PolicyConfig struct {
	Limits       map[models.TransactionKind]Limit
	TransferFees []FeeTier
}

// Policy holds the amount-limit rules and fee schedule. It is a pure
// function of (kind, amount); it never touches the store.
type Policy struct {
	cfg PolicyConfig
}

func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{cfg: cfg}
}

// DefaultPolicyConfig mirrors the shipped configs/config.yaml values.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Limits: map[models.TransactionKind]Limit{
			models.KindDeposit:  {Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(1000000)},
			models.KindPayment:  {Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(500000)},
			models.KindTransfer: {Min: decimal.NewFromInt(100), Max: decimal.NewFromInt(100000)},
		},
		TransferFees: []FeeTier{
			{From: decimal.NewFromInt(0), To: decimal.NewFromInt(5000), Fee: decimal.NewFromInt(0)},
			{From: decimal.NewFromInt(5001), To: decimal.NewFromInt(50000), Fee: decimal.NewFromInt(100)},
			{From: decimal.NewFromInt(50001), To: decimal.NewFromInt(100000), Fee: decimal.NewFromInt(200)},
		},
	}
}

// PolicyConfigFromApp builds the policy from the loaded app config,
// falling back to the defaults for any section left empty.
func PolicyConfigFromApp(c configs.Config) PolicyConfig {
	cfg := DefaultPolicyConfig()
	if c.Limits.Deposit.Max > 0 {
		cfg.Limits[models.KindDeposit] = limitFromSetting(c.Limits.Deposit)
	}
	if c.Limits.Payment.Max > 0 {
		cfg.Limits[models.KindPayment] = limitFromSetting(c.Limits.Payment)
	}
	if c.Limits.Transfer.Max > 0 {
		cfg.Limits[models.KindTransfer] = limitFromSetting(c.Limits.Transfer)
	}
	if len(c.Fees.Transfer) > 0 {
		tiers := make([]FeeTier, 0, len(c.Fees.Transfer))
		for _, t := range c.Fees.Transfer {
			tiers = append(tiers, FeeTier{
				From: decimal.NewFromInt(t.From),
				To:   decimal.NewFromInt(t.To),
				Fee:  decimal.NewFromInt(t.Fee),
			})
		}
		cfg.TransferFees = tiers
	}
	return cfg
}

func limitFromSetting(s configs.LimitSetting) Limit {
	return Limit{Min: decimal.NewFromInt(s.Min), Max: decimal.NewFromInt(s.Max)}
}

// CheckLimits rejects amounts outside the configured bounds for the kind.
// Non-positive amounts always violate the minimum.
func (p *Policy) CheckLimits(kind models.TransactionKind, amount decimal.Decimal) error {
	lim, ok := p.cfg.Limits[kind]
	if !amount.IsPositive() {
		return &LimitError{Kind: kind, Bound: BoundMin, Limit: lim.Min}
	}
	if !ok {
		return nil
	}
	if amount.LessThan(lim.Min) {
		return &LimitError{Kind: kind, Bound: BoundMin, Limit: lim.Min}
	}
	if lim.Max.IsPositive() && amount.GreaterThan(lim.Max) {
		return &LimitError{Kind: kind, Bound: BoundMax, Limit: lim.Max}
	}
	return nil
}

// Fee computes the fee for a transaction kind. Deposits and payments are
// free regardless of target; transfers are tiered, first matching bracket
// wins in declaration order. Amounts above every bracket are free: the
// transfer maximum coincides with the top bracket, so that path is
// unreachable with the shipped configuration.
func (p *Policy) Fee(kind models.TransactionKind, amount decimal.Decimal) decimal.Decimal {
	if kind != models.KindTransfer {
		return decimal.Zero
	}
	for _, tier := range p.cfg.TransferFees {
		if amount.GreaterThanOrEqual(tier.From) && amount.LessThanOrEqual(tier.To) {
			return tier.Fee
		}
	}
	return decimal.Zero
}

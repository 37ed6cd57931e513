// Package reconcile computes the monthly settlement summary for a household:
// who paid what, each member's fair share, net balances, the transfers that
// zero them, and budget-vs-actual status. The computation is pure; callers
// load the household's records for the month and pass them in.
package reconcile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yilunzh/household-finance-sub002/internal/models"
)

var (
	ErrNoMembers     = errors.New("household has no members")
	ErrUnknownMember = errors.New("transaction references a non-member")
	ErrInvalidAmount = errors.New("transaction amount must be positive with at most two decimals")
	ErrInvalidTx     = errors.New("invalid transaction")
	ErrMissingPayee  = errors.New("paid_for transaction requires a beneficiary")
)

// Input carries everything the engine needs for one household-month. All
// records must already be scoped to a single household; the engine never
// fetches data itself.
type Input struct {
	Month        string
	Currency     string
	Members      []models.Member
	Transactions []models.Transaction
	SplitRules   []models.SplitRule
	BudgetRules  []models.BudgetRule
	IsSettled    bool
}

// MemberBalance is one member's position for the month. Balance is paid
// minus fair share: positive means the member is owed money, negative means
// they owe.
type MemberBalance struct {
	MemberID    uuid.UUID       `json:"member_id"`
	DisplayName string          `json:"display_name"`
	Paid        decimal.Decimal `json:"paid"`
	FairShare   decimal.Decimal `json:"fair_share"`
	Balance     decimal.Decimal `json:"balance"`
}

// Transfer is one payment in the settlement plan.
type Transfer struct {
	From     uuid.UUID       `json:"from"`
	FromName string          `json:"from_name"`
	To       uuid.UUID       `json:"to"`
	ToName   string          `json:"to_name"`
	Amount   decimal.Decimal `json:"amount"`
}

// CategoryBreakdown groups the month's transactions by category.
type CategoryBreakdown struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// BudgetStatus reports spend against one active budget rule.
type BudgetStatus struct {
	RuleID       uuid.UUID       `json:"rule_id"`
	Category     *string         `json:"category,omitempty"`
	ExpenseType  *string         `json:"expense_type,omitempty"`
	MonthlyLimit decimal.Decimal `json:"monthly_limit"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	PercentUsed  decimal.Decimal `json:"percent_used"`
	OverBudget   bool            `json:"over_budget"`
}

// Summary is the reconciliation result for one household-month.
type Summary struct {
	Month             string                         `json:"month"`
	Currency          string                         `json:"currency"`
	TotalSpent        decimal.Decimal                `json:"total_spent"`
	UserPayments      map[uuid.UUID]decimal.Decimal  `json:"user_payments"`
	Breakdown         []CategoryBreakdown            `json:"breakdown"`
	Balances          []MemberBalance                `json:"balances"`
	Transfers         []Transfer                     `json:"transfers"`
	SettlementMessage string                         `json:"settlement_message"`
	BudgetStatus      []BudgetStatus                 `json:"budget_status"`
	IsSettled         bool                           `json:"is_settled"`
}

// Compute derives the settlement summary from the month's records. The sum
// of balances across members is always zero: every cent attributed as owed
// is also attributed as paid.
func Compute(in Input) (*Summary, error) {
	if len(in.Members) == 0 {
		return nil, ErrNoMembers
	}

	members := make([]models.Member, len(in.Members))
	copy(members, in.Members)
	sort.Slice(members, func(i, j int) bool {
		return members[i].ID.String() < members[j].ID.String()
	})

	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.DisplayName
	}

	weights := shareWeights(members, in.SplitRules)

	paid := make(map[uuid.UUID]decimal.Decimal, len(members))
	owed := make(map[uuid.UUID]decimal.Decimal, len(members))
	for _, m := range members {
		paid[m.ID] = decimal.Zero
		owed[m.ID] = decimal.Zero
	}

	total := decimal.Zero
	byCategory := make(map[string]*CategoryBreakdown)

	for _, tx := range in.Transactions {
		if err := validateTx(tx, names); err != nil {
			return nil, err
		}

		total = total.Add(tx.Amount)
		paid[tx.PaidBy] = paid[tx.PaidBy].Add(tx.Amount)

		cb, ok := byCategory[tx.Category]
		if !ok {
			cb = &CategoryBreakdown{Category: tx.Category, Subtotal: decimal.Zero}
			byCategory[tx.Category] = cb
		}
		cb.Count++
		cb.Subtotal = cb.Subtotal.Add(tx.Amount)

		switch tx.Category {
		case models.CategoryShared:
			for id, share := range splitShares(tx.Amount, members, weights) {
				owed[id] = owed[id].Add(share)
			}
		case models.CategoryPaidFor:
			owed[*tx.BeneficiaryID] = owed[*tx.BeneficiaryID].Add(tx.Amount)
		case models.CategoryPersonal:
			owed[tx.PaidBy] = owed[tx.PaidBy].Add(tx.Amount)
		}
	}

	balances := make([]MemberBalance, 0, len(members))
	for _, m := range members {
		balances = append(balances, MemberBalance{
			MemberID:    m.ID,
			DisplayName: m.DisplayName,
			Paid:        paid[m.ID],
			FairShare:   owed[m.ID],
			Balance:     paid[m.ID].Sub(owed[m.ID]),
		})
	}

	transfers := settleTransfers(balances)

	breakdown := make([]CategoryBreakdown, 0, len(byCategory))
	for _, cb := range byCategory {
		breakdown = append(breakdown, *cb)
	}
	sort.Slice(breakdown, func(i, j int) bool { return breakdown[i].Category < breakdown[j].Category })

	return &Summary{
		Month:             in.Month,
		Currency:          in.Currency,
		TotalSpent:        total,
		UserPayments:      paid,
		Breakdown:         breakdown,
		Balances:          balances,
		Transfers:         transfers,
		SettlementMessage: settlementMessage(in.Month, in.Currency, transfers),
		BudgetStatus:      budgetStatus(in.BudgetRules, in.Transactions),
		IsSettled:         in.IsSettled,
	}, nil
}

func validateTx(tx models.Transaction, names map[uuid.UUID]string) error {
	if !tx.Amount.IsPositive() || !tx.Amount.Equal(tx.Amount.Round(2)) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, tx.Amount)
	}
	if !models.ValidCategory(tx.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTx, tx.Category)
	}
	if _, ok := names[tx.PaidBy]; !ok {
		return fmt.Errorf("%w: payer %s", ErrUnknownMember, tx.PaidBy)
	}
	if tx.Category == models.CategoryPaidFor {
		if tx.BeneficiaryID == nil {
			return ErrMissingPayee
		}
		if _, ok := names[*tx.BeneficiaryID]; !ok {
			return fmt.Errorf("%w: beneficiary %s", ErrUnknownMember, *tx.BeneficiaryID)
		}
	}
	return nil
}

// shareWeights returns the percentage weight per member for shared
// transactions, or nil when the rule set is absent or inconsistent (missing
// members, not summing to 100), in which case costs split evenly.
func shareWeights(members []models.Member, rules []models.SplitRule) map[uuid.UUID]int64 {
	if len(rules) == 0 {
		return nil
	}
	ids := make(map[uuid.UUID]bool, len(members))
	for _, m := range members {
		ids[m.ID] = true
	}
	weights := make(map[uuid.UUID]int64, len(rules))
	var sum int64
	for _, r := range rules {
		if !ids[r.MemberID] || r.Percent < 0 {
			return nil
		}
		weights[r.MemberID] = int64(r.Percent)
		sum += int64(r.Percent)
	}
	if sum != 100 {
		return nil
	}
	return weights
}

var cent = decimal.New(1, -2)

// splitShares divides amount across members at cent precision. Any residual
// cents left by rounding down go one per member in ascending member-ID
// order, so the shares always sum to the full amount.
func splitShares(amount decimal.Decimal, members []models.Member, weights map[uuid.UUID]int64) map[uuid.UUID]decimal.Decimal {
	shares := make(map[uuid.UUID]decimal.Decimal, len(members))
	assigned := decimal.Zero

	n := decimal.NewFromInt(int64(len(members)))
	for _, m := range members {
		var share decimal.Decimal
		if weights != nil {
			share = amount.Mul(decimal.NewFromInt(weights[m.ID])).Div(decimal.NewFromInt(100)).RoundDown(2)
		} else {
			share = amount.Div(n).RoundDown(2)
		}
		shares[m.ID] = share
		assigned = assigned.Add(share)
	}

	residual := amount.Sub(assigned)
	for i := 0; residual.IsPositive(); i = (i + 1) % len(members) {
		shares[members[i].ID] = shares[members[i].ID].Add(cent)
		residual = residual.Sub(cent)
	}
	return shares
}

// settleTransfers produces a settlement plan that zeroes every balance using
// greedy largest-debtor to largest-creditor matching. The plan is not
// guaranteed unique, only exhaustive: after applying every transfer all
// balances are zero.
func settleTransfers(balances []MemberBalance) []Transfer {
	type party struct {
		id     uuid.UUID
		name   string
		amount decimal.Decimal
	}
	var debtors, creditors []party
	for _, b := range balances {
		switch {
		case b.Balance.IsNegative():
			debtors = append(debtors, party{b.MemberID, b.DisplayName, b.Balance.Neg()})
		case b.Balance.IsPositive():
			creditors = append(creditors, party{b.MemberID, b.DisplayName, b.Balance})
		}
	}
	byAmountDesc := func(ps []party) func(i, j int) bool {
		return func(i, j int) bool {
			if !ps[i].amount.Equal(ps[j].amount) {
				return ps[i].amount.GreaterThan(ps[j].amount)
			}
			return ps[i].id.String() < ps[j].id.String()
		}
	}
	sort.Slice(debtors, byAmountDesc(debtors))
	sort.Slice(creditors, byAmountDesc(creditors))

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].amount
		if creditors[j].amount.LessThan(amount) {
			amount = creditors[j].amount
		}
		transfers = append(transfers, Transfer{
			From:     debtors[i].id,
			FromName: debtors[i].name,
			To:       creditors[j].id,
			ToName:   creditors[j].name,
			Amount:   amount,
		})
		debtors[i].amount = debtors[i].amount.Sub(amount)
		creditors[j].amount = creditors[j].amount.Sub(amount)
		if debtors[i].amount.IsZero() {
			i++
		}
		if creditors[j].amount.IsZero() {
			j++
		}
	}
	return transfers
}

// settlementMessage renders the plan as a human-readable directional
// statement. With two members this is a single "X owes Y $Z"; with more it
// chains one clause per transfer. No transfers means the month nets out.
func settlementMessage(month, currency string, transfers []Transfer) string {
	if len(transfers) == 0 {
		return fmt.Sprintf("All settled up for %s. No transfer needed.", month)
	}
	clauses := make([]string, len(transfers))
	for i, t := range transfers {
		clauses[i] = fmt.Sprintf("%s owes %s %s", t.FromName, t.ToName, FormatAmount(t.Amount, currency))
	}
	return strings.Join(clauses, "; ")
}

// budgetStatus evaluates every active budget rule against the month's
// transactions. Rules scope by category and/or expense type; an unset scope
// field matches everything.
func budgetStatus(rules []models.BudgetRule, txs []models.Transaction) []BudgetStatus {
	var statuses []BudgetStatus
	for _, r := range rules {
		if !r.Active || !r.MonthlyLimit.IsPositive() {
			continue
		}
		spent := decimal.Zero
		for _, tx := range txs {
			if r.Category != nil && tx.Category != *r.Category {
				continue
			}
			if r.ExpenseType != nil && (tx.ExpenseType == nil || *tx.ExpenseType != *r.ExpenseType) {
				continue
			}
			spent = spent.Add(tx.Amount)
		}
		statuses = append(statuses, BudgetStatus{
			RuleID:       r.ID,
			Category:     r.Category,
			ExpenseType:  r.ExpenseType,
			MonthlyLimit: r.MonthlyLimit,
			Spent:        spent,
			Remaining:    r.MonthlyLimit.Sub(spent),
			PercentUsed:  spent.Div(r.MonthlyLimit).Mul(decimal.NewFromInt(100)).Round(1),
			OverBudget:   spent.GreaterThan(r.MonthlyLimit),
		})
	}
	return statuses
}

// FormatAmount renders a money amount at the currency's minor unit. USD gets
// the conventional symbol; other currencies use a trailing code.
func FormatAmount(d decimal.Decimal, currency string) string {
	if currency == "" || currency == "USD" {
		return "$" + d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + currency
}

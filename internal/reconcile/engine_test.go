package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yilunzh/household-finance-sub002/internal/models"
)

var (
	aliceID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bobID   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	carolID = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

func member(id uuid.UUID, name string) models.Member {
	return models.Member{ID: id, DisplayName: name, Role: models.RoleMember, IsActive: true}
}

func tx(payer uuid.UUID, category string, amount string, beneficiary *uuid.UUID) models.Transaction {
	return models.Transaction{
		ID:            uuid.New(),
		Date:          time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Merchant:      "Test Merchant",
		Amount:        decimal.RequireFromString(amount),
		Currency:      "USD",
		PaidBy:        payer,
		Category:      category,
		BeneficiaryID: beneficiary,
	}
}

func balanceOf(t *testing.T, s *Summary, id uuid.UUID) MemberBalance {
	t.Helper()
	for _, b := range s.Balances {
		if b.MemberID == id {
			return b
		}
	}
	t.Fatalf("no balance for member %s", id)
	return MemberBalance{}
}

func assertConservation(t *testing.T, s *Summary) {
	t.Helper()
	sum := decimal.Zero
	for _, b := range s.Balances {
		sum = sum.Add(b.Balance)
	}
	if !sum.IsZero() {
		t.Errorf("balances sum to %s, want 0", sum)
	}
}

func TestComputeTwoMemberShared(t *testing.T) {
	// Grocery Store $150 paid by Alice, Restaurant $80 paid by Bob, both
	// shared. Alice is owed $35, Bob owes $35.
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryShared, "150.00", nil),
			tx(bobID, models.CategoryShared, "80.00", nil),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if want := decimal.RequireFromString("230"); !summary.TotalSpent.Equal(want) {
		t.Errorf("TotalSpent = %s, want %s", summary.TotalSpent, want)
	}

	alice := balanceOf(t, summary, aliceID)
	bob := balanceOf(t, summary, bobID)
	if want := decimal.RequireFromString("115"); !alice.FairShare.Equal(want) || !bob.FairShare.Equal(want) {
		t.Errorf("fair shares = %s/%s, want 115 each", alice.FairShare, bob.FairShare)
	}
	if want := decimal.RequireFromString("35"); !alice.Balance.Equal(want) {
		t.Errorf("Alice balance = %s, want %s", alice.Balance, want)
	}
	if want := decimal.RequireFromString("-35"); !bob.Balance.Equal(want) {
		t.Errorf("Bob balance = %s, want %s", bob.Balance, want)
	}

	if got, want := summary.SettlementMessage, "Bob owes Alice $35.00"; got != want {
		t.Errorf("SettlementMessage = %q, want %q", got, want)
	}
	assertConservation(t, summary)
}

func TestComputePaidForChargesBeneficiary(t *testing.T) {
	// Alice pays $40 for Bob: Bob's fair share rises by the full amount,
	// Alice's does not, and Alice's paid total includes it.
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryPaidFor, "40.00", &bobID),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	alice := balanceOf(t, summary, aliceID)
	bob := balanceOf(t, summary, bobID)
	if !alice.FairShare.IsZero() {
		t.Errorf("Alice fair share = %s, want 0", alice.FairShare)
	}
	if want := decimal.RequireFromString("40"); !bob.FairShare.Equal(want) {
		t.Errorf("Bob fair share = %s, want %s", bob.FairShare, want)
	}
	if want := decimal.RequireFromString("40"); !alice.Paid.Equal(want) {
		t.Errorf("Alice paid = %s, want %s", alice.Paid, want)
	}
	if got, want := summary.SettlementMessage, "Bob owes Alice $40.00"; got != want {
		t.Errorf("SettlementMessage = %q, want %q", got, want)
	}
	assertConservation(t, summary)
}

func TestComputePersonalHasNoCrossMemberEffect(t *testing.T) {
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryPersonal, "25.50", nil),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	alice := balanceOf(t, summary, aliceID)
	bob := balanceOf(t, summary, bobID)
	if !alice.Balance.IsZero() || !bob.Balance.IsZero() {
		t.Errorf("balances = %s/%s, want 0/0", alice.Balance, bob.Balance)
	}
	if got, want := summary.SettlementMessage, "All settled up for 2025-06. No transfer needed."; got != want {
		t.Errorf("SettlementMessage = %q, want %q", got, want)
	}
	assertConservation(t, summary)
}

func TestComputeRoundingResidualGoesToFirstMemberByID(t *testing.T) {
	// $100.01 shared between two members cannot split evenly; the extra
	// cent lands on the member with the lowest ID.
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(bobID, "Bob"), member(aliceID, "Alice")},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryShared, "100.01", nil),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	alice := balanceOf(t, summary, aliceID)
	bob := balanceOf(t, summary, bobID)
	if want := decimal.RequireFromString("50.01"); !alice.FairShare.Equal(want) {
		t.Errorf("Alice fair share = %s, want %s", alice.FairShare, want)
	}
	if want := decimal.RequireFromString("50.00"); !bob.FairShare.Equal(want) {
		t.Errorf("Bob fair share = %s, want %s", bob.FairShare, want)
	}
	assertConservation(t, summary)
}

func TestComputeThreeMemberTransfersZeroAllBalances(t *testing.T) {
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members: []models.Member{
			member(aliceID, "Alice"),
			member(bobID, "Bob"),
			member(carolID, "Carol"),
		},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryShared, "90.00", nil),
			tx(bobID, models.CategoryShared, "30.00", nil),
			tx(aliceID, models.CategoryPaidFor, "15.00", &carolID),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	assertConservation(t, summary)

	// Applying every transfer must leave each member at zero.
	net := map[uuid.UUID]decimal.Decimal{}
	for _, b := range summary.Balances {
		net[b.MemberID] = b.Balance
	}
	for _, tr := range summary.Transfers {
		net[tr.From] = net[tr.From].Add(tr.Amount)
		net[tr.To] = net[tr.To].Sub(tr.Amount)
	}
	for id, bal := range net {
		if !bal.IsZero() {
			t.Errorf("member %s left with %s after transfers, want 0", id, bal)
		}
	}

	// With one creditor, the greedy plan needs at most n-1 transfers.
	if len(summary.Transfers) > 2 {
		t.Errorf("transfer count = %d, want <= 2", len(summary.Transfers))
	}
}

func TestComputeSplitRuleWeights(t *testing.T) {
	// 70/30 split rule: Alice owes $70 of a $100 shared cost.
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		SplitRules: []models.SplitRule{
			{MemberID: aliceID, Percent: 70},
			{MemberID: bobID, Percent: 30},
		},
		Transactions: []models.Transaction{
			tx(bobID, models.CategoryShared, "100.00", nil),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	alice := balanceOf(t, summary, aliceID)
	if want := decimal.RequireFromString("70"); !alice.FairShare.Equal(want) {
		t.Errorf("Alice fair share = %s, want %s", alice.FairShare, want)
	}
	if got, want := summary.SettlementMessage, "Alice owes Bob $70.00"; got != want {
		t.Errorf("SettlementMessage = %q, want %q", got, want)
	}
	assertConservation(t, summary)
}

func TestComputeInconsistentSplitRulesFallBackToEvenSplit(t *testing.T) {
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		SplitRules: []models.SplitRule{
			{MemberID: aliceID, Percent: 70}, // sums to 70, not 100
		},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryShared, "100.00", nil),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	bob := balanceOf(t, summary, bobID)
	if want := decimal.RequireFromString("50"); !bob.FairShare.Equal(want) {
		t.Errorf("Bob fair share = %s, want %s (even split fallback)", bob.FairShare, want)
	}
}

func TestComputeEmptyMonth(t *testing.T) {
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if !summary.TotalSpent.IsZero() {
		t.Errorf("TotalSpent = %s, want 0", summary.TotalSpent)
	}
	if len(summary.Transfers) != 0 {
		t.Errorf("Transfers = %v, want none", summary.Transfers)
	}
	if len(summary.Breakdown) != 0 {
		t.Errorf("Breakdown = %v, want empty", summary.Breakdown)
	}
	assertConservation(t, summary)
}

func TestComputeBudgetStatus(t *testing.T) {
	shared := models.CategoryShared
	groceries := "groceries"
	summary, err := Compute(Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		BudgetRules: []models.BudgetRule{
			{ID: uuid.New(), Category: &shared, MonthlyLimit: decimal.RequireFromString("200"), Active: true},
			{ID: uuid.New(), ExpenseType: &groceries, MonthlyLimit: decimal.RequireFromString("100"), Active: false},
		},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryShared, "150.00", nil),
			tx(bobID, models.CategoryShared, "80.00", nil),
			tx(bobID, models.CategoryPersonal, "999.00", nil),
		},
	})
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if len(summary.BudgetStatus) != 1 {
		t.Fatalf("BudgetStatus count = %d, want 1 (inactive rules skipped)", len(summary.BudgetStatus))
	}
	bs := summary.BudgetStatus[0]
	if want := decimal.RequireFromString("230"); !bs.Spent.Equal(want) {
		t.Errorf("Spent = %s, want %s", bs.Spent, want)
	}
	if !bs.OverBudget {
		t.Error("OverBudget = false, want true")
	}
	if want := decimal.RequireFromString("-30"); !bs.Remaining.Equal(want) {
		t.Errorf("Remaining = %s, want %s", bs.Remaining, want)
	}
	if want := decimal.RequireFromString("115"); !bs.PercentUsed.Equal(want) {
		t.Errorf("PercentUsed = %s, want %s", bs.PercentUsed, want)
	}
}

func TestComputeValidation(t *testing.T) {
	outsider := uuid.MustParse("00000000-0000-0000-0000-0000000000ff")
	members := []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")}

	tests := []struct {
		name    string
		txs     []models.Transaction
		wantErr error
	}{
		{
			name:    "non-member payer",
			txs:     []models.Transaction{tx(outsider, models.CategoryShared, "10.00", nil)},
			wantErr: ErrUnknownMember,
		},
		{
			name:    "non-member beneficiary",
			txs:     []models.Transaction{tx(aliceID, models.CategoryPaidFor, "10.00", &outsider)},
			wantErr: ErrUnknownMember,
		},
		{
			name:    "paid_for without beneficiary",
			txs:     []models.Transaction{tx(aliceID, models.CategoryPaidFor, "10.00", nil)},
			wantErr: ErrMissingPayee,
		},
		{
			name:    "zero amount",
			txs:     []models.Transaction{tx(aliceID, models.CategoryShared, "0", nil)},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			txs:     []models.Transaction{tx(aliceID, models.CategoryShared, "-5.00", nil)},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "sub-cent amount",
			txs:     []models.Transaction{tx(aliceID, models.CategoryShared, "10.001", nil)},
			wantErr: ErrInvalidAmount,
		},
		{
			name: "unknown category",
			txs: []models.Transaction{func() models.Transaction {
				t := tx(aliceID, models.CategoryShared, "10.00", nil)
				t.Category = "split-three-ways"
				return t
			}()},
			wantErr: ErrInvalidTx,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(Input{Month: "2025-06", Currency: "USD", Members: members, Transactions: tt.txs})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Compute() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("no members", func(t *testing.T) {
		_, err := Compute(Input{Month: "2025-06", Currency: "USD"})
		if !errors.Is(err, ErrNoMembers) {
			t.Errorf("Compute() error = %v, want %v", err, ErrNoMembers)
		}
	})
}

func TestSettleThenUnsettleIsStable(t *testing.T) {
	// Recomputing after a settle/unsettle round trip with unchanged
	// transactions yields the identical summary; only IsSettled differs
	// while the settlement exists.
	in := Input{
		Month:    "2025-06",
		Currency: "USD",
		Members:  []models.Member{member(aliceID, "Alice"), member(bobID, "Bob")},
		Transactions: []models.Transaction{
			tx(aliceID, models.CategoryShared, "150.00", nil),
			tx(bobID, models.CategoryShared, "80.00", nil),
		},
	}

	before, err := Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	in.IsSettled = true
	during, err := Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	in.IsSettled = false
	after, err := Compute(in)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if !during.IsSettled || before.IsSettled || after.IsSettled {
		t.Error("IsSettled flags did not track input")
	}
	if before.SettlementMessage != after.SettlementMessage {
		t.Errorf("message changed across settle cycle: %q vs %q", before.SettlementMessage, after.SettlementMessage)
	}
	for i := range before.Balances {
		if !before.Balances[i].Balance.Equal(after.Balances[i].Balance) {
			t.Errorf("balance for %s changed across settle cycle", before.Balances[i].DisplayName)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"35", "USD", "$35.00"},
		{"35.5", "", "$35.50"},
		{"12.34", "EUR", "12.34 EUR"},
	}
	for _, tt := range tests {
		if got := FormatAmount(decimal.RequireFromString(tt.amount), tt.currency); got != tt.want {
			t.Errorf("FormatAmount(%s, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

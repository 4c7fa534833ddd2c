package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven/rental-engine/billing"
)

// halfCycleInput is the reference move-out: 10000/month rent, both deposits
// 10000, final cycle prorated to 15 of 30 days, 800 electricity, 500 water,
// no extra fee, no prior outstanding.
func halfCycleInput(fullyPaidCycles int) billing.SettlementInput {
	return billing.SettlementInput{
		MonthlyRent:      money(10000),
		PeriodStart:      date(2025, time.April, 1),
		PeriodEnd:        date(2025, time.April, 30),
		MoveOutDate:      date(2025, time.April, 15),
		Electricity:      money(800),
		Water:            money(500),
		ExtraFee:         billing.ZeroMoney(),
		PriorOutstanding: billing.ZeroMoney(),
		FullyPaidCycles:  fullyPaidCycles,
		AdvancePayment:   money(10000),
		SecurityDeposit:  money(10000),
	}
}

// =============================================================================
// REFERENCE SCENARIOS
// =============================================================================

func TestCalculateFinalBill_ThreeFullyPaidCycles_DepositForfeited(t *testing.T) {
	// GIVEN: Move-out after 3 fully-paid cycles (below the threshold)
	// WHEN: Settling the final bill
	// THEN: Prorated rent 5000, total 6300; only the advance payment is
	//       available, the security deposit forfeits, and 3700 refunds

	s, err := billing.CalculateFinalBill(halfCycleInput(3))
	require.NoError(t, err)

	assert.True(t, s.ProratedRent.Equal(money(5000)), "prorated rent %s", s.ProratedRent)
	assert.True(t, s.TotalBeforeDeposits.Equal(money(6300)))
	assert.True(t, s.Deposits.Applied.Equal(money(6300)))
	assert.True(t, s.Deposits.Forfeited.Equal(money(10000)))
	assert.True(t, s.Deposits.Refund.Equal(money(3700)))

	assert.Equal(t, billing.OutcomeRefund, s.Outcome.Kind)
	assert.True(t, s.Outcome.Amount.Equal(money(3700)))

	totalDue, paid := s.LegacyAmounts()
	assert.True(t, totalDue.Equal(money(-3700)))
	assert.True(t, paid.Equal(money(-3700)))
}

func TestCalculateFinalBill_SixFullyPaidCycles_DepositKept(t *testing.T) {
	// GIVEN: Same move-out but after 6 fully-paid cycles (past the threshold)
	// WHEN: Settling the final bill
	// THEN: Both deposits available, nothing forfeited, 13700 refunds

	s, err := billing.CalculateFinalBill(halfCycleInput(6))
	require.NoError(t, err)

	assert.True(t, s.Deposits.Applied.Equal(money(6300)))
	assert.True(t, s.Deposits.Forfeited.IsZero())
	assert.True(t, s.Deposits.Refund.Equal(money(13700)))

	assert.Equal(t, billing.OutcomeRefund, s.Outcome.Kind)
	totalDue, paid := s.LegacyAmounts()
	assert.True(t, totalDue.Equal(money(-13700)))
	assert.True(t, paid.Equal(money(-13700)))
}

// =============================================================================
// OUTCOME VARIANTS
// =============================================================================

func TestCalculateFinalBill_BalanceExceedsDeposits_Due(t *testing.T) {
	in := halfCycleInput(2)
	in.PriorOutstanding = money(12000) // pushes total past the advance payment

	s, err := billing.CalculateFinalBill(in)
	require.NoError(t, err)

	// total = 6300 + 12000 = 18300, only 10000 available below threshold
	assert.True(t, s.TotalBeforeDeposits.Equal(money(18300)))
	assert.Equal(t, billing.OutcomeDue, s.Outcome.Kind)
	assert.True(t, s.Outcome.Amount.Equal(money(8300)))

	totalDue, paid := s.LegacyAmounts()
	assert.True(t, totalDue.Equal(money(18300)))
	assert.True(t, paid.Equal(money(10000)))
}

func TestCalculateFinalBill_DepositExactlyCoversBalance_Settled(t *testing.T) {
	in := halfCycleInput(2)
	in.PriorOutstanding = money(3700) // total = 6300 + 3700 = advance payment

	s, err := billing.CalculateFinalBill(in)
	require.NoError(t, err)

	assert.Equal(t, billing.OutcomeSettled, s.Outcome.Kind)
	assert.True(t, s.Outcome.Amount.IsZero())
	assert.True(t, s.Deposits.Refund.IsZero())

	totalDue, paid := s.LegacyAmounts()
	assert.True(t, totalDue.Equal(paid), "settled bill must show equal due and paid")
}

func TestCalculateFinalBill_RoomTransfer_KeepsDepositForNewTenancy(t *testing.T) {
	in := halfCycleInput(1)
	in.IsRoomTransfer = true

	s, err := billing.CalculateFinalBill(in)
	require.NoError(t, err)

	assert.True(t, s.Deposits.Forfeited.IsZero())
	assert.True(t, s.Deposits.Refund.Equal(money(13700)))
}

// =============================================================================
// PURITY
// =============================================================================

func TestCalculateFinalBill_Idempotent(t *testing.T) {
	in := halfCycleInput(3)

	first, err := billing.CalculateFinalBill(in)
	require.NoError(t, err)
	second, err := billing.CalculateFinalBill(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCalculateFinalBill_MoveOutBeforePeriod_PropagatesError(t *testing.T) {
	in := halfCycleInput(3)
	in.MoveOutDate = date(2025, time.March, 20)

	_, err := billing.CalculateFinalBill(in)
	assert.ErrorIs(t, err, billing.ErrInvalidProration)
}

package billing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haven/rental-engine/billing"
)

// =============================================================================
// FORFEITURE THRESHOLD BOUNDARY
// =============================================================================

func TestApplyDeposits_ThresholdReached_BothDepositsAvailable(t *testing.T) {
	// GIVEN: Exactly 5 fully-paid cycles, A=10000, S=10000, balance=20000
	// WHEN: Applying deposits
	// THEN: Both deposits cover the balance, nothing forfeited, nothing refunded

	d, err := billing.ApplyDeposits(5, money(10000), money(10000), money(20000), false)
	require.NoError(t, err)

	assert.True(t, d.Available.Equal(money(20000)))
	assert.True(t, d.Applied.Equal(money(20000)))
	assert.True(t, d.Forfeited.IsZero())
	assert.True(t, d.Refund.IsZero())
}

func TestApplyDeposits_OneCycleShort_SecurityDepositForfeited(t *testing.T) {
	// GIVEN: 4 fully-paid cycles (one short of the threshold), same amounts
	// WHEN: Applying deposits
	// THEN: Only the advance payment is available; the whole security
	//       deposit is forfeited even though the balance exceeds it

	d, err := billing.ApplyDeposits(4, money(10000), money(10000), money(20000), false)
	require.NoError(t, err)

	assert.True(t, d.Available.Equal(money(10000)))
	assert.True(t, d.Applied.Equal(money(10000)))
	assert.True(t, d.Forfeited.Equal(money(10000)))
	assert.True(t, d.Refund.IsZero())
}

func TestApplyDeposits_ForfeitureIsAllOrNothing(t *testing.T) {
	// Below threshold the security deposit forfeits in full even when the
	// advance payment alone covers the balance.
	d, err := billing.ApplyDeposits(2, money(10000), money(10000), money(1500), false)
	require.NoError(t, err)

	assert.True(t, d.Applied.Equal(money(1500)))
	assert.True(t, d.Forfeited.Equal(money(10000)))
	assert.True(t, d.Refund.Equal(money(8500)))
}

// =============================================================================
// ROOM TRANSFER
// =============================================================================

func TestApplyDeposits_RoomTransfer_NeverForfeits(t *testing.T) {
	// Room transfers continue the tenancy, so even a brand-new tenant
	// keeps the security deposit available.
	d, err := billing.ApplyDeposits(0, money(8000), money(8000), money(3000), true)
	require.NoError(t, err)

	assert.True(t, d.Available.Equal(money(16000)))
	assert.True(t, d.Applied.Equal(money(3000)))
	assert.True(t, d.Forfeited.IsZero())
	assert.True(t, d.Refund.Equal(money(13000)))
}

// =============================================================================
// ZERO BALANCE
// =============================================================================

func TestApplyDeposits_ZeroBalance_RefundsEverythingAvailable(t *testing.T) {
	cases := []struct {
		cycles         int
		wantAvailable  billing.Money
	}{
		{cycles: 1, wantAvailable: money(10000)},  // advance only
		{cycles: 5, wantAvailable: money(20000)},  // both deposits
		{cycles: 12, wantAvailable: money(20000)}, // well past threshold
	}

	for _, tc := range cases {
		d, err := billing.ApplyDeposits(tc.cycles, money(10000), money(10000), billing.ZeroMoney(), false)
		require.NoError(t, err)

		assert.True(t, d.Applied.IsZero(), "cycles=%d", tc.cycles)
		assert.True(t, d.Refund.Equal(tc.wantAvailable), "cycles=%d: got %s", tc.cycles, d.Refund)
	}
}

// =============================================================================
// INVARIANTS AND INPUT VALIDATION
// =============================================================================

func TestApplyDeposits_AvailableSplitsIntoAppliedPlusRefund(t *testing.T) {
	for cycles := 0; cycles <= 8; cycles++ {
		for _, balance := range []float64{0, 1500, 10000, 19999, 20000, 50000} {
			d, err := billing.ApplyDeposits(cycles, money(10000), money(10000), money(balance), false)
			require.NoError(t, err)
			assert.True(t, d.Available.Equal(d.Applied.Add(d.Refund)),
				"cycles=%d balance=%v", cycles, balance)
		}
	}
}

func TestApplyDeposits_NegativeInputs_Rejected(t *testing.T) {
	_, err := billing.ApplyDeposits(-1, money(1), money(1), money(1), false)
	assert.ErrorIs(t, err, billing.ErrNegativeInput)

	_, err = billing.ApplyDeposits(3, money(-1), money(1), money(1), false)
	assert.ErrorIs(t, err, billing.ErrNegativeInput)

	_, err = billing.ApplyDeposits(3, money(1), money(1), money(-1), false)
	assert.ErrorIs(t, err, billing.ErrNegativeInput)
}

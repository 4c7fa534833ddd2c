package tenancy_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/haven/rental-engine/billing"
	"github.com/haven/rental-engine/tenancy"
)

func money(v float64) billing.Money { return billing.NewMoney(v) }

// =============================================================================
// STATUS DERIVATION
// =============================================================================

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name     string
		totalDue billing.Money
		paid     billing.Money
		want     tenancy.BillStatus
	}{
		{"nothing paid", money(12000), money(0), tenancy.StatusActive},
		{"partial", money(12000), money(5000), tenancy.StatusPartiallyPaid},
		{"exact", money(12000), money(12000), tenancy.StatusFullyPaid},
		{"overpaid", money(12000), money(12500), tenancy.StatusFullyPaid},
		{"refund bill", money(-3700), money(-3700), tenancy.StatusRefund},
		{"zero bill", money(0), money(0), tenancy.StatusFullyPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tenancy.DeriveStatus(tc.totalDue, tc.paid))
		})
	}
}

// =============================================================================
// CYCLE COUNTING AND READING CHAIN
// =============================================================================

func TestFullyPaidCount_OnlyCountsFullyPaid(t *testing.T) {
	bills := []tenancy.Bill{
		{Status: tenancy.StatusFullyPaid},
		{Status: tenancy.StatusFullyPaid},
		{Status: tenancy.StatusPartiallyPaid},
		{Status: tenancy.StatusActive},
		{Status: tenancy.StatusRefund},
	}
	assert.Equal(t, 2, tenancy.FullyPaidCount(bills))
}

func TestPreviousReadingFor_ChainsFromLatestBill(t *testing.T) {
	tenant := tenancy.Tenant{InitialElectricityReading: decimal.NewFromInt(500)}

	// No bills yet: the tenant's initial reading seeds the chain.
	assert.True(t, tenancy.PreviousReadingFor(tenant, nil).Equal(decimal.NewFromInt(500)))

	bills := []tenancy.Bill{
		{PresentReading: decimal.NewFromInt(620)},
		{PresentReading: decimal.NewFromInt(751)},
	}
	assert.True(t, tenancy.PreviousReadingFor(tenant, bills).Equal(decimal.NewFromInt(751)))
}

func TestBillOutstanding_NeverNegative(t *testing.T) {
	b := tenancy.Bill{TotalAmountDue: money(1000), AmountPaid: money(400)}
	assert.True(t, b.Outstanding().Equal(money(600)))

	over := tenancy.Bill{TotalAmountDue: money(1000), AmountPaid: money(1500)}
	assert.True(t, over.Outstanding().IsZero())

	refund := tenancy.Bill{TotalAmountDue: money(-3700), AmountPaid: money(-3700)}
	assert.True(t, refund.Outstanding().IsZero())
}

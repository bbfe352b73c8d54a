package billing

import (
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvoice(t *testing.T) {
	fulfillmentID := uuid.New()

	t.Run("valid proforma invoice", func(t *testing.T) {
		inv, err := NewInvoice("PF-001", TypeProforma, decimal.NewFromInt(540), valueobject.GBP, InvoiceRef{FulfillmentID: &fulfillmentID})
		require.NoError(t, err)
		assert.Equal(t, StatusOpen, inv.Status)
		assert.Equal(t, fulfillmentID, *inv.FulfillmentID)
	})

	t.Run("rejects multiple references", func(t *testing.T) {
		orderID := uuid.New()
		_, err := NewInvoice("PF-002", TypeProforma, decimal.NewFromInt(10), valueobject.GBP, InvoiceRef{OrderID: &orderID, FulfillmentID: &fulfillmentID})
		assert.Error(t, err)
	})

	t.Run("no reference is allowed", func(t *testing.T) {
		_, err := NewInvoice("PF-003", TypeFinal, decimal.NewFromInt(10), valueobject.GBP, InvoiceRef{})
		assert.NoError(t, err)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		_, err := NewInvoice("PF-004", TypeProforma, decimal.NewFromInt(-1), valueobject.GBP, InvoiceRef{})
		assert.Error(t, err)
	})
}

func TestInvoice_MarkPushed(t *testing.T) {
	t.Run("proforma invoices are never pushed", func(t *testing.T) {
		inv, err := NewInvoice("PF-010", TypeProforma, decimal.NewFromInt(100), valueobject.GBP, InvoiceRef{})
		require.NoError(t, err)
		assert.Error(t, inv.MarkPushed())
	})

	t.Run("final invoices push once", func(t *testing.T) {
		inv, err := NewInvoice("FI-010", TypeFinal, decimal.NewFromInt(100), valueobject.GBP, InvoiceRef{})
		require.NoError(t, err)
		require.NoError(t, inv.MarkPushed())
		require.NotNil(t, inv.PushedAt)
		assert.Error(t, inv.MarkPushed())
	})
}

func TestInvoice_Lifecycle(t *testing.T) {
	inv, err := NewInvoice("FI-020", TypeFinal, decimal.NewFromInt(100), valueobject.GBP, InvoiceRef{})
	require.NoError(t, err)

	require.NoError(t, inv.MarkPaid(time.Now()))
	assert.Equal(t, StatusPaid, inv.Status)

	t.Run("paying again is a no-op", func(t *testing.T) {
		require.NoError(t, inv.MarkPaid(time.Now()))
	})

	t.Run("paid invoices cannot be voided", func(t *testing.T) {
		assert.Error(t, inv.Void())
	})

	t.Run("void blocks payment", func(t *testing.T) {
		other, err := NewInvoice("FI-021", TypeFinal, decimal.NewFromInt(50), valueobject.GBP, InvoiceRef{})
		require.NoError(t, err)
		require.NoError(t, other.Void())
		assert.Error(t, other.MarkPaid(time.Now()))
	})
}

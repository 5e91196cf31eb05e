package erp

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sedge/pkg/documents"
	"github.com/Ramsey-B/sedge/pkg/edierr"
	"github.com/Ramsey-B/sedge/pkg/models"
)

func testBridge() *Bridge {
	return NewBridge(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestAccept(t *testing.T) {
	t.Run("should link an inbound purchase order to the created record", func(t *testing.T) {
		b := testBridge()

		links, err := b.ProcessPurchaseOrder(context.Background(), "tenant-1", documents.Header{Number: "PO-77"}, nil)

		require.NoError(t, err)
		require.NotEmpty(t, links.SourceRecordID)
		assert.Equal(t, links.SourceRecordID, links.PurchaseOrderID)
		assert.Empty(t, links.SalesOrderID, "an inbound 850 never links a sales order")
	})

	t.Run("should link an inbound invoice to the purchase order it references", func(t *testing.T) {
		b := testBridge()

		links, err := b.ProcessInvoice(context.Background(), "tenant-1", documents.Header{Number: "INV-9", Reference: "PO-77"}, nil)

		require.NoError(t, err)
		assert.Equal(t, "PO-77", links.PurchaseOrderID)
		assert.Empty(t, links.SalesOrderID)
	})
}

func TestGenerate(t *testing.T) {
	t.Run("should fail when no generator is registered", func(t *testing.T) {
		b := testBridge()

		_, _, err := b.GenerateInvoice(context.Background(), "tenant-1", "rec-1")

		require.Error(t, err)
		assert.True(t, edierr.IsKind(err, edierr.KindConfiguration))
	})

	t.Run("should delegate to the registered generator", func(t *testing.T) {
		b := testBridge()
		b.RegisterGenerator(models.DocTypeInvoice, func(_ context.Context, _, sourceRecordID string) (documents.Header, []models.Row, error) {
			return documents.Header{Number: "INV-" + sourceRecordID}, []models.Row{{"sku": "W-1"}}, nil
		})

		header, lines, err := b.GenerateInvoice(context.Background(), "tenant-1", "42")

		require.NoError(t, err)
		assert.Equal(t, "INV-42", header.Number)
		require.Len(t, lines, 1)
	})
}

package workflow_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
	"github.com/Samsiani/gn1-invoice-dash-sub001/workflow"
	"github.com/shopspring/decimal"
)

// Two concurrent activations compete for the same stock with no Redis
// posting lock available (REDIS_ADDRESS unset): the counter-row locks taken
// before validation must serialize the check-then-act on their own, so
// exactly one activation wins and the product is never oversold.
//
// Run (requires docker): INTEGRATION_TESTS=1 go test ./workflow -run Concurrent -v
func TestConcurrentActivation_WithoutRedis_NeverOversells(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "invoices_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	db := config.GetDB()

	admin := models.User{Username: "race-admin@local", Role: models.UserRoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("create admin: %v", err)
	}
	adminCtx := utils.SetUserIdInContext(ctx, admin.ID)

	product := models.Product{Name: "Mixer", Sku: "MIX-1", StockQty: decimal.NewFromInt(10), TrackStock: utils.NewTrue()}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}

	// Two unpaid drafts, each wanting 6 of the 10 in stock. Drafts are
	// fictive and hold nothing yet.
	draftIds := make([]int, 2)
	for i := range draftIds {
		outcome, err := workflow.SaveInvoice(adminCtx, 0, &models.NewInvoice{
			Items: []models.NewInvoiceItem{
				{ProductId: product.ID, Name: "Mixer", Quantity: flexDec("6"), Price: flexDec("40")},
			},
		})
		if err != nil {
			t.Fatalf("SaveInvoice(draft %d): %v", i, err)
		}
		draftIds[i] = outcome.Invoice.ID
	}
	assertReserved(t, product.ID, "0")

	var wg sync.WaitGroup
	results := make([]error, len(draftIds))
	for i, invoiceId := range draftIds {
		wg.Add(1)
		go func(slot int, id int) {
			defer wg.Done()
			_, results[slot] = workflow.ToggleFinancialStatus(adminCtx, id, models.FinancialStatusStandard)
		}(i, invoiceId)
	}
	wg.Wait()

	wins, shortages := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		default:
			if _, ok := utils.AsShortageList(err); !ok {
				t.Fatalf("unexpected activation error: %v", err)
			}
			shortages++
		}
	}
	if wins != 1 || shortages != 1 {
		t.Fatalf("expected exactly one activation to win; got wins=%d shortages=%d", wins, shortages)
	}
	assertReserved(t, product.ID, "6")
}

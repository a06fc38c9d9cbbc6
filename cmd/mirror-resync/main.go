package main

import (
	"context"
	"log"

	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/models"
	"github.com/Samsiani/gn1-invoice-dash-sub001/workflow"
)

// One-shot maintenance binary: rebuilds every legacy mirror row from the
// canonical store. Safe to re-run.
func main() {
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	synced, err := workflow.ResyncMirrors(context.Background())
	if err != nil {
		log.Fatalf("mirror resync failed after %d invoices: %v", synced, err)
	}
	log.Printf("mirror resync complete: %d invoices", synced)
}

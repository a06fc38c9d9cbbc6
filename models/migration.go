package models

import (
	"github.com/Samsiani/gn1-invoice-dash-sub001/config"
	"github.com/Samsiani/gn1-invoice-dash-sub001/utils"
)

// MigrateTable provisions the canonical store, the mirror and the reference
// tables. The mirror table is migrated first so StoreUnavailable mode has
// somewhere to write even when the canonical migration is skipped.
func MigrateTable() {
	db := config.GetDB()

	utils.ErrorPanic(db.AutoMigrate(&InvoiceMirror{}))

	utils.ErrorPanic(db.AutoMigrate(
		&Invoice{},
		&InvoiceItem{},
		&PaymentRecord{},
		&ProductReservation{},
		&Product{},
		&Customer{},
		&User{},
	))
}

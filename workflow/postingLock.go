package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireNumberingLock serializes invoice-number allocation across instances
// using MySQL advisory locks (covers the no-Redis fallback of the sequence
// counter).
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will do the insert.
func AcquireNumberingLock(tx *gorm.DB) error {
	var ok int
	if err := tx.Raw("SELECT GET_LOCK('invoice_numbering', 30)").Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire invoice numbering lock")
	}
	return nil
}

func ReleaseNumberingLock(tx *gorm.DB) {
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK('invoice_numbering')").Scan(&_ok).Error
}

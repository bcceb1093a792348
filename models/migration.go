package models

import (
	"github.com/infusitech/invoices_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Invoice{},
		&InvoiceItem{},
		&Payment{},
		&Activity{},
		&NumberSeries{},
		&Setting{},
	)
}

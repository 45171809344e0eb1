package models

import (
	"log"

	"bitbucket.org/mmdatafocus/possync_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Tenant{},
		&Branch{},
		&User{},
		&Employee{},
		&Shift{},
		&Supplier{},
		&RepartidorAssignment{},
		&Customer{},
		&Product{},
		&Expense{},
		&RepartidorReturn{},
		&BranchDevice{},
		&SyncEventRecord{},
	)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}

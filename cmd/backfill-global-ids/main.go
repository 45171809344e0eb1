package main

import (
	"context"
	"flag"
	"strings"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/terminalsync"
	"github.com/sirupsen/logrus"
)

// Mints global ids for legacy rows that predate terminal sync, then heals
// soft references that can now resolve. Run once per tenant after enabling
// sync, or with no -tenant-id flag to sweep everything.
func main() {
	tenantId := flag.String("tenant-id", "", "Tenant ID to backfill (optional; default = all)")
	dryRun := flag.Bool("dry-run", true, "Print actions without writing")
	heal := flag.Bool("heal", true, "Heal soft references after minting")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		panic("database not initialized")
	}
	logger := config.GetLogger()
	if logger == nil {
		logger = logrus.New()
	}
	ctx := context.Background()

	var tenantIds []string
	if strings.TrimSpace(*tenantId) != "" {
		tenantIds = []string{strings.TrimSpace(*tenantId)}
	} else {
		var ids []string
		if err := db.Model(&models.Tenant{}).Pluck("id", &ids).Error; err != nil {
			panic(err)
		}
		tenantIds = ids
	}

	entityTypes := []models.SyncEntityType{
		models.SyncEntityEmployee,
		models.SyncEntityShift,
		models.SyncEntitySupplier,
		models.SyncEntityRepartidorAssignment,
		models.SyncEntityCustomer,
		models.SyncEntityProduct,
	}
	tables := map[models.SyncEntityType]string{
		models.SyncEntityEmployee:             "employees",
		models.SyncEntityShift:                "shifts",
		models.SyncEntitySupplier:             "suppliers",
		models.SyncEntityRepartidorAssignment: "repartidor_assignments",
		models.SyncEntityCustomer:             "customers",
		models.SyncEntityProduct:              "products",
	}

	for _, tid := range tenantIds {
		if tid == "" {
			continue
		}

		for _, entityType := range entityTypes {
			table := tables[entityType]
			var ids []int
			err := db.Table(table).
				Where("tenant_id = ? AND (global_id IS NULL OR global_id = '')", tid).
				Pluck("id", &ids).Error
			if err != nil {
				panic(err)
			}
			if len(ids) == 0 {
				continue
			}

			if *dryRun {
				logger.WithFields(logrus.Fields{
					"tenant_id":   tid,
					"entity_type": entityType,
					"rows":        len(ids),
				}).Info("dry-run: would mint global ids")
				continue
			}

			minted := 0
			for _, id := range ids {
				if _, err := terminalsync.EnsureGlobalId(ctx, db, tid, entityType, id); err != nil {
					logger.WithFields(logrus.Fields{
						"tenant_id":   tid,
						"entity_type": entityType,
						"id":          id,
					}).Error("mint failed: " + err.Error())
					continue
				}
				minted++
			}
			logger.WithFields(logrus.Fields{
				"tenant_id":   tid,
				"entity_type": entityType,
				"minted":      minted,
			}).Info("minted global ids")
		}

		if *heal && !*dryRun {
			healed, err := terminalsync.HealSoftReferences(ctx, tid)
			if err != nil {
				logger.WithFields(logrus.Fields{"tenant_id": tid}).Error("heal failed: " + err.Error())
				continue
			}
			logger.WithFields(logrus.Fields{"tenant_id": tid, "healed": healed}).Info("healed soft references")
		}
	}
}

package terminalsync

import (
	"context"

	"bitbucket.org/mmdatafocus/possync_backend/config"
)

// HealSoftReferences resolves foreign keys that were NULL at upload time
// because the referenced row had not arrived yet. Safe to run repeatedly;
// each statement only touches rows where the resolved id is still NULL and a
// matching global id now exists.
func HealSoftReferences(ctx context.Context, tenantId string) (int64, error) {
	db := config.GetDB()

	type healStmt struct {
		table     string
		fkColumn  string
		refTable  string
		gidColumn string
	}
	stmts := []healStmt{
		{"expenses", "employee_id", "employees", "employee_global_id"},
		{"expenses", "shift_id", "shifts", "shift_global_id"},
		{"products", "supplier_id", "suppliers", "supplier_global_id"},
		{"repartidor_returns", "employee_id", "employees", "employee_global_id"},
		{"repartidor_returns", "product_id", "products", "product_global_id"},
		{"repartidor_returns", "assignment_id", "repartidor_assignments", "assignment_global_id"},
		{"repartidor_returns", "shift_id", "shifts", "shift_global_id"},
	}

	var total int64
	for _, s := range stmts {
		sql := "UPDATE " + s.table + " t JOIN " + s.refTable + " r" +
			" ON r.tenant_id = t.tenant_id AND r.global_id = t." + s.gidColumn +
			" SET t." + s.fkColumn + " = r.id" +
			" WHERE t.tenant_id = ? AND t." + s.fkColumn + " IS NULL AND t." + s.gidColumn + " <> ''"
		res := db.WithContext(ctx).Exec(sql, tenantId)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

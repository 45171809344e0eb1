package terminalsync

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer trace.Tracer = otel.Tracer("terminalsync")

// The apply engine is insert-first: try to create the row, and treat a
// duplicate-key error on (tenant_id, global_id) as "somebody got here first",
// falling over to the update path. That makes replayed uploads and racing
// terminals converge on one row without SELECT-then-INSERT windows.

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func gid(s string) *string {
	return &s
}

// ApplyCustomers applies a batch of customer ops. Each op succeeds or fails
// on its own; one bad op never aborts the batch.
func ApplyCustomers(ctx context.Context, tenantId string, ops []SyncCustomerOp) *SyncBatchResponse {
	ctx, span := tracer.Start(ctx, "ApplyCustomers")
	defer span.End()

	resp := &SyncBatchResponse{Results: []OpResult{}}
	for i := range ops {
		resp.add(applyCustomerOp(ctx, tenantId, &ops[i]))
	}
	return resp
}

func applyCustomerOp(ctx context.Context, tenantId string, op *SyncCustomerOp) OpResult {
	db := config.GetDB()

	status, err := initialStatus(op.Status, models.LifecycleStatusConfirmed)
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	if err := utils.ValidateStruct(op); err != nil {
		return failedResult(op.GlobalId, &ValidationError{Reason: err.Error()})
	}
	if op.Phone != nil && *op.Phone != "" {
		if err := utils.ValidatePhoneNumber(*op.Phone, utils.CountryCode); err != nil {
			return failedResult(op.GlobalId, &ValidationError{Field: "phone", Reason: "is not a valid phone number"})
		}
	}

	var result OpResult
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Customer{
			TenantId:          tenantId,
			GlobalId:          gid(op.GlobalId),
			BranchId:          op.BranchId,
			Name:              op.Name,
			Phone:             utils.DereferencePtr(op.Phone),
			Email:             utils.DereferencePtr(op.Email),
			Address:           utils.DereferencePtr(op.Address),
			Notes:             utils.DereferencePtr(op.Notes),
			CreditLimit:       utils.DereferencePtr(op.CreditLimit),
			Status:            status,
			ReviewedByDesktop: defaultReviewed(op.ReviewedByDesktop, op.TerminalId, op.LocalOpSeq),
			TerminalId:        op.TerminalId,
			LocalOpSeq:        op.LocalOpSeq,
			CreatedLocalUtc:   op.CreatedLocalUtc,
			DeviceEventRaw:    op.DeviceEventRaw,
			OriginTerminalId:  op.TerminalId,
		}
		createErr := tx.Create(&row).Error
		if createErr == nil {
			result = OpResult{GlobalId: op.GlobalId, ServerId: row.ID, Outcome: OutcomeCreated, Status: row.Status}
			return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityCustomer, row.ID, op.GlobalId, op.TerminalId, models.SyncEventActionCreated, &row)
		}
		if !isDuplicateKeyErr(createErr) {
			return createErr
		}

		// someone already owns this global id; converge on their row
		var existing models.Customer
		if err := tx.Where("tenant_id = ? AND global_id = ?", tenantId, op.GlobalId).Take(&existing).Error; err != nil {
			return err
		}

		// without needs_update this is a redelivered duplicate; it must not
		// clobber whatever revision the row holds now
		if !op.NeedsUpdate {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}

		updates := map[string]interface{}{}
		if existing.Name != op.Name {
			updates["name"] = op.Name
		}
		if op.Phone != nil && existing.Phone != *op.Phone {
			updates["phone"] = *op.Phone
		}
		if op.Email != nil && existing.Email != *op.Email {
			updates["email"] = *op.Email
		}
		if op.Address != nil && existing.Address != *op.Address {
			updates["address"] = *op.Address
		}
		if op.Notes != nil && existing.Notes != *op.Notes {
			updates["notes"] = *op.Notes
		}
		if op.CreditLimit != nil && !existing.CreditLimit.Equal(*op.CreditLimit) {
			updates["credit_limit"] = *op.CreditLimit
		}
		if op.BranchId != nil && !intPtrEq(existing.BranchId, op.BranchId) {
			updates["branch_id"] = op.BranchId
		}
		finalStatus := applyStatusUpdate(updates, existing.Status, op.Status)
		applyReviewedUpdate(updates, existing.ReviewedByDesktop, op.ReviewedByDesktop)

		if len(updates) == 0 {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}
		stampProvenance(updates, op.TerminalId, op.LocalOpSeq)
		if err := tx.Model(&models.Customer{}).
			Where("tenant_id = ? AND id = ?", tenantId, existing.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUpdated, Status: finalStatus}
		return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityCustomer, existing.ID, op.GlobalId, op.TerminalId, models.SyncEventActionUpdated, updates)
	})
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	return result
}

func ApplyProducts(ctx context.Context, tenantId string, ops []SyncProductOp) *SyncBatchResponse {
	ctx, span := tracer.Start(ctx, "ApplyProducts")
	defer span.End()

	resp := &SyncBatchResponse{Results: []OpResult{}}
	for i := range ops {
		resp.add(applyProductOp(ctx, tenantId, &ops[i]))
	}
	return resp
}

func applyProductOp(ctx context.Context, tenantId string, op *SyncProductOp) OpResult {
	db := config.GetDB()

	status, err := initialStatus(op.Status, models.LifecycleStatusConfirmed)
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	if err := utils.ValidateStruct(op); err != nil {
		return failedResult(op.GlobalId, &ValidationError{Reason: err.Error()})
	}
	if (op.Price != nil && op.Price.IsNegative()) || (op.Cost != nil && op.Cost.IsNegative()) {
		return failedResult(op.GlobalId, &ValidationError{Field: "price", Reason: "must not be negative"})
	}

	var result OpResult
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		supplierId, err := resolveOptionalRef(ctx, tx, tenantId, models.SyncEntitySupplier, op.SupplierGlobalId)
		if err != nil {
			return err
		}

		row := models.Product{
			TenantId:          tenantId,
			GlobalId:          gid(op.GlobalId),
			Name:              op.Name,
			Sku:               utils.DereferencePtr(op.Sku),
			Barcode:           utils.DereferencePtr(op.Barcode),
			CategoryName:      utils.DereferencePtr(op.CategoryName),
			Price:             utils.DereferencePtr(op.Price),
			Cost:              utils.DereferencePtr(op.Cost),
			SupplierId:        supplierId,
			SupplierGlobalId:  op.SupplierGlobalId,
			IsActive:          op.IsActive,
			Status:            status,
			ReviewedByDesktop: defaultReviewed(op.ReviewedByDesktop, op.TerminalId, op.LocalOpSeq),
			TerminalId:        op.TerminalId,
			LocalOpSeq:        op.LocalOpSeq,
			CreatedLocalUtc:   op.CreatedLocalUtc,
			DeviceEventRaw:    op.DeviceEventRaw,
			OriginTerminalId:  op.TerminalId,
		}
		createErr := tx.Create(&row).Error
		if createErr == nil {
			result = OpResult{GlobalId: op.GlobalId, ServerId: row.ID, Outcome: OutcomeCreated, Status: row.Status}
			return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityProduct, row.ID, op.GlobalId, op.TerminalId, models.SyncEventActionCreated, &row)
		}
		if !isDuplicateKeyErr(createErr) {
			return createErr
		}

		var existing models.Product
		if err := tx.Where("tenant_id = ? AND global_id = ?", tenantId, op.GlobalId).Take(&existing).Error; err != nil {
			return err
		}

		if !op.NeedsUpdate {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}

		updates := map[string]interface{}{}
		if existing.Name != op.Name {
			updates["name"] = op.Name
		}
		if op.Sku != nil && existing.Sku != *op.Sku {
			updates["sku"] = *op.Sku
		}
		if op.Barcode != nil && existing.Barcode != *op.Barcode {
			updates["barcode"] = *op.Barcode
		}
		if op.CategoryName != nil && existing.CategoryName != *op.CategoryName {
			updates["category_name"] = *op.CategoryName
		}
		if op.Price != nil && !existing.Price.Equal(*op.Price) {
			updates["price"] = *op.Price
		}
		if op.Cost != nil && !existing.Cost.Equal(*op.Cost) {
			updates["cost"] = *op.Cost
		}
		if op.SupplierGlobalId != "" && existing.SupplierGlobalId != op.SupplierGlobalId {
			updates["supplier_global_id"] = op.SupplierGlobalId
			updates["supplier_id"] = supplierId
		} else if existing.SupplierId == nil && supplierId != nil {
			// reference healed since the last upload
			updates["supplier_id"] = supplierId
		}
		if op.IsActive != nil && !boolPtrEq(existing.IsActive, op.IsActive) {
			updates["is_active"] = op.IsActive
		}
		finalStatus := applyStatusUpdate(updates, existing.Status, op.Status)
		applyReviewedUpdate(updates, existing.ReviewedByDesktop, op.ReviewedByDesktop)

		if len(updates) == 0 {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}
		stampProvenance(updates, op.TerminalId, op.LocalOpSeq)
		if err := tx.Model(&models.Product{}).
			Where("tenant_id = ? AND id = ?", tenantId, existing.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUpdated, Status: finalStatus}
		return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityProduct, existing.ID, op.GlobalId, op.TerminalId, models.SyncEventActionUpdated, updates)
	})
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	return result
}

func ApplyExpenses(ctx context.Context, tenantId string, ops []SyncExpenseOp) *SyncBatchResponse {
	ctx, span := tracer.Start(ctx, "ApplyExpenses")
	defer span.End()

	resp := &SyncBatchResponse{Results: []OpResult{}}
	for i := range ops {
		resp.add(applyExpenseOp(ctx, tenantId, &ops[i]))
	}
	return resp
}

func applyExpenseOp(ctx context.Context, tenantId string, op *SyncExpenseOp) OpResult {
	db := config.GetDB()

	status, err := initialStatus(op.Status, models.LifecycleStatusDraft)
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	if err := utils.ValidateStruct(op); err != nil {
		return failedResult(op.GlobalId, &ValidationError{Reason: err.Error()})
	}
	if op.Amount == nil || !op.Amount.IsPositive() {
		return failedResult(op.GlobalId, &ValidationError{Field: "amount", Reason: "must be positive"})
	}

	var result OpResult
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employeeId, err := resolveRequiredRef(ctx, tx, tenantId, models.SyncEntityEmployee, "employee_global_id", op.EmployeeGlobalId)
		if err != nil {
			return err
		}
		shiftId, err := resolveOptionalRef(ctx, tx, tenantId, models.SyncEntityShift, op.ShiftGlobalId)
		if err != nil {
			return err
		}

		row := models.Expense{
			TenantId:          tenantId,
			GlobalId:          gid(op.GlobalId),
			BranchId:          op.BranchId,
			EmployeeId:        employeeId,
			EmployeeGlobalId:  op.EmployeeGlobalId,
			ShiftId:           shiftId,
			ShiftGlobalId:     op.ShiftGlobalId,
			Amount:            *op.Amount,
			Category:          utils.DereferencePtr(op.Category),
			Notes:             utils.DereferencePtr(op.Notes),
			ExpenseDate:       op.ExpenseDate,
			Status:            status,
			ReviewedByDesktop: defaultReviewed(op.ReviewedByDesktop, op.TerminalId, op.LocalOpSeq),
			TerminalId:        op.TerminalId,
			LocalOpSeq:        op.LocalOpSeq,
			CreatedLocalUtc:   op.CreatedLocalUtc,
			DeviceEventRaw:    op.DeviceEventRaw,
			OriginTerminalId:  op.TerminalId,
		}
		createErr := tx.Create(&row).Error
		if createErr == nil {
			result = OpResult{GlobalId: op.GlobalId, ServerId: row.ID, Outcome: OutcomeCreated, Status: row.Status}
			return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityExpense, row.ID, op.GlobalId, op.TerminalId, models.SyncEventActionCreated, &row)
		}
		if !isDuplicateKeyErr(createErr) {
			return createErr
		}

		var existing models.Expense
		if err := tx.Where("tenant_id = ? AND global_id = ?", tenantId, op.GlobalId).Take(&existing).Error; err != nil {
			return err
		}

		if !op.NeedsUpdate {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}

		updates := map[string]interface{}{}
		if !existing.Amount.Equal(*op.Amount) {
			updates["amount"] = *op.Amount
		}
		if op.Category != nil && existing.Category != *op.Category {
			updates["category"] = *op.Category
		}
		if op.Notes != nil && existing.Notes != *op.Notes {
			updates["notes"] = *op.Notes
		}
		if op.ExpenseDate != nil && (existing.ExpenseDate == nil || !existing.ExpenseDate.Equal(*op.ExpenseDate)) {
			updates["expense_date"] = op.ExpenseDate
		}
		if op.BranchId != nil && !intPtrEq(existing.BranchId, op.BranchId) {
			updates["branch_id"] = op.BranchId
		}
		if existing.EmployeeGlobalId != op.EmployeeGlobalId {
			updates["employee_global_id"] = op.EmployeeGlobalId
			updates["employee_id"] = employeeId
		} else if existing.EmployeeId == nil && employeeId != nil {
			updates["employee_id"] = employeeId
		}
		if op.ShiftGlobalId != "" && existing.ShiftGlobalId != op.ShiftGlobalId {
			updates["shift_global_id"] = op.ShiftGlobalId
			updates["shift_id"] = shiftId
		} else if existing.ShiftId == nil && shiftId != nil {
			updates["shift_id"] = shiftId
		}
		finalStatus := applyStatusUpdate(updates, existing.Status, op.Status)
		applyReviewedUpdate(updates, existing.ReviewedByDesktop, op.ReviewedByDesktop)

		if len(updates) == 0 {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}
		stampProvenance(updates, op.TerminalId, op.LocalOpSeq)
		if err := tx.Model(&models.Expense{}).
			Where("tenant_id = ? AND id = ?", tenantId, existing.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUpdated, Status: finalStatus}
		return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityExpense, existing.ID, op.GlobalId, op.TerminalId, models.SyncEventActionUpdated, updates)
	})
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	return result
}

func ApplyRepartidorReturns(ctx context.Context, tenantId string, ops []SyncRepartidorReturnOp) *SyncBatchResponse {
	ctx, span := tracer.Start(ctx, "ApplyRepartidorReturns")
	defer span.End()

	resp := &SyncBatchResponse{Results: []OpResult{}}
	for i := range ops {
		resp.add(applyReturnOp(ctx, tenantId, &ops[i]))
	}
	return resp
}

func applyReturnOp(ctx context.Context, tenantId string, op *SyncRepartidorReturnOp) OpResult {
	db := config.GetDB()

	status, err := initialStatus(op.Status, models.LifecycleStatusDraft)
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	if err := utils.ValidateStruct(op); err != nil {
		return failedResult(op.GlobalId, &ValidationError{Reason: err.Error()})
	}
	if op.Qty == nil || !op.Qty.IsPositive() {
		return failedResult(op.GlobalId, &ValidationError{Field: "qty", Reason: "must be positive"})
	}

	var result OpResult
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		employeeId, err := resolveRequiredRef(ctx, tx, tenantId, models.SyncEntityEmployee, "employee_global_id", op.EmployeeGlobalId)
		if err != nil {
			return err
		}
		productId, err := resolveRequiredRef(ctx, tx, tenantId, models.SyncEntityProduct, "product_global_id", op.ProductGlobalId)
		if err != nil {
			return err
		}
		assignmentId, err := resolveOptionalRef(ctx, tx, tenantId, models.SyncEntityRepartidorAssignment, op.AssignmentGlobalId)
		if err != nil {
			return err
		}
		shiftId, err := resolveOptionalRef(ctx, tx, tenantId, models.SyncEntityShift, op.ShiftGlobalId)
		if err != nil {
			return err
		}

		row := models.RepartidorReturn{
			TenantId:           tenantId,
			GlobalId:           gid(op.GlobalId),
			EmployeeId:         employeeId,
			EmployeeGlobalId:   op.EmployeeGlobalId,
			ProductId:          productId,
			ProductGlobalId:    op.ProductGlobalId,
			AssignmentId:       assignmentId,
			AssignmentGlobalId: op.AssignmentGlobalId,
			ShiftId:            shiftId,
			ShiftGlobalId:      op.ShiftGlobalId,
			Qty:                *op.Qty,
			Amount:             utils.DereferencePtr(op.Amount),
			Reason:             utils.DereferencePtr(op.Reason),
			Status:             status,
			ReviewedByDesktop:  defaultReviewed(op.ReviewedByDesktop, op.TerminalId, op.LocalOpSeq),
			TerminalId:         op.TerminalId,
			LocalOpSeq:         op.LocalOpSeq,
			CreatedLocalUtc:    op.CreatedLocalUtc,
			DeviceEventRaw:     op.DeviceEventRaw,
			OriginTerminalId:   op.TerminalId,
		}
		createErr := tx.Create(&row).Error
		if createErr == nil {
			result = OpResult{GlobalId: op.GlobalId, ServerId: row.ID, Outcome: OutcomeCreated, Status: row.Status}
			return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityRepartidorReturn, row.ID, op.GlobalId, op.TerminalId, models.SyncEventActionCreated, &row)
		}
		if !isDuplicateKeyErr(createErr) {
			return createErr
		}

		var existing models.RepartidorReturn
		if err := tx.Where("tenant_id = ? AND global_id = ?", tenantId, op.GlobalId).Take(&existing).Error; err != nil {
			return err
		}

		if !op.NeedsUpdate {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}

		updates := map[string]interface{}{}
		if !existing.Qty.Equal(*op.Qty) {
			updates["qty"] = *op.Qty
		}
		if op.Amount != nil && !existing.Amount.Equal(*op.Amount) {
			updates["amount"] = *op.Amount
		}
		if op.Reason != nil && existing.Reason != *op.Reason {
			updates["reason"] = *op.Reason
		}
		if existing.EmployeeGlobalId != op.EmployeeGlobalId {
			updates["employee_global_id"] = op.EmployeeGlobalId
			updates["employee_id"] = employeeId
		} else if existing.EmployeeId == nil && employeeId != nil {
			updates["employee_id"] = employeeId
		}
		if existing.ProductGlobalId != op.ProductGlobalId {
			updates["product_global_id"] = op.ProductGlobalId
			updates["product_id"] = productId
		} else if existing.ProductId == nil && productId != nil {
			updates["product_id"] = productId
		}
		if op.AssignmentGlobalId != "" && existing.AssignmentGlobalId != op.AssignmentGlobalId {
			updates["assignment_global_id"] = op.AssignmentGlobalId
			updates["assignment_id"] = assignmentId
		} else if existing.AssignmentId == nil && assignmentId != nil {
			updates["assignment_id"] = assignmentId
		}
		if op.ShiftGlobalId != "" && existing.ShiftGlobalId != op.ShiftGlobalId {
			updates["shift_global_id"] = op.ShiftGlobalId
			updates["shift_id"] = shiftId
		} else if existing.ShiftId == nil && shiftId != nil {
			updates["shift_id"] = shiftId
		}
		finalStatus := applyStatusUpdate(updates, existing.Status, op.Status)
		applyReviewedUpdate(updates, existing.ReviewedByDesktop, op.ReviewedByDesktop)

		if len(updates) == 0 {
			result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUnchanged, Status: existing.Status}
			return nil
		}
		stampProvenance(updates, op.TerminalId, op.LocalOpSeq)
		if err := tx.Model(&models.RepartidorReturn{}).
			Where("tenant_id = ? AND id = ?", tenantId, existing.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		result = OpResult{GlobalId: op.GlobalId, ServerId: existing.ID, Outcome: OutcomeUpdated, Status: finalStatus}
		return models.PublishSyncEvent(ctx, tx, tenantId, models.SyncEntityRepartidorReturn, existing.ID, op.GlobalId, op.TerminalId, models.SyncEventActionUpdated, updates)
	})
	if err != nil {
		return failedResult(op.GlobalId, err)
	}
	return result
}

/* shared bits */

func failedResult(globalId string, err error) OpResult {
	return OpResult{GlobalId: globalId, Outcome: OutcomeFailed, Error: err.Error()}
}

// applyStatusUpdate folds the lifecycle decision into the update map and
// returns the status the row ends up with.
func applyStatusUpdate(updates map[string]interface{}, current, incoming models.LifecycleStatus) models.LifecycleStatus {
	next, moved := nextStatus(current, incoming)
	if moved {
		updates["status"] = next
	}
	return next
}

func applyReviewedUpdate(updates map[string]interface{}, current, incoming *bool) {
	if incoming != nil && !boolPtrEq(current, incoming) {
		updates["reviewed_by_desktop"] = incoming
	}
}

// stampProvenance records which terminal produced the update that won.
func stampProvenance(updates map[string]interface{}, terminalId string, localOpSeq *int64) {
	if terminalId != "" {
		updates["terminal_id"] = terminalId
	}
	if localOpSeq != nil {
		updates["local_op_seq"] = localOpSeq
	}
}

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtrEq(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

package terminalsync_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/terminalsync"
	"bitbucket.org/mmdatafocus/possync_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func setupSyncEnv(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "possync_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	return context.Background()
}

func createTestTenant(t *testing.T, ctx context.Context, name string) *models.Tenant {
	t.Helper()
	tenant, err := models.CreateTenant(ctx, &models.NewTenant{
		Name:          name,
		AdminPassword: "super-secret",
	})
	if err != nil {
		t.Fatalf("CreateTenant: %v", err)
	}
	return tenant
}

func tenantBranch(t *testing.T, ctx context.Context, tenantId string) *models.Branch {
	t.Helper()
	db := config.GetDB()
	var branch models.Branch
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantId).Take(&branch).Error; err != nil {
		t.Fatalf("fetch tenant branch: %v", err)
	}
	return &branch
}

func strp(s string) *string { return &s }

func boolp(b bool) *bool { return &b }

func decp(d decimal.Decimal) *decimal.Decimal { return &d }

func TestExpenseSyncIdempotenceAndReview(t *testing.T) {
	ctx := setupSyncEnv(t)
	db := config.GetDB()

	tenant := createTestTenant(t, ctx, "Abarrotes Uno")
	tid := tenant.ID.String()

	employee, err := models.CreateEmployee(ctx, tid, &models.NewEmployee{Name: "Paco"})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	empGid, err := terminalsync.EnsureGlobalId(ctx, db, tid, models.SyncEntityEmployee, employee.ID)
	if err != nil {
		t.Fatalf("EnsureGlobalId: %v", err)
	}

	seq := int64(7)
	op := terminalsync.SyncExpenseOp{
		SyncOpMeta: terminalsync.SyncOpMeta{
			GlobalId:   "EXP-AAA-001",
			TerminalId: "TERM-1",
			LocalOpSeq: &seq,
		},
		EmployeeGlobalId: empGid,
		Amount:           decp(decimal.NewFromInt(150)),
		Category:         strp("gasolina"),
		Notes:            strp("viaje reparto"),
	}

	// first upload creates
	resp := terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{op})
	if resp.Created != 1 || resp.Failed != 0 {
		t.Fatalf("first apply: expected 1 created; got %+v", resp)
	}
	serverId := resp.Results[0].ServerId
	if resp.Results[0].Status != models.LifecycleStatusDraft {
		t.Fatalf("terminal expense must land as draft; got %s", resp.Results[0].Status)
	}

	// replaying the exact same batch is a no-op
	resp = terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{op})
	if resp.Unchanged != 1 || resp.Created != 0 || resp.Updated != 0 {
		t.Fatalf("replay: expected 1 unchanged; got %+v", resp)
	}

	// exactly one row and one outbox record despite two uploads
	var rowCount int64
	if err := db.Model(&models.Expense{}).Where("tenant_id = ?", tid).Count(&rowCount).Error; err != nil {
		t.Fatalf("count expenses: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("expected 1 expense row; got %d", rowCount)
	}
	var outboxCount int64
	if err := db.Model(&models.SyncEventRecord{}).
		Where("tenant_id = ? AND entity_type = ? AND entity_id = ?", tid, models.SyncEntityExpense, serverId).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("replay must not enqueue another event; got %d", outboxCount)
	}

	// full terminal provenance is trusted: the terminal reviewed it locally
	var expense models.Expense
	if err := db.Where("tenant_id = ? AND id = ?", tid, serverId).Take(&expense).Error; err != nil {
		t.Fatalf("fetch expense: %v", err)
	}
	if expense.ReviewedByDesktop == nil || !*expense.ReviewedByDesktop {
		t.Fatalf("offline-terminal expense must arrive reviewed")
	}
	if expense.EmployeeId == nil || *expense.EmployeeId != employee.ID {
		t.Fatalf("employee reference must resolve on apply; got %+v", expense.EmployeeId)
	}
	if expense.OriginTerminalId != "TERM-1" {
		t.Fatalf("created row must record the uploading terminal; got %q", expense.OriginTerminalId)
	}

	// a redelivered duplicate with drifted fields but no needs_update flag
	// must not clobber the stored row
	stale := op
	stale.Notes = strp("stale buffered copy")
	resp = terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{stale})
	if resp.Unchanged != 1 {
		t.Fatalf("duplicate without needs_update: expected unchanged; got %+v", resp)
	}
	if err := db.Where("tenant_id = ? AND id = ?", tid, serverId).Take(&expense).Error; err != nil {
		t.Fatalf("re-fetch expense: %v", err)
	}
	if expense.Notes != "viaje reparto" {
		t.Fatalf("duplicate must not overwrite; notes=%q", expense.Notes)
	}

	// an online-only submission has no provenance and waits for the desktop
	online := terminalsync.SyncExpenseOp{
		SyncOpMeta:       terminalsync.SyncOpMeta{GlobalId: "EXP-AAA-002"},
		EmployeeGlobalId: empGid,
		Amount:           decp(decimal.NewFromInt(60)),
	}
	resp = terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{online})
	if resp.Created != 1 {
		t.Fatalf("online submission: %+v", resp)
	}
	onlineId := resp.Results[0].ServerId

	pending, err := terminalsync.PendingReviewExpenses(ctx, tid)
	if err != nil || len(pending) != 1 || pending[0].ID != onlineId {
		t.Fatalf("only the online submission belongs in the review queue; got %d (%v)", len(pending), err)
	}

	// desktop approves: reviewed + confirmed
	approved, err := terminalsync.ApproveExpense(ctx, tid, onlineId)
	if err != nil {
		t.Fatalf("ApproveExpense: %v", err)
	}
	if approved.Status != models.LifecycleStatusConfirmed || approved.ReviewedByDesktop == nil || !*approved.ReviewedByDesktop {
		t.Fatalf("approve must confirm and mark reviewed; got %+v", approved)
	}

	// a declared revision updates fields but cannot regress the status
	revision := online
	revision.NeedsUpdate = true
	revision.Status = models.LifecycleStatusDraft
	revision.Notes = strp("comida repartidores")
	resp = terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{revision})
	if resp.Updated != 1 {
		t.Fatalf("revision: expected 1 updated; got %+v", resp)
	}
	if resp.Results[0].Status != models.LifecycleStatusConfirmed {
		t.Fatalf("draft revision must not un-confirm; got %s", resp.Results[0].Status)
	}

	// a revision that omits a field retains the stored value
	partial := online
	partial.NeedsUpdate = true
	partial.Notes = nil
	partial.Category = strp("alimentos")
	resp = terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{partial})
	if resp.Failed != 0 {
		t.Fatalf("partial revision: %+v", resp)
	}
	var onlineRow models.Expense
	if err := db.Where("tenant_id = ? AND id = ?", tid, onlineId).Take(&onlineRow).Error; err != nil {
		t.Fatalf("fetch online expense: %v", err)
	}
	if onlineRow.Notes != "comida repartidores" {
		t.Fatalf("omitted field must retain its value; notes=%q", onlineRow.Notes)
	}
	if onlineRow.Category != "alimentos" || onlineRow.Status != models.LifecycleStatusConfirmed {
		t.Fatalf("carried fields must update; got category=%q status=%s", onlineRow.Category, onlineRow.Status)
	}

	// drain the outbox with an injected publisher; every record ends SENT
	published := 0
	dispatcher := workflow.NewOutboxDispatcher(db, logrus.New(), func(ctx context.Context, rec *models.SyncEventRecord) (string, error) {
		published++
		return fmt.Sprintf("msg-%d", published), nil
	})
	dispatcher.DispatchOnce(ctx)
	var pendingOutbox int64
	if err := db.Model(&models.SyncEventRecord{}).
		Where("tenant_id = ? AND publish_status <> ?", tid, models.OutboxPublishStatusSent).
		Count(&pendingOutbox).Error; err != nil {
		t.Fatalf("count undrained outbox: %v", err)
	}
	if pendingOutbox != 0 || published == 0 {
		t.Fatalf("dispatcher must drain the outbox; pending=%d published=%d", pendingOutbox, published)
	}
}

func TestTenantIsolationAndPullPaging(t *testing.T) {
	ctx := setupSyncEnv(t)
	db := config.GetDB()

	tenantA := createTestTenant(t, ctx, "Tienda A")
	tenantB := createTestTenant(t, ctx, "Tienda B")
	tidA := tenantA.ID.String()
	tidB := tenantB.ID.String()

	// the same global id in two tenants must produce two independent rows
	op := terminalsync.SyncCustomerOp{
		SyncOpMeta: terminalsync.SyncOpMeta{GlobalId: "CUST-SHARED-1"},
		Name:       "Maria Lopez",
	}
	if resp := terminalsync.ApplyCustomers(ctx, tidA, []terminalsync.SyncCustomerOp{op}); resp.Created != 1 {
		t.Fatalf("tenant A create: %+v", resp)
	}
	if resp := terminalsync.ApplyCustomers(ctx, tidB, []terminalsync.SyncCustomerOp{op}); resp.Created != 1 {
		t.Fatalf("tenant B create: %+v", resp)
	}
	var total int64
	if err := db.Model(&models.Customer{}).Where("global_id = ?", "CUST-SHARED-1").Count(&total).Error; err != nil {
		t.Fatalf("count shared global id rows: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected one row per tenant; got %d", total)
	}

	// a malformed phone is rejected before anything is written
	bad := terminalsync.SyncCustomerOp{
		SyncOpMeta: terminalsync.SyncOpMeta{GlobalId: "CUST-BAD-PHONE"},
		Name:       "Telefono Roto",
		Phone:      strp("not-a-phone"),
	}
	if resp := terminalsync.ApplyCustomers(ctx, tidA, []terminalsync.SyncCustomerOp{bad}); resp.Failed != 1 {
		t.Fatalf("invalid phone must fail the op; got %+v", resp)
	}
	var badCount int64
	if err := db.Model(&models.Customer{}).Where("global_id = ?", "CUST-BAD-PHONE").Count(&badCount).Error; err != nil {
		t.Fatalf("count rejected customer: %v", err)
	}
	if badCount != 0 {
		t.Fatalf("rejected op must not persist a row")
	}

	// two more customers for tenant A, spaced so updated_at orders them
	for i := 2; i <= 3; i++ {
		time.Sleep(50 * time.Millisecond)
		op := terminalsync.SyncCustomerOp{
			SyncOpMeta: terminalsync.SyncOpMeta{GlobalId: fmt.Sprintf("CUST-A-%d", i)},
			Name:       fmt.Sprintf("Cliente %d", i),
		}
		if resp := terminalsync.ApplyCustomers(ctx, tidA, []terminalsync.SyncCustomerOp{op}); resp.Created != 1 {
			t.Fatalf("create customer %d: %+v", i, resp)
		}
	}

	// page 1
	page1, err := terminalsync.PullCustomers(ctx, tidA, nil, time.Time{}, 2)
	if err != nil {
		t.Fatalf("PullCustomers(page1): %v", err)
	}
	if len(page1.Items) != 2 || !page1.HasMore {
		t.Fatalf("page1: expected 2 items + has_more; got %d items has_more=%v", len(page1.Items), page1.HasMore)
	}

	// page 2 from the returned watermark; no overlap, no tenant B rows
	page2, err := terminalsync.PullCustomers(ctx, tidA, nil, page1.LastSync, 2)
	if err != nil {
		t.Fatalf("PullCustomers(page2): %v", err)
	}
	if page2.HasMore {
		t.Fatalf("page2 must be the last page")
	}
	seen := map[int]bool{}
	for _, c := range page1.Items {
		seen[c.ID] = true
	}
	for _, c := range page2.Items {
		if seen[c.ID] {
			t.Fatalf("row %d appeared on both pages", c.ID)
		}
		seen[c.ID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("paging must cover all 3 tenant A rows; got %d", len(seen))
	}
	for _, c := range append(page1.Items, page2.Items...) {
		if c.TenantId != tidA {
			t.Fatalf("pull leaked a row from tenant %s", c.TenantId)
		}
	}

	// a branch-scoped pull returns only that branch's rows
	branchA := tenantBranch(t, ctx, tidA)
	scoped := terminalsync.SyncCustomerOp{
		SyncOpMeta: terminalsync.SyncOpMeta{GlobalId: "CUST-A-BR"},
		BranchId:   &branchA.ID,
		Name:       "Cliente Sucursal",
	}
	if resp := terminalsync.ApplyCustomers(ctx, tidA, []terminalsync.SyncCustomerOp{scoped}); resp.Created != 1 {
		t.Fatalf("create branch-scoped customer: %+v", resp)
	}
	byBranch, err := terminalsync.PullCustomers(ctx, tidA, &branchA.ID, time.Time{}, 0)
	if err != nil {
		t.Fatalf("PullCustomers(branch): %v", err)
	}
	if len(byBranch.Items) != 1 || byBranch.Items[0].GlobalId == nil || *byBranch.Items[0].GlobalId != "CUST-A-BR" {
		t.Fatalf("branch filter must return only the scoped row; got %d items", len(byBranch.Items))
	}

	// rows sharing the boundary timestamp all travel in one page, so the
	// strictly-after watermark never strands a tied row
	tie := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.Model(&models.Customer{}).Where("tenant_id = ?", tidA).
		UpdateColumn("updated_at", tie).Error; err != nil {
		t.Fatalf("force tied updated_at: %v", err)
	}
	tied, err := terminalsync.PullCustomers(ctx, tidA, nil, time.Time{}, 2)
	if err != nil {
		t.Fatalf("PullCustomers(tied): %v", err)
	}
	if len(tied.Items) != 4 {
		t.Fatalf("tied page must carry every row at the boundary timestamp; got %d", len(tied.Items))
	}
	after, err := terminalsync.PullCustomers(ctx, tidA, nil, tied.LastSync, 2)
	if err != nil {
		t.Fatalf("PullCustomers(after tie): %v", err)
	}
	if len(after.Items) != 0 || after.HasMore {
		t.Fatalf("nothing may remain past the tied page; got %d items has_more=%v", len(after.Items), after.HasMore)
	}
}

func TestReferenceHealingAndOrphanSweep(t *testing.T) {
	ctx := setupSyncEnv(t)
	db := config.GetDB()

	tenant := createTestTenant(t, ctx, "Tienda Heal")
	tid := tenant.ID.String()
	branch := tenantBranch(t, ctx, tid)

	employee, err := models.CreateEmployee(ctx, tid, &models.NewEmployee{Name: "Luz"})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	empGid, err := terminalsync.EnsureGlobalId(ctx, db, tid, models.SyncEntityEmployee, employee.ID)
	if err != nil {
		t.Fatalf("EnsureGlobalId: %v", err)
	}

	// the expense arrives before its shift exists server-side
	op := terminalsync.SyncExpenseOp{
		SyncOpMeta:       terminalsync.SyncOpMeta{GlobalId: "EXP-HEAL-1", TerminalId: "TERM-2"},
		EmployeeGlobalId: empGid,
		ShiftGlobalId:    "SHIFT-LATE-1",
		Amount:           decp(decimal.NewFromInt(80)),
	}
	resp := terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{op})
	if resp.Created != 1 {
		t.Fatalf("apply expense: %+v", resp)
	}
	expenseId := resp.Results[0].ServerId

	var expense models.Expense
	if err := db.Where("tenant_id = ? AND id = ?", tid, expenseId).Take(&expense).Error; err != nil {
		t.Fatalf("fetch expense: %v", err)
	}
	if expense.ShiftId != nil {
		t.Fatalf("unresolvable shift must stay NULL until it arrives")
	}
	if expense.ShiftGlobalId != "SHIFT-LATE-1" {
		t.Fatalf("shift global id must be retained for healing; got %q", expense.ShiftGlobalId)
	}

	// the shift shows up later, carrying the terminal's global id
	shift, err := models.CreateShift(ctx, tid, &models.NewShift{BranchId: branch.ID, EmployeeId: &employee.ID})
	if err != nil {
		t.Fatalf("CreateShift: %v", err)
	}
	if err := db.Table("shifts").Where("tenant_id = ? AND id = ?", tid, shift.ID).
		Update("global_id", "SHIFT-LATE-1").Error; err != nil {
		t.Fatalf("assign shift global id: %v", err)
	}

	healed, err := terminalsync.HealSoftReferences(ctx, tid)
	if err != nil {
		t.Fatalf("HealSoftReferences: %v", err)
	}
	if healed < 1 {
		t.Fatalf("expected at least 1 healed reference; got %d", healed)
	}
	if err := db.Where("tenant_id = ? AND id = ?", tid, expenseId).Take(&expense).Error; err != nil {
		t.Fatalf("re-fetch expense: %v", err)
	}
	if expense.ShiftId == nil || *expense.ShiftId != shift.ID {
		t.Fatalf("healing must resolve the shift reference; got %+v", expense.ShiftId)
	}

	// a settled expense on the same shift; the sweep must not touch it
	settled := terminalsync.SyncExpenseOp{
		SyncOpMeta: terminalsync.SyncOpMeta{
			GlobalId:          "EXP-SETTLED-1",
			Status:            models.LifecycleStatusConfirmed,
			ReviewedByDesktop: boolp(true),
		},
		EmployeeGlobalId: empGid,
		ShiftGlobalId:    "SHIFT-LATE-1",
		Amount:           decp(decimal.NewFromInt(25)),
	}
	if resp := terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{settled}); resp.Created != 1 {
		t.Fatalf("apply settled expense: %+v", resp)
	}

	// a third expense references a shift that will never arrive
	ghost := terminalsync.SyncExpenseOp{
		SyncOpMeta:       terminalsync.SyncOpMeta{GlobalId: "EXP-GHOST-1", TerminalId: "TERM-2"},
		EmployeeGlobalId: empGid,
		ShiftGlobalId:    "SHIFT-GHOST-1",
		Amount:           decp(decimal.NewFromInt(40)),
	}
	if resp := terminalsync.ApplyExpenses(ctx, tid, []terminalsync.SyncExpenseOp{ghost}); resp.Created != 1 {
		t.Fatalf("apply ghost expense: %+v", resp)
	}

	// a global id with no server-side shift is ignored, not swept
	affected, err := terminalsync.RejectOrphanedExpenses(ctx, tid, &terminalsync.RejectOrphanedInput{
		ShiftGlobalIds: []string{"SHIFT-GHOST-1"},
		Reason:         "shift abandoned",
	})
	if err != nil || affected != 0 {
		t.Fatalf("sweep of a nonexistent shift: expected 0 affected; got %d (%v)", affected, err)
	}

	// sweeping the real shift catches its unreviewed draft, by resolved id
	affected, err = terminalsync.RejectOrphanedExpenses(ctx, tid, &terminalsync.RejectOrphanedInput{
		ShiftGlobalIds: []string{"SHIFT-LATE-1"},
		Reason:         "shift abandoned",
	})
	if err != nil || affected != 1 {
		t.Fatalf("orphan sweep: expected 1 affected; got %d (%v)", affected, err)
	}

	// re-running the sweep with the same ids changes nothing
	affected, err = terminalsync.RejectOrphanedExpenses(ctx, tid, &terminalsync.RejectOrphanedInput{
		ShiftGlobalIds: []string{"SHIFT-LATE-1"},
		Reason:         "shift abandoned",
	})
	if err != nil || affected != 0 {
		t.Fatalf("orphan sweep replay: expected 0 affected; got %d (%v)", affected, err)
	}

	if err := db.Where("tenant_id = ? AND id = ?", tid, expenseId).Take(&expense).Error; err != nil {
		t.Fatalf("re-fetch swept expense: %v", err)
	}
	if expense.Status != models.LifecycleStatusDeleted || expense.RejectReason != "shift abandoned" {
		t.Fatalf("swept draft must end deleted with a reason; got %+v", expense)
	}
	if expense.ReviewedByDesktop == nil || !*expense.ReviewedByDesktop {
		t.Fatalf("swept draft must leave the review queue")
	}

	// the settled expense on the same shift survives
	var kept models.Expense
	if err := db.Where("tenant_id = ? AND global_id = ?", tid, "EXP-SETTLED-1").Take(&kept).Error; err != nil {
		t.Fatalf("fetch settled expense: %v", err)
	}
	if kept.Status != models.LifecycleStatusConfirmed {
		t.Fatalf("sweep must not touch confirmed reviewed expenses; got %s", kept.Status)
	}
	// the ghost-shift expense survives too; its shift never existed
	var ghostRow models.Expense
	if err := db.Where("tenant_id = ? AND global_id = ?", tid, "EXP-GHOST-1").Take(&ghostRow).Error; err != nil {
		t.Fatalf("fetch ghost expense: %v", err)
	}
	if ghostRow.Status == models.LifecycleStatusDeleted {
		t.Fatalf("sweep must not touch expenses of unknown shifts")
	}
}

func TestPrimaryElectionAndGlobalIdMinting(t *testing.T) {
	ctx := setupSyncEnv(t)
	db := config.GetDB()

	tenant := createTestTenant(t, ctx, "Tienda Primaria")
	tid := tenant.ID.String()
	branch := tenantBranch(t, ctx, tid)

	// an unclaimed branch is granted without any credential
	first, err := terminalsync.ClaimPrimary(ctx, tid, &terminalsync.ClaimPrimaryInput{
		BranchId:   branch.ID,
		DeviceId:   "DESK-1",
		DeviceName: "Caja principal",
	})
	if err != nil {
		t.Fatalf("claim DESK-1: %v", err)
	}
	if !first.Claimed || first.ReplacedExisting {
		t.Fatalf("first claim must be a plain grant; got %+v", first)
	}
	if first.Device == nil || first.Device.IsPrimary == nil || !*first.Device.IsPrimary {
		t.Fatalf("claimant must come back primary")
	}

	// the current primary refreshing itself needs no credential either
	refresh, err := terminalsync.ClaimPrimary(ctx, tid, &terminalsync.ClaimPrimaryInput{
		BranchId: branch.ID,
		DeviceId: "DESK-1",
	})
	if err != nil {
		t.Fatalf("re-claim DESK-1: %v", err)
	}
	if !refresh.Claimed || refresh.ReplacedExisting {
		t.Fatalf("same-device re-claim must be a refresh; got %+v", refresh)
	}

	// displacing the holder with a bad password fails and names the holder
	_, err = terminalsync.ClaimPrimary(ctx, tid, &terminalsync.ClaimPrimaryInput{
		BranchId:      branch.ID,
		DeviceId:      "DESK-2",
		AdminPassword: "wrong",
	})
	var conflict *terminalsync.PrimaryConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("takeover with bad password must conflict; got %v", err)
	}
	if conflict.Holder != "DESK-1" {
		t.Fatalf("conflict must name the holder; got %q", conflict.Holder)
	}

	// the tenant admin password authorizes the takeover
	takeover, err := terminalsync.ClaimPrimary(ctx, tid, &terminalsync.ClaimPrimaryInput{
		BranchId:      branch.ID,
		DeviceId:      "DESK-2",
		AdminPassword: "super-secret",
	})
	if err != nil {
		t.Fatalf("claim DESK-2: %v", err)
	}
	if !takeover.Claimed || !takeover.ReplacedExisting {
		t.Fatalf("takeover must report the displaced holder; got %+v", takeover)
	}

	var primaries []models.BranchDevice
	if err := db.Where("tenant_id = ? AND branch_id = ? AND is_primary = ?", tid, branch.ID, true).
		Find(&primaries).Error; err != nil {
		t.Fatalf("fetch primaries: %v", err)
	}
	if len(primaries) != 1 || primaries[0].DeviceId != "DESK-2" {
		t.Fatalf("exactly one primary (the latest claimant) expected; got %+v", primaries)
	}

	// re-claim by the new primary keeps the invariant
	if _, err := terminalsync.ClaimPrimary(ctx, tid, &terminalsync.ClaimPrimaryInput{
		BranchId: branch.ID,
		DeviceId: "DESK-2",
	}); err != nil {
		t.Fatalf("re-claim DESK-2: %v", err)
	}
	var count int64
	if err := db.Model(&models.BranchDevice{}).
		Where("tenant_id = ? AND branch_id = ? AND is_primary = ?", tid, branch.ID, true).
		Count(&count).Error; err != nil {
		t.Fatalf("count primaries: %v", err)
	}
	if count != 1 {
		t.Fatalf("re-claim broke the single-primary invariant: %d", count)
	}

	// concurrent minting for one legacy row converges on one global id
	employee, err := models.CreateEmployee(ctx, tid, &models.NewEmployee{Name: "Chucho"})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	const minters = 6
	results := make([]string, minters)
	errs := make([]error, minters)
	var wg sync.WaitGroup
	for i := 0; i < minters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = terminalsync.EnsureGlobalId(ctx, db, tid, models.SyncEntityEmployee, employee.ID)
		}(i)
	}
	wg.Wait()
	for i := 0; i < minters; i++ {
		if errs[i] != nil {
			t.Fatalf("minter %d: %v", i, errs[i])
		}
		if results[i] == "" || results[i] != results[0] {
			t.Fatalf("all minters must observe one identity; got %q vs %q", results[i], results[0])
		}
	}

	// server-side minting stamps the row's provenance
	var origins []string
	if err := db.Table("employees").
		Where("tenant_id = ? AND id = ?", tid, employee.ID).
		Pluck("origin_terminal_id", &origins).Error; err != nil {
		t.Fatalf("fetch minted origin: %v", err)
	}
	if len(origins) != 1 || origins[0] != "server" {
		t.Fatalf("server-minted identity must carry server provenance; got %v", origins)
	}
}

/* docker helpers */

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("possync-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("possync-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=possync_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}

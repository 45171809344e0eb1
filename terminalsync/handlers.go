package terminalsync

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/possync_backend/config"
	"bitbucket.org/mmdatafocus/possync_backend/models"
	"bitbucket.org/mmdatafocus/possync_backend/utils"
	"github.com/gin-gonic/gin"
)

const moduleName = "terminalsync"

// resolveTenantID pulls the tenant from the authenticated session. Sync
// routes never accept a tenant id from the payload; the session is the only
// source of truth for scoping.
func resolveTenantID(c *gin.Context) (string, bool) {
	tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context())
	if !ok || tenantId == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no tenant in session"})
		return "", false
	}
	return tenantId, true
}

// fillTerminalId defaults each op's terminal id from the X-Terminal-Id
// header when the op itself does not carry one.
func fillTerminalId[T any](c *gin.Context, ops []T, get func(*T) *SyncOpMeta) {
	terminalId, ok := utils.GetTerminalIdFromContext(c.Request.Context())
	if !ok || terminalId == "" {
		return
	}
	for i := range ops {
		meta := get(&ops[i])
		if meta.TerminalId == "" {
			meta.TerminalId = terminalId
		}
	}
}

type syncCustomersRequest struct {
	Ops []SyncCustomerOp `json:"ops" binding:"required"`
}

func SyncCustomersHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	var req syncCustomersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fillTerminalId(c, req.Ops, func(op *SyncCustomerOp) *SyncOpMeta { return &op.SyncOpMeta })
	c.JSON(http.StatusOK, ApplyCustomers(c.Request.Context(), tenantId, req.Ops))
}

type syncProductsRequest struct {
	Ops []SyncProductOp `json:"ops" binding:"required"`
}

func SyncProductsHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	var req syncProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fillTerminalId(c, req.Ops, func(op *SyncProductOp) *SyncOpMeta { return &op.SyncOpMeta })
	c.JSON(http.StatusOK, ApplyProducts(c.Request.Context(), tenantId, req.Ops))
}

type syncExpensesRequest struct {
	Ops []SyncExpenseOp `json:"ops" binding:"required"`
}

func SyncExpensesHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	var req syncExpensesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fillTerminalId(c, req.Ops, func(op *SyncExpenseOp) *SyncOpMeta { return &op.SyncOpMeta })
	c.JSON(http.StatusOK, ApplyExpenses(c.Request.Context(), tenantId, req.Ops))
}

type syncReturnsRequest struct {
	Ops []SyncRepartidorReturnOp `json:"ops" binding:"required"`
}

func SyncRepartidorReturnsHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	var req syncReturnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fillTerminalId(c, req.Ops, func(op *SyncRepartidorReturnOp) *SyncOpMeta { return &op.SyncOpMeta })
	c.JSON(http.StatusOK, ApplyRepartidorReturns(c.Request.Context(), tenantId, req.Ops))
}

/* pull */

func parsePullParams(c *gin.Context) (time.Time, int, bool) {
	since := time.Time{}
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return time.Time{}, 0, false
		}
		since = parsed
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return time.Time{}, 0, false
		}
		limit = parsed
	}
	return since, limit, true
}

// parseBranchId reads the optional branch filter; both the snake_case and
// camelCase spellings are accepted.
func parseBranchId(c *gin.Context) (*int, bool) {
	raw := c.Query("branch_id")
	if raw == "" {
		raw = c.Query("branchId")
	}
	if raw == "" {
		return nil, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "branch_id must be a positive integer"})
		return nil, false
	}
	return &parsed, true
}

func PullCustomersHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	since, limit, ok := parsePullParams(c)
	if !ok {
		return
	}
	branchId, ok := parseBranchId(c)
	if !ok {
		return
	}
	resp, err := PullCustomers(c.Request.Context(), tenantId, branchId, since, limit)
	if err != nil {
		abortWithEngineError(c, "PullCustomersHandler", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func PullProductsHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	since, limit, ok := parsePullParams(c)
	if !ok {
		return
	}
	resp, err := PullProducts(c.Request.Context(), tenantId, since, limit)
	if err != nil {
		abortWithEngineError(c, "PullProductsHandler", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func PullExpensesHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	since, limit, ok := parsePullParams(c)
	if !ok {
		return
	}
	branchId, ok := parseBranchId(c)
	if !ok {
		return
	}
	resp, err := PullExpenses(c.Request.Context(), tenantId, branchId, since, limit)
	if err != nil {
		abortWithEngineError(c, "PullExpensesHandler", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func PullRepartidorReturnsHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	since, limit, ok := parsePullParams(c)
	if !ok {
		return
	}
	resp, err := PullRepartidorReturns(c.Request.Context(), tenantId, since, limit)
	if err != nil {
		abortWithEngineError(c, "PullRepartidorReturnsHandler", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

/* desktop review */

func PendingReviewExpensesHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	items, err := PendingReviewExpenses(c.Request.Context(), tenantId)
	if err != nil {
		abortWithEngineError(c, "PendingReviewExpensesHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func ApproveExpenseHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expense id"})
		return
	}
	expense, err := ApproveExpense(c.Request.Context(), tenantId, id)
	if err != nil {
		abortWithEngineError(c, "ApproveExpenseHandler", err)
		return
	}
	c.JSON(http.StatusOK, expense)
}

/* device election */

func ClaimPrimaryHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	var input ClaimPrimaryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := ClaimPrimary(c.Request.Context(), tenantId, &input)
	if err != nil {
		abortWithEngineError(c, "ClaimPrimaryHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

/* reconciliation */

func RejectOrphanedExpensesHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	var input RejectOrphanedInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	affected, err := RejectOrphanedExpenses(c.Request.Context(), tenantId, &input)
	if err != nil {
		abortWithEngineError(c, "RejectOrphanedExpensesHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": affected})
}

func HealReferencesHandler(c *gin.Context) {
	tenantId, ok := resolveTenantID(c)
	if !ok {
		return
	}
	healed, err := HealSoftReferences(c.Request.Context(), tenantId)
	if err != nil {
		abortWithEngineError(c, "HealReferencesHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"healed": healed})
}

/* auth */

func LoginHandler(c *gin.Context) {
	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := models.Login(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func abortWithEngineError(c *gin.Context, funcName string, err error) {
	status := HTTPStatusForError(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), moduleName, funcName, c.FullPath(), nil, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/timesheet-approval/internal/application/service"
	"github.com/garyjia/timesheet-approval/internal/domain/access"
	"github.com/garyjia/timesheet-approval/internal/domain/entity"
	"github.com/garyjia/timesheet-approval/internal/domain/errs"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	health   HealthFunc
	logger   Logger
	now      func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, health HealthFunc, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		health:   health,
		logger:   logger,
		now:      time.Now,
	}
}

// EntryRequest is the body of POST /entries and PUT /entries/:id
type EntryRequest struct {
	AccountID string  `json:"account_id"`
	ProjectID string  `json:"project_id" binding:"required"`
	TaskID    *string `json:"task_id"`
	WorkDate  string  `json:"work_date" binding:"required"`
	Hours     float64 `json:"hours" binding:"required,gt=0,lte=24"`
	Billable  bool    `json:"billable"`
	Note      string  `json:"note" binding:"max=2000"`
}

// CommentRequest is the body of approve and reject
type CommentRequest struct {
	Comment string `json:"comment" binding:"required"`
}

// MemberRequest is the body of PUT /teams/:teamId/members/:accountId
type MemberRequest struct {
	Roles []string `json:"roles" binding:"required,min=1"`
}

// ListQuery carries the optional status and week filters
type ListQuery struct {
	Status string `form:"status"`
	Week   string `form:"week"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Details   interface{} `json:"details,omitempty"`
}

// MeResponse describes the authenticated requester
type MeResponse struct {
	AccountID       string         `json:"account_id"`
	OrganizationID  string         `json:"organization_id"`
	Name            string         `json:"name,omitempty"`
	Email           string         `json:"email,omitempty"`
	SupervisorID    *string        `json:"supervisor_id,omitempty"`
	Roles           []string       `json:"roles"`
	Access          []access.Class `json:"access"`
	StaffAccountIDs []string       `json:"staff_account_ids,omitempty"`
	ProjectIDs      []string       `json:"project_ids,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	healthy, details := h.health()
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Details:   details,
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, Response{Success: healthy, Data: resp})
}

// Me handles GET /api/v1/me
func (h *Handlers) Me(c *gin.Context) {
	ctx := c.Request.Context()
	req := requesterFrom(c)

	acc, err := h.services.Access.Resolve(ctx, req)
	if err != nil {
		h.fail(c, "me", err)
		return
	}

	resp := MeResponse{
		AccountID:       req.AccountID,
		OrganizationID:  req.OrganizationID,
		Roles:           acc.Roles.Labels(),
		Access:          acc.Classes(),
		StaffAccountIDs: acc.StaffAccountIDs,
		ProjectIDs:      acc.ProjectIDs,
	}

	profile, err := h.services.Profiles.Get(ctx, req.AccountID)
	if err != nil {
		h.fail(c, "me", errs.Upstream("get profile", err))
		return
	}
	if profile != nil {
		resp.Name = profile.Name
		resp.Email = profile.Email
		resp.SupervisorID = profile.SupervisorID
	}

	ok(c, resp)
}

// GetWeek handles GET /api/v1/timesheets/week
func (h *Handlers) GetWeek(c *gin.Context) {
	week := entity.WeekStartOf(h.now())
	if raw := c.Query("week"); raw != "" {
		parsed, err := entity.ParseWeekStart(raw)
		if err != nil {
			h.fail(c, "get week", errs.Invalid("week", "%s", err.Error()))
			return
		}
		week = parsed
	}

	view, err := h.services.Timesheets.GetWeek(c.Request.Context(), requesterFrom(c), week)
	if err != nil {
		h.fail(c, "get week", err)
		return
	}
	ok(c, view)
}

// GetTimesheet handles GET /api/v1/timesheets/:id
func (h *Handlers) GetTimesheet(c *gin.Context) {
	view, err := h.services.Timesheets.GetTimesheet(c.Request.Context(), requesterFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get timesheet", err)
		return
	}
	ok(c, view)
}

// History handles GET /api/v1/timesheets/:id/history
func (h *Handlers) History(c *gin.Context) {
	records, err := h.services.Timesheets.History(c.Request.Context(), requesterFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "timesheet history", err)
		return
	}
	ok(c, records)
}

// Submit handles POST /api/v1/timesheets/:id/submit
func (h *Handlers) Submit(c *gin.Context) {
	ts, err := h.services.Timesheets.Submit(c.Request.Context(), requesterFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "submit", err)
		return
	}
	ok(c, ts)
}

// Unsubmit handles POST /api/v1/timesheets/:id/unsubmit
func (h *Handlers) Unsubmit(c *gin.Context) {
	ts, err := h.services.Timesheets.Unsubmit(c.Request.Context(), requesterFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "unsubmit", err)
		return
	}
	ok(c, ts)
}

// Approve handles POST /api/v1/timesheets/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	var body CommentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.failBinding(c, err)
		return
	}
	ts, err := h.services.Timesheets.Approve(c.Request.Context(), requesterFrom(c), c.Param("id"), body.Comment)
	if err != nil {
		h.fail(c, "approve", err)
		return
	}
	ok(c, ts)
}

// Reject handles POST /api/v1/timesheets/:id/reject
func (h *Handlers) Reject(c *gin.Context) {
	var body CommentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.failBinding(c, err)
		return
	}
	ts, err := h.services.Timesheets.Reject(c.Request.Context(), requesterFrom(c), c.Param("id"), body.Comment)
	if err != nil {
		h.fail(c, "reject", err)
		return
	}
	ok(c, ts)
}

// CreateEntry handles POST /api/v1/entries
func (h *Handlers) CreateEntry(c *gin.Context) {
	in, good := h.bindEntry(c)
	if !good {
		return
	}
	e, err := h.services.Timesheets.SaveEntry(c.Request.Context(), requesterFrom(c), in)
	if err != nil {
		h.fail(c, "save entry", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: e})
}

// UpdateEntry handles PUT /api/v1/entries/:id
func (h *Handlers) UpdateEntry(c *gin.Context) {
	in, good := h.bindEntry(c)
	if !good {
		return
	}
	e, err := h.services.Timesheets.UpdateEntry(c.Request.Context(), requesterFrom(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, "update entry", err)
		return
	}
	ok(c, e)
}

// DeleteEntry handles DELETE /api/v1/entries/:id
func (h *Handlers) DeleteEntry(c *gin.Context) {
	if err := h.services.Timesheets.DeleteEntry(c.Request.Context(), requesterFrom(c), c.Param("id")); err != nil {
		h.fail(c, "delete entry", err)
		return
	}
	ok(c, gin.H{"id": c.Param("id")})
}

// ListApprovals handles GET /api/v1/approvals
func (h *Handlers) ListApprovals(c *gin.Context) {
	f, good := h.bindFilter(c)
	if !good {
		return
	}
	items, err := h.services.Approvals.ListForApproval(c.Request.Context(), requesterFrom(c), f)
	if err != nil {
		h.fail(c, "list approvals", err)
		return
	}
	ok(c, items)
}

// SummarizeApprovals handles GET /api/v1/approvals/summary
func (h *Handlers) SummarizeApprovals(c *gin.Context) {
	f, good := h.bindFilter(c)
	if !good {
		return
	}
	sum, err := h.services.Approvals.SummarizeApprovals(c.Request.Context(), requesterFrom(c), f)
	if err != nil {
		h.fail(c, "summarize approvals", err)
		return
	}
	ok(c, sum)
}

// ListStaffTimesheets handles GET /api/v1/staff/:accountId/timesheets
func (h *Handlers) ListStaffTimesheets(c *gin.Context) {
	f, good := h.bindFilter(c)
	if !good {
		return
	}
	items, err := h.services.Approvals.ListStaffTimesheets(c.Request.Context(), requesterFrom(c), c.Param("accountId"), f)
	if err != nil {
		h.fail(c, "list staff timesheets", err)
		return
	}
	ok(c, items)
}

// ExportApproved handles GET /api/v1/exports/approved.xlsx
func (h *Handlers) ExportApproved(c *gin.Context) {
	raw := c.Query("week")
	if raw == "" {
		h.fail(c, "export", errs.Invalid("week", "week is required"))
		return
	}
	week, err := entity.ParseWeekStart(raw)
	if err != nil {
		h.fail(c, "export", errs.Invalid("week", "%s", err.Error()))
		return
	}

	out, err := h.services.Exports.ExportApproved(c.Request.Context(), requesterFrom(c), week)
	if err != nil {
		h.fail(c, "export", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, out.Content)
}

// PutMember handles PUT /api/v1/teams/:teamId/members/:accountId
func (h *Handlers) PutMember(c *gin.Context) {
	var body MemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.failBinding(c, err)
		return
	}
	m, err := h.services.Membership.AddMember(c.Request.Context(), requesterFrom(c), c.Param("teamId"), c.Param("accountId"), body.Roles)
	if err != nil {
		h.fail(c, "add member", err)
		return
	}
	ok(c, m)
}

// DeleteMember handles DELETE /api/v1/teams/:teamId/members/:accountId
func (h *Handlers) DeleteMember(c *gin.Context) {
	teamID, accountID := c.Param("teamId"), c.Param("accountId")
	if err := h.services.Membership.RemoveMember(c.Request.Context(), requesterFrom(c), teamID, accountID); err != nil {
		h.fail(c, "remove member", err)
		return
	}
	ok(c, gin.H{"team_id": teamID, "account_id": accountID})
}

func (h *Handlers) bindEntry(c *gin.Context) (service.EntryInput, bool) {
	var body EntryRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.failBinding(c, err)
		return service.EntryInput{}, false
	}
	workDate, err := entity.ParseDate(body.WorkDate)
	if err != nil {
		h.fail(c, "bind entry", errs.Invalid("work_date", "%s", err.Error()))
		return service.EntryInput{}, false
	}
	return service.EntryInput{
		AccountID: body.AccountID,
		ProjectID: body.ProjectID,
		TaskID:    body.TaskID,
		WorkDate:  workDate,
		Hours:     body.Hours,
		Billable:  body.Billable,
		Note:      body.Note,
	}, true
}

func (h *Handlers) bindFilter(c *gin.Context) (service.ApprovalFilter, bool) {
	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.failBinding(c, err)
		return service.ApprovalFilter{}, false
	}
	f := service.ApprovalFilter{Status: q.Status}
	if q.Week != "" {
		week, err := entity.ParseWeekStart(q.Week)
		if err != nil {
			h.fail(c, "bind filter", errs.Invalid("week", "%s", err.Error()))
			return service.ApprovalFilter{}, false
		}
		f.WeekStart = &week
	}
	return f, true
}

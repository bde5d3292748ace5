package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/contact-desk/internal/model"
	"github.com/jmehdipour/contact-desk/internal/service/contact"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type submitReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Source  string `json:"source"`
}

type transitionReq struct {
	Action   string `json:"action"`
	Priority string `json:"priority"`
	Note     string `json:"note"`
}

type contactHandlers struct {
	svc      *contact.Service
	log      *zap.Logger
	notifies bool
}

// submit handles POST /contact.
func (h *contactHandlers) submit(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}

	ct, err := h.svc.Submit(c.Request().Context(), contact.Submission{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Subject:   req.Subject,
		Message:   req.Message,
		Source:    req.Source,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	msg := "Thank you for contacting us! We have received your message and will get back to you soon."
	if h.notifies {
		msg += " A confirmation email will be sent to your email address."
	}
	return ok(c, http.StatusCreated, map[string]any{
		"message": msg,
		"data": map[string]any{
			"id":               ct.ID,
			"submittedAt":      ct.CreatedAt,
			"confirmationSent": h.notifies,
		},
	})
}

// list handles GET /api/contacts?page=&limit=&status=&priority=.
func (h *contactHandlers) list(c echo.Context) error {
	page := intParam(c, "page", 1)
	limit := min(intParam(c, "limit", defaultPageSize), maxPageSize)

	res, err := h.svc.List(c.Request().Context(), contact.Filter{
		Status:   c.QueryParam("status"),
		Priority: c.QueryParam("priority"),
	}, page, limit)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, map[string]any{
		"data":       viewsOf(res.Contacts),
		"pagination": res.Pagination,
	})
}

// get handles GET /api/contacts/:id; a new contact is marked as read.
func (h *contactHandlers) get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ct, err := h.svc.Get(ctx, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if ct.Status == model.StatusNew {
		if ct, err = h.svc.Transition(ctx, id, contact.ActionMarkRead, contact.Payload{}); err != nil {
			return respondError(c, h.log, err)
		}
	}
	return ok(c, http.StatusOK, map[string]any{"data": viewOf(ct)})
}

// transition handles PATCH /api/contacts/:id.
func (h *contactHandlers) transition(c echo.Context) error {
	var req transitionReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	action, known := contact.ParseAction(req.Action)
	if !known {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Validation failed",
			"errors": []contact.FieldViolation{{
				Field:  "action",
				Reason: "Action must be one of markAsRead, markAsReplied, markAsArchived, setPriority, addNote",
			}},
		})
	}

	ct, err := h.svc.Transition(c.Request().Context(), c.Param("id"), action, contact.Payload{
		Priority: req.Priority,
		Note:     req.Note,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, map[string]any{"data": viewOf(ct)})
}

// search handles GET /api/contacts/search?q=.
func (h *contactHandlers) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	rows, err := h.svc.Search(c.Request().Context(), q)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, map[string]any{"data": viewsOf(rows), "count": len(rows), "query": q})
}

// recent handles GET /api/contacts/recent?limit=.
func (h *contactHandlers) recent(c echo.Context) error {
	rows, err := h.svc.ListRecent(c.Request().Context(), intParam(c, "limit", 0))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, map[string]any{"data": viewsOf(rows), "count": len(rows)})
}

// unread handles GET /api/contacts/unread.
func (h *contactHandlers) unread(c echo.Context) error {
	rows, err := h.svc.ListUnread(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, map[string]any{"data": viewsOf(rows), "count": len(rows)})
}

// stats handles GET /api/contacts/stats.
func (h *contactHandlers) stats(c echo.Context) error {
	st, err := h.svc.Statistics(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, map[string]any{"data": st})
}

// intParam parses a query integer. Missing, malformed or zero values yield def.
func intParam(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam(name)))
	if err != nil || n == 0 {
		return def
	}
	return n
}

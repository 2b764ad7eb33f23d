package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/service"
	"github.com/Skotchmaster/church_members/internal/transport"
	"github.com/Skotchmaster/church_members/internal/util"
)

type MembersHTTP struct {
	Svc *service.MemberService
}

func (h *MembersHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_list")

	var q transport.ListMembersQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		l.Warn("list_members_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	page := util.NewPage(q.Page, q.PerPage)

	total, items, err := h.Svc.List(ctx, service.MemberQuery{
		Gender:    q.Gender,
		District:  q.District,
		Position:  q.Position,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      page,
	})
	if err != nil {
		return fail(l, "list_members_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": util.BuildMeta(page, total),
	})
}

func (h *MembersHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_search")

	items, err := h.Svc.Search(ctx, c.QueryParam("name"))
	if err != nil {
		return fail(l, "search_members_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MembersHTTP) Public(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_public")

	items, err := h.Svc.Public(ctx)
	if err != nil {
		return fail(l, "public_members_failed", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *MembersHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_get")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_member_error", "status", 400, "reason", "invalid id")
		return err
	}
	m, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_member_failed", err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MembersHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_create")

	var req transport.CreateMemberRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_member_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("create_member_error", "status", 400, "error", err)
		return err
	}

	m, err := h.Svc.Create(ctx, actorID(c), req)
	if err != nil {
		return fail(l, "create_member_failed", err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *MembersHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_update")

	id, err := parseID(c)
	if err != nil {
		l.Warn("update_member_error", "status", 400, "reason", "invalid id")
		return err
	}
	var req transport.UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_member_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("update_member_error", "status", 400, "error", err)
		return err
	}

	m, err := h.Svc.Update(ctx, actorID(c), id, req)
	if err != nil {
		return fail(l, "update_member_failed", err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *MembersHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "members_delete")

	id, err := parseID(c)
	if err != nil {
		l.Warn("delete_member_error", "status", 400, "reason", "invalid id")
		return err
	}
	if err := h.Svc.Delete(ctx, actorID(c), id); err != nil {
		return fail(l, "delete_member_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "member deleted"})
}

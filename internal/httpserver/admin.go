package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/church_members/internal/logging"
	"github.com/Skotchmaster/church_members/internal/middleware/auth"
	"github.com/Skotchmaster/church_members/internal/service"
	"github.com/Skotchmaster/church_members/internal/transport"
	"github.com/Skotchmaster/church_members/internal/util"
)

type AdminHTTP struct {
	Users *service.UserService
}

func parseID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

func pageFrom(c echo.Context) util.Page {
	return util.NewPage(
		util.ParseIntDefault(c.QueryParam("page"), util.DefaultPage),
		util.ParseIntDefault(c.QueryParam("per_page"), util.DefaultPerPage),
	)
}

func actorID(c echo.Context) uint {
	if id, ok := auth.IdentityFrom(c); ok {
		return id.UserID
	}
	return 0
}

func (h *AdminHTTP) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_list_users")

	page := pageFrom(c)
	total, users, err := h.Users.List(ctx, page)
	if err != nil {
		return fail(l, "list_users_failed", err)
	}

	out := make([]transport.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, transport.NewUserResponse(&users[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data": out,
		"meta": util.BuildMeta(page, total),
	})
}

func (h *AdminHTTP) UpdateRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_update_role")

	id, err := parseID(c)
	if err != nil {
		l.Warn("update_role_error", "status", 400, "reason", "invalid id")
		return err
	}
	var req transport.UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_role_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("update_role_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Users.UpdateRole(ctx, actorID(c), id, req.Role)
	if err != nil {
		return fail(l, "update_role_failed", err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

func (h *AdminHTTP) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin_delete_user")

	id, err := parseID(c)
	if err != nil {
		l.Warn("delete_user_error", "status", 400, "reason", "invalid id")
		return err
	}
	if err := h.Users.Delete(ctx, actorID(c), id); err != nil {
		return fail(l, "delete_user_failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/socis/member-portal/internal/core/ports"
)

// UserHandler exposes the account procedures as POST /rpc/<procedure>.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// ListUsers handles POST /rpc/listUsers.
//
// @Summary      List users
// @Description  Returns the roster without credentials. The access token is optional.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      listUsersRequest  false  "Optional search"
// @Success      200   {object}  usersResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /rpc/listUsers [post]
func (h *UserHandler) ListUsers(c echo.Context) error {
	var req listUsersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	users, err := h.users.ListUsers(c.Request().Context(), ports.ListUsersInput{
		AccessToken: accessToken(c, req.AccessToken),
		Search:      req.Search,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users})
}

// UpdateUser handles POST /rpc/updateUser.
//
// @Summary      Update a user
// @Description  Partial update. Administrators may edit anyone; members may edit their own name and image.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateUserRequest  true  "Patch"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      413   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /rpc/updateUser [post]
func (h *UserHandler) UpdateUser(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	user, err := h.users.UpdateUser(c.Request().Context(), ports.UpdateUserInput{
		AccessToken: accessToken(c, req.AccessToken),
		User:        toPatchInput(req.User),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// DeleteUser handles POST /rpc/deleteUser.
//
// @Summary      Delete a user
// @Description  Administrators only. Removes the record and then its avatar.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deleteUserRequest  true  "User to delete"
// @Success      200   {object}  deleteUserResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /rpc/deleteUser [post]
func (h *UserHandler) DeleteUser(c echo.Context) error {
	var req deleteUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	id, err := h.users.DeleteUser(c.Request().Context(), ports.DeleteUserInput{
		AccessToken: accessToken(c, req.AccessToken),
		ID:          req.ID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, deleteUserResponse{User: deletedUser{ID: id}})
}

// GetProfile handles POST /rpc/getProfile.
//
// @Summary      Current user
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      getProfileRequest  false  "Access token"
// @Success      200   {object}  userResponse
// @Failure      401   {object}  errorResponse
// @Router       /rpc/getProfile [post]
func (h *UserHandler) GetProfile(c echo.Context) error {
	var req getProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.GetProfile(c.Request().Context(), accessToken(c, req.AccessToken))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// UpdateProfileImage handles POST /rpc/updateProfileImage.
//
// @Summary      Replace own avatar
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileImageRequest  true  "Base64 image or empty to reset"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      413   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      502   {object}  errorResponse
// @Router       /rpc/updateProfileImage [post]
func (h *UserHandler) UpdateProfileImage(c echo.Context) error {
	var req updateProfileImageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.users.UpdateProfileImage(c.Request().Context(), ports.UpdateProfileImageInput{
		AccessToken: accessToken(c, req.AccessToken),
		Image:       req.Image,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"mailmaster/internal/api/middleware"
	"mailmaster/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ResourceService is the owner-scoped CRUD surface a BaseController drives.
type ResourceService[T any, In any] interface {
	List(ctx context.Context, ownerID string, q repository.ListQuery) ([]T, int64, error)
	Get(ctx context.Context, ownerID, id string) (*T, error)
	Create(ctx context.Context, ownerID string, in In) (*T, error)
	Update(ctx context.Context, ownerID, id string, in In) (*T, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// Page is the envelope of every list response.
type Page[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// BaseController provides generic CRUD operations for any owned resource
type BaseController[T any, In any] struct {
	service  ResourceService[T, In]
	resource string
	filters  map[string]string
}

// NewBaseController creates a controller. resource is the display name used
// in messages ("Newsletter"); filters maps accepted query parameters to
// columns.
func NewBaseController[T any, In any](service ResourceService[T, In], resource string, filters map[string]string) *BaseController[T, In] {
	return &BaseController[T, In]{
		service:  service,
		resource: resource,
		filters:  filters,
	}
}

// Create handles creation of new entities
func (c *BaseController[T, In]) Create(ctx echo.Context) error {
	var in In
	if err := BindAndValidate(ctx, &in); err != nil {
		return err
	}

	entity, err := c.service.Create(ctx.Request().Context(), middleware.GetUserID(ctx), in)
	if err != nil {
		return ServiceError(err, c.resource)
	}

	return ctx.JSON(http.StatusCreated, entity)
}

// Get handles retrieval of a single entity
func (c *BaseController[T, In]) Get(ctx echo.Context) error {
	id, err := c.ID(ctx, "id")
	if err != nil {
		return err
	}

	entity, err := c.service.Get(ctx.Request().Context(), middleware.GetUserID(ctx), id)
	if err != nil {
		return ServiceError(err, c.resource)
	}

	return ctx.JSON(http.StatusOK, entity)
}

// List handles retrieval of multiple entities with pagination and filtering
func (c *BaseController[T, In]) List(ctx echo.Context) error {
	q, err := c.Query(ctx)
	if err != nil {
		return err
	}

	entities, total, err := c.service.List(ctx.Request().Context(), middleware.GetUserID(ctx), q)
	if err != nil {
		return ServiceError(err, c.resource)
	}

	return ctx.JSON(http.StatusOK, NewPage(entities, total, q))
}

// Update handles updating an existing entity
func (c *BaseController[T, In]) Update(ctx echo.Context) error {
	id, err := c.ID(ctx, "id")
	if err != nil {
		return err
	}

	var in In
	if err := BindAndValidate(ctx, &in); err != nil {
		return err
	}

	entity, err := c.service.Update(ctx.Request().Context(), middleware.GetUserID(ctx), id, in)
	if err != nil {
		return ServiceError(err, c.resource)
	}

	return ctx.JSON(http.StatusOK, entity)
}

// Delete handles deletion of an entity
func (c *BaseController[T, In]) Delete(ctx echo.Context) error {
	id, err := c.ID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Delete(ctx.Request().Context(), middleware.GetUserID(ctx), id); err != nil {
		return ServiceError(err, c.resource)
	}

	return ctx.JSON(http.StatusOK, map[string]string{
		"message": c.resource + " deleted successfully",
	})
}

// RegisterRoutes registers CRUD routes for the controller. Reads and writes
// are mounted on separate groups so they can carry different middleware.
func (c *BaseController[T, In]) RegisterRoutes(read, write *echo.Group) {
	read.GET("", c.List)
	read.GET("/:id", c.Get)
	write.POST("", c.Create)
	write.PUT("/:id", c.Update)
	write.DELETE("/:id", c.Delete)
}

// ID reads a path parameter that must be a UUID. Anything else cannot name
// a row, so it is reported as not found.
func (c *BaseController[T, In]) ID(ctx echo.Context, param string) (string, error) {
	return PathID(ctx, param, c.resource)
}

// Query parses page, limit and the whitelisted filters.
func (c *BaseController[T, In]) Query(ctx echo.Context) (repository.ListQuery, error) {
	return ListQuery(ctx, c.filters)
}

func PathID(ctx echo.Context, param, resource string) (string, error) {
	id := ctx.Param(param)
	if _, err := uuid.Parse(id); err != nil {
		return "", NotFound(resource)
	}
	return id, nil
}

// ListQuery reads pagination and equality filters from the query string.
// Unknown parameters are ignored. Filters on *_id columns must be UUIDs and
// status values are matched case-insensitively.
func ListQuery(ctx echo.Context, filters map[string]string) (repository.ListQuery, error) {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	q := repository.ListQuery{
		Page:    page,
		Limit:   limit,
		Filters: make(map[string]interface{}),
	}

	for param, column := range filters {
		value := strings.TrimSpace(ctx.QueryParam(param))
		if value == "" {
			continue
		}
		switch {
		case strings.HasSuffix(column, "_id"):
			if _, err := uuid.Parse(value); err != nil {
				return q, Invalid(param, "The "+strings.ReplaceAll(param, "_", " ")+" must be a valid UUID.")
			}
		case column == "status":
			value = strings.ToUpper(value)
		}
		q.Filters[column] = value
	}

	return q.Normalize(), nil
}

func NewPage[T any](data []T, total int64, q repository.ListQuery) Page[T] {
	q = q.Normalize()
	if data == nil {
		data = []T{}
	}
	return Page[T]{Data: data, Total: total, Page: q.Page, Limit: q.Limit}
}

// BindAndValidate decodes the request body into in and runs the validator.
func BindAndValidate(ctx echo.Context, in interface{}) error {
	if err := ctx.Bind(in); err != nil {
		return NewAPIError(http.StatusBadRequest, "invalid request body")
	}
	return ctx.Validate(in)
}

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/backend/internal/auth"
	"example.com/finance-tracker/backend/internal/models"
)

type CategoryHandler struct {
	Categories CategoryStore
}

// NewCategoryHandler создает обработчик категорий доходов и расходов.
func NewCategoryHandler(categories CategoryStore) *CategoryHandler {
	return &CategoryHandler{Categories: categories}
}

type CreateCategoryRequest struct {
	Name  string              `json:"name" validate:"required,max=100"`
	Kind  models.CategoryKind `json:"kind" validate:"required,oneof=expense income"`
	Color *string             `json:"color"`
}

type UpdateCategoryRequest struct {
	Name  string  `json:"name" validate:"required,max=100"`
	Color *string `json:"color"`
}

type CategoryResponse struct {
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	Kind      models.CategoryKind `json:"kind"`
	Color     *string             `json:"color,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// List возвращает категории пользователя, опционально по типу.
func (h *CategoryHandler) List(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var kind *models.CategoryKind
	if raw := strings.TrimSpace(c.QueryParam("kind")); raw != "" {
		k := models.CategoryKind(raw)
		if k != models.CategoryKindExpense && k != models.CategoryKindIncome {
			return badRequest(c, "kind must be expense or income")
		}
		kind = &k
	}

	categories, err := h.Categories.ListByUser(c.Request().Context(), userID, kind)
	if err != nil {
		return storeError(c, err, "category not found")
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, category := range categories {
		response = append(response, toCategoryResponse(category))
	}

	return c.JSON(http.StatusOK, response)
}

// Create добавляет категорию.
func (h *CategoryHandler) Create(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return badRequest(c, "name is required")
	}

	color, err := validateHexColor(req.Color)
	if err != nil {
		return badRequest(c, err.Error())
	}

	category, err := h.Categories.Create(c.Request().Context(), userID, name, req.Kind, color)
	if err != nil {
		return storeError(c, err, "category not found")
	}

	return c.JSON(http.StatusCreated, toCategoryResponse(category))
}

// Update переименовывает категорию или меняет ее цвет.
func (h *CategoryHandler) Update(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid category id")
	}

	var req UpdateCategoryRequest
	if err = c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}
	if err = c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return badRequest(c, "name is required")
	}

	color, err := validateHexColor(req.Color)
	if err != nil {
		return badRequest(c, err.Error())
	}

	category, err := h.Categories.Update(c.Request().Context(), userID, categoryID, name, color)
	if err != nil {
		return storeError(c, err, "category not found")
	}

	return c.JSON(http.StatusOK, toCategoryResponse(category))
}

// Delete удаляет категорию, если на нее не ссылаются расходы или шаблоны.
func (h *CategoryHandler) Delete(c echo.Context) error {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	categoryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return badRequest(c, "invalid category id")
	}

	if err := h.Categories.Delete(c.Request().Context(), userID, categoryID); err != nil {
		return storeError(c, err, "category not found")
	}

	return c.NoContent(http.StatusNoContent)
}

func toCategoryResponse(category models.Category) CategoryResponse {
	return CategoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		Kind:      category.Kind,
		Color:     category.Color,
		CreatedAt: category.CreatedAt,
	}
}

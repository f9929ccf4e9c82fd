package http

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/storeflow-api/internal/application/dto"
	"github.com/jhoicas/storeflow-api/internal/domain"
)

// writeError traduce un error de dominio a status + ErrorResponse.
// Los casos concretos van antes que su familia (ErrInsufficientStock no es un conflicto genérico).
func writeError(c *fiber.Ctx, err error) error {
	status, code := classifyError(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "error interno"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		return fiber.StatusConflict, "EMAIL_EXISTS"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrInvalidTransition):
		return fiber.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrInUse):
		return fiber.StatusConflict, "IN_USE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrTransientStore), errors.Is(err, domain.ErrWriteConflict):
		return fiber.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// quantityBodyError responde a un error de BodyParser en cuerpos con cantidad: una
// cantidad no entera (2.5, "5") es ErrInvalidQuantity; el resto es INVALID_BODY.
func quantityBodyError(c *fiber.Ctx, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && (typeErr.Field == "quantity" || typeErr.Field == "opening_stock") {
		return writeError(c, fmt.Errorf("%w (%s: %s)", domain.ErrInvalidQuantity, typeErr.Field, typeErr.Value))
	}
	return badBody(c)
}

// pageParams lee limit/offset con los topes de los listados del catálogo.
func pageParams(c *fiber.Ctx) (int, int) {
	p := dto.PageRequest{
		Limit:  c.QueryInt("limit", dto.DefaultPageLimit),
		Offset: c.QueryInt("offset", 0),
	}
	p.Normalize()
	return p.Limit, p.Offset
}

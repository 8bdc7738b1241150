package serverutils

import (
	"errors"

	"ai-tutorchat-be/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserIdMiddleware resolves the calling learner from the X-User-Id header.
// Authentication proper lives in front of this service; here we only require
// a well-formed identity.
func UserIdMiddleware(ctx *fiber.Ctx) error {
	raw := ctx.Get("X-User-Id")
	if raw == "" {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "X-User-Id header is required"))
	}
	userId, err := uuid.Parse(raw)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, "X-User-Id must be a UUID"))
	}
	ctx.Locals("user_id", userId.String())
	return ctx.Next()
}

// ErrorHandler maps domain error categories onto HTTP statuses. Registered
// as the Fiber app-level error handler so controllers can just return errors.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse(400, err.Error()))
	case errors.Is(err, apperror.ErrState):
		return ctx.Status(fiber.StatusConflict).JSON(ErrorResponse(409, err.Error()))
	case errors.Is(err, apperror.ErrGateway):
		// Gateway failures carry upstream detail; never echo it to the client.
		return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse(502, "upstream service error"))
	case errors.Is(err, apperror.ErrPersistence):
		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "internal storage error"))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "internal server error"))
}

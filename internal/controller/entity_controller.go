package controller

import (
	"ai-screenwriting-be/internal/dto"
	"ai-screenwriting-be/internal/pkg/serverutils"
	"ai-screenwriting-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IEntityController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

type entityController struct {
	service service.IEntityService
}

func NewEntityController(service service.IEntityService) IEntityController {
	return &entityController{service: service}
}

func (c *entityController) RegisterRoutes(r fiber.Router) {
	r.Get("/entities", c.List)
}

func (c *entityController) List(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return fiber.ErrUnauthorized
	}

	var req dto.ListEntitiesRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.Context(), userID, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get entities", res))
}

package controller

import (
	"quickhand-be/internal/dto"
	"quickhand-be/internal/pkg/serverutils"
	"quickhand-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IActionController interface {
	RegisterRoutes(r fiber.Router)
	Execute(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type actionController struct {
	service service.IActionService
}

func NewActionController(service service.IActionService) IActionController {
	return &actionController{service: service}
}

func (c *actionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/action/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/execute", c.Execute)
	h.Get("/status/:provider", c.Status)
}

func (c *actionController) Execute(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.ExecuteActionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Execute(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success execute action", res))
}

func (c *actionController) Status(ctx *fiber.Ctx) error {
	provider := ctx.Params("provider")

	res, err := c.service.ProviderStatus(ctx.Context(), provider)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get provider status", res))
}

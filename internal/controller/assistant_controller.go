package controller

import (
	"quickhand-be/internal/dto"
	"quickhand-be/internal/pkg/serverutils"
	"quickhand-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAssistantController interface {
	RegisterRoutes(r fiber.Router)
	Plan(ctx *fiber.Ctx) error
	ClassifyIntent(ctx *fiber.Ctx) error
	Roles(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type assistantController struct {
	service service.IAssistantService
}

func NewAssistantController(service service.IAssistantService) IAssistantController {
	return &assistantController{service: service}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/plan", c.Plan)
	h.Post("/classify-intent", c.ClassifyIntent)
	h.Get("/roles", c.Roles)
	h.Get("/history", c.History)
}

func (c *assistantController) Plan(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	var req dto.PlanRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Plan(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success plan turn", res))
}

func (c *assistantController) ClassifyIntent(ctx *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.ClassifyIntent(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success classify intent", res))
}

func (c *assistantController) Roles(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get roles", c.service.Roles()))
}

func (c *assistantController) History(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserId(ctx)
	if err != nil {
		return err
	}

	limit := ctx.QueryInt("limit")
	offset := ctx.QueryInt("offset")

	res, err := c.service.History(ctx.Context(), userId, limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

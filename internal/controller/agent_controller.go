package controller

import (
	"encoding/json"
	"errors"

	"ai-screenwriting-be/internal/dto"
	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/internal/pkg/serverutils"
	"ai-screenwriting-be/internal/service"
	internalWS "ai-screenwriting-be/internal/websocket"
	"ai-screenwriting-be/pkg/ai/dispatcher"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const initialFrameKey = "initial_frame"

type IAgentController interface {
	RegisterRoutes(r fiber.Router)
}

type agentController struct {
	service service.IAgentService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewAgentController(service service.IAgentService, hub *internalWS.Hub, log logger.ILogger) IAgentController {
	return &agentController{service: service, hub: hub, logger: log}
}

// RegisterRoutes expects h to be the authenticated /agent/v1 group.
func (c *agentController) RegisterRoutes(h fiber.Router) {
	h.Get("/interviews", c.Interviews)

	h.Post("/sessions", c.Create)
	h.Get("/sessions/:id", c.Show)
	h.Delete("/sessions/:id", c.Delete)
	h.Post("/sessions/:id/mount", c.Mount)
	h.Post("/sessions/:id/launch", c.Launch)
	h.Post("/sessions/:id/send", c.Send)
	h.Put("/sessions/:id/mode", c.SetMode)
	h.Put("/sessions/:id/model", c.SetModel)
	h.Put("/sessions/:id/input", c.SetInput)
	h.Put("/sessions/:id/context/selection", c.SetSelection)
	h.Put("/sessions/:id/context/scene", c.SetScene)
	h.Put("/sessions/:id/context/auto", c.SetAutoContext)
	h.Put("/sessions/:id/context/enabled", c.SetContextEnabled)
	h.Delete("/sessions/:id/context", c.ClearContext)
	h.Post("/sessions/:id/attachments", c.AddAttachment)
	h.Delete("/sessions/:id/attachments/:name", c.RemoveAttachment)
	h.Put("/sessions/:id/menus", c.SetMenu)
	h.Post("/sessions/:id/workflow/cancel", c.CancelWorkflow)
	h.Delete("/sessions/:id/banner", c.CloseBanner)
	h.Post("/sessions/:id/insert", c.Insert)
	h.Delete("/sessions/:id/messages", c.ClearMessages)
	h.Get("/sessions/:id/history", c.History)
	h.Get("/sessions/:id/ws", c.upgrade, websocket.New(c.stream))
}

// agentError maps engine errors onto HTTP status codes.
func agentError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Session not found")
	case errors.Is(err, serverutils.ErrMissingUser):
		return fiber.ErrUnauthorized
	case errors.Is(err, dispatcher.ErrInvalidTrigger),
		errors.Is(err, workflow.ErrUnknownEntityType),
		errors.Is(err, service.ErrModelNotAllowed),
		errors.Is(err, store.ErrInvalidAction):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return err
}

// ids reads the authenticated user and the :id session parameter.
func ids(ctx *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return uuid.Nil, uuid.Nil, agentError(err)
	}
	sessionID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusNotFound, "Session not found")
	}
	return userID, sessionID, nil
}

// bind parses and validates the request body.
func bind(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func sessionResult(ctx *fiber.Ctx, message string, res *dto.SessionResponse, err error) error {
	if err != nil {
		return agentError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse(message, res))
}

func (c *agentController) Create(ctx *fiber.Ctx) error {
	userID, err := serverutils.UserID(ctx)
	if err != nil {
		return agentError(err)
	}
	var req dto.CreateSessionRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.Context(), userID, &req)
	if err != nil {
		return agentError(err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *agentController) Show(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GetSession(ctx.Context(), userID, sessionID)
	return sessionResult(ctx, "Success get session", res, err)
}

func (c *agentController) Delete(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	if err := c.service.DeleteSession(ctx.Context(), userID, sessionID); err != nil {
		return agentError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session deleted", nil))
}

func (c *agentController) Mount(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.MountRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.Mount(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Surface mounted", res, err)
}

func (c *agentController) Launch(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.LaunchRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.Launch(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Surface launched", res, err)
}

// Send answers 202 once the message is accepted; the reply arrives over the WebSocket.
// A declined message is not an error.
func (c *agentController) Send(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.SendRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.Send(ctx.Context(), userID, sessionID, &req)
	if err != nil {
		return agentError(err)
	}
	if !res.Accepted {
		return ctx.JSON(serverutils.SuccessResponse("Message not sent", res))
	}
	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Message accepted", res))
}

func (c *agentController) SetMode(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.ModeRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetMode(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Mode updated", res, err)
}

func (c *agentController) SetModel(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.ModelRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetModel(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Model updated", res, err)
}

func (c *agentController) SetInput(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.InputRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetInput(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Input updated", res, err)
}

func (c *agentController) SetSelection(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.SelectionRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetSelection(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Selection updated", res, err)
}

func (c *agentController) SetScene(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.SceneContextDTO
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetScene(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Scene updated", res, err)
}

func (c *agentController) SetAutoContext(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.AutoContextRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetAutoContext(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Context updated", res, err)
}

func (c *agentController) SetContextEnabled(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.ContextEnabledRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetContextEnabled(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Context updated", res, err)
}

func (c *agentController) ClearContext(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ClearContext(ctx.Context(), userID, sessionID)
	return sessionResult(ctx, "Context cleared", res, err)
}

func (c *agentController) AddAttachment(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.AttachmentRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.AddAttachment(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Attachment added", res, err)
}

func (c *agentController) RemoveAttachment(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.RemoveAttachment(ctx.Context(), userID, sessionID, ctx.Params("name"))
	return sessionResult(ctx, "Attachment removed", res, err)
}

func (c *agentController) SetMenu(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.MenuRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	res, err := c.service.SetMenu(ctx.Context(), userID, sessionID, &req)
	return sessionResult(ctx, "Menu updated", res, err)
}

func (c *agentController) CancelWorkflow(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.CancelWorkflow(ctx.Context(), userID, sessionID)
	return sessionResult(ctx, "Workflow cancelled", res, err)
}

func (c *agentController) CloseBanner(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.CloseBanner(ctx.Context(), userID, sessionID)
	return sessionResult(ctx, "Banner closed", res, err)
}

func (c *agentController) Insert(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	var req dto.InsertRequest
	if err := bind(ctx, &req); err != nil {
		return err
	}
	if err := c.service.Insert(ctx.Context(), userID, sessionID, &req); err != nil {
		return agentError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Text inserted", nil))
}

func (c *agentController) ClearMessages(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.ClearMessages(ctx.Context(), userID, sessionID)
	return sessionResult(ctx, "Messages cleared", res, err)
}

func (c *agentController) History(ctx *fiber.Ctx) error {
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.History(ctx.Context(), userID, sessionID, ctx.QueryInt("limit", 50), ctx.QueryInt("offset", 0))
	if err != nil {
		return agentError(err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

func (c *agentController) Interviews(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get interviews", c.service.Interviews()))
}

// upgrade checks ownership before the handshake and stages the opening snapshot.
func (c *agentController) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	userID, sessionID, err := ids(ctx)
	if err != nil {
		return err
	}
	state, err := c.service.Snapshot(ctx.Context(), userID, sessionID)
	if err != nil {
		return agentError(err)
	}
	initial, err := json.Marshal(internalWS.Frame{Type: internalWS.FrameSnapshot, SessionID: sessionID, Data: state})
	if err != nil {
		return err
	}
	ctx.Locals(initialFrameKey, initial)
	return ctx.Next()
}

func (c *agentController) stream(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(uuid.UUID)
	sessionID, _ := uuid.Parse(conn.Params("id"))
	initial, _ := conn.Locals(initialFrameKey).([]byte)

	c.logger.Info("AgentController", "WebSocket attached", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    userID,
	})
	internalWS.ServeWs(c.hub, conn, sessionID, userID, initial)
}

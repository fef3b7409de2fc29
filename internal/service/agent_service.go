package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-screenwriting-be/internal/dto"
	"ai-screenwriting-be/internal/entity"
	"ai-screenwriting-be/internal/mapper"
	"ai-screenwriting-be/internal/pkg/logger"
	"ai-screenwriting-be/internal/repository/memory"
	"ai-screenwriting-be/internal/repository/specification"
	"ai-screenwriting-be/internal/repository/unitofwork"
	"ai-screenwriting-be/internal/websocket"
	"ai-screenwriting-be/pkg/ai/dispatcher"
	"ai-screenwriting-be/pkg/ai/router"
	"ai-screenwriting-be/pkg/ai/workflow"
	"ai-screenwriting-be/pkg/metrics"
	"ai-screenwriting-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var agentTracer = otel.Tracer("ai-screenwriting-be/internal/service")

const (
	agentLogModule = "AgentService"

	TopicWorkflowCompleted  = "workflow.completed"
	TopicTranscriptAppended = "transcript.appended"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrModelNotAllowed = errors.New("model is not offered")
)

// SessionBroadcaster pushes frames to the clients watching a session.
type SessionBroadcaster interface {
	SendSession(sessionID uuid.UUID, frameType string, data interface{})
}

type IAgentService interface {
	CreateSession(ctx context.Context, userID uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error

	Mount(ctx context.Context, userID, sessionID uuid.UUID, req *dto.MountRequest) (*dto.SessionResponse, error)
	Launch(ctx context.Context, userID, sessionID uuid.UUID, req *dto.LaunchRequest) (*dto.SessionResponse, error)
	Send(ctx context.Context, userID, sessionID uuid.UUID, req *dto.SendRequest) (*dto.SendResponse, error)

	SetMode(ctx context.Context, userID, sessionID uuid.UUID, req *dto.ModeRequest) (*dto.SessionResponse, error)
	SetModel(ctx context.Context, userID, sessionID uuid.UUID, req *dto.ModelRequest) (*dto.SessionResponse, error)
	SetInput(ctx context.Context, userID, sessionID uuid.UUID, req *dto.InputRequest) (*dto.SessionResponse, error)
	SetSelection(ctx context.Context, userID, sessionID uuid.UUID, req *dto.SelectionRequest) (*dto.SessionResponse, error)
	SetScene(ctx context.Context, userID, sessionID uuid.UUID, req *dto.SceneContextDTO) (*dto.SessionResponse, error)
	SetAutoContext(ctx context.Context, userID, sessionID uuid.UUID, req *dto.AutoContextRequest) (*dto.SessionResponse, error)
	SetContextEnabled(ctx context.Context, userID, sessionID uuid.UUID, req *dto.ContextEnabledRequest) (*dto.SessionResponse, error)
	ClearContext(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	AddAttachment(ctx context.Context, userID, sessionID uuid.UUID, req *dto.AttachmentRequest) (*dto.SessionResponse, error)
	RemoveAttachment(ctx context.Context, userID, sessionID uuid.UUID, name string) (*dto.SessionResponse, error)
	SetMenu(ctx context.Context, userID, sessionID uuid.UUID, req *dto.MenuRequest) (*dto.SessionResponse, error)
	CancelWorkflow(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	CloseBanner(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	Insert(ctx context.Context, userID, sessionID uuid.UUID, req *dto.InsertRequest) error
	ClearMessages(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)

	History(ctx context.Context, userID, sessionID uuid.UUID, limit, offset int) ([]dto.MessageResponse, error)
	Interviews() []dto.InterviewResponse
	Snapshot(ctx context.Context, userID, sessionID uuid.UUID) (store.State, error)

	CompleteWorkflow(sessionID, completionID uuid.UUID) error
	Shutdown(ctx context.Context) error
}

type AgentServiceConfig struct {
	DefaultModel string
	Models       []string
}

type agentService struct {
	sessions   *memory.SessionRepository
	uowFactory unitofwork.RepositoryFactory
	router     *router.Router
	planner    *workflow.Planner
	publisher  message.Publisher
	hub        SessionBroadcaster
	logger     logger.ILogger
	metrics    metrics.Recorder
	mapper     *mapper.AgentMapper
	cfg        AgentServiceConfig

	// rehydrateMu serializes rebuilding expired sessions from the database.
	rehydrateMu sync.Mutex

	// Generations outlive the HTTP request that started them.
	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
}

func NewAgentService(
	sessions *memory.SessionRepository,
	uowFactory unitofwork.RepositoryFactory,
	r *router.Router,
	planner *workflow.Planner,
	publisher message.Publisher,
	hub SessionBroadcaster,
	log logger.ILogger,
	rec metrics.Recorder,
	cfg AgentServiceConfig,
) IAgentService {
	ctx, cancel := context.WithCancel(context.Background())
	return &agentService{
		sessions:   sessions,
		uowFactory: uowFactory,
		router:     r,
		planner:    planner,
		publisher:  publisher,
		hub:        hub,
		logger:     log,
		metrics:    rec,
		mapper:     mapper.NewAgentMapper(),
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *agentService) CreateSession(ctx context.Context, userID uuid.UUID, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	model := req.Model
	if model == "" {
		model = s.cfg.DefaultModel
	}
	if !s.modelAllowed(model) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotAllowed, model)
	}
	mode := store.ModeChat
	if req.InitialMode != "" {
		mode = store.AgentMode(req.InitialMode)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled session"
	}

	row := &entity.ChatSession{
		Id:         uuid.New(),
		UserId:     userID,
		Title:      title,
		ActiveMode: string(mode),
		Model:      model,
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).ChatSessionRepository().Create(ctx, row); err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}

	initial := store.Initial(model)
	initial.ActiveMode = mode
	sess := s.newEngine(row, initial)
	s.sessions.Save(sess)

	s.logger.Info(agentLogModule, "Session created", map[string]interface{}{
		"session_id": row.Id,
		"user_id":    userID,
		"model":      model,
		"mode":       mode,
	})
	return s.response(sess, sess.Dispatcher.Store().Snapshot()), nil
}

// newEngine wires a fresh engine to the hub, the completion topic and the transcript topic.
func (s *agentService) newEngine(row *entity.ChatSession, initial store.State) *entity.AgentSession {
	sessionID, userID := row.Id, row.UserId

	st := store.NewStore(initial)
	wf := workflow.NewEngine(s.planner, st, s.logger, s.metrics)
	d := dispatcher.New(st, s.router, wf, dispatcher.Hooks{
		OnEffect: func(e dispatcher.Effect) {
			s.hub.SendSession(sessionID, websocket.FrameEffect, e)
		},
		OnInsert: func(text string) {
			s.hub.SendSession(sessionID, websocket.FrameInsert, map[string]string{"text": text})
		},
		OnWorkflowComplete: func(c store.WorkflowCompletion) {
			s.publish(TopicWorkflowCompleted, dto.WorkflowCompletedMessage{
				SessionId:  sessionID,
				UserId:     userID,
				Completion: c,
			})
		},
	}, s.logger, s.metrics)

	unsubscribe := st.Subscribe(func(prev, next store.State, _ []store.Action) {
		s.hub.SendSession(sessionID, websocket.FrameSnapshot, next)
		if len(next.Messages) > len(prev.Messages) {
			for _, m := range next.Messages[len(prev.Messages):] {
				s.publish(TopicTranscriptAppended, dto.TranscriptAppendedMessage{SessionId: sessionID, Message: m})
			}
		}
	})

	return &entity.AgentSession{
		Id:         sessionID,
		UserId:     userID,
		Title:      row.Title,
		Dispatcher: d,
		CreatedAt:  time.Now(),
		Release:    unsubscribe,
	}
}

func (s *agentService) publish(topic string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error(agentLogModule, "Failed to encode bus message", map[string]interface{}{"topic": topic, "error": err.Error()})
		return
	}
	if err := s.publisher.Publish(topic, message.NewMessage(watermill.NewUUID(), raw)); err != nil {
		s.logger.Error(agentLogModule, "Failed to publish bus message", map[string]interface{}{"topic": topic, "error": err.Error()})
	}
}

// session returns the live engine for a session the user owns, rebuilding it
// from the database when it has expired from memory.
func (s *agentService) session(ctx context.Context, userID, sessionID uuid.UUID) (*entity.AgentSession, error) {
	if sess, ok := s.sessions.Get(sessionID); ok {
		if sess.UserId != userID {
			return nil, ErrSessionNotFound
		}
		return sess, nil
	}

	s.rehydrateMu.Lock()
	defer s.rehydrateMu.Unlock()
	if sess, ok := s.sessions.Get(sessionID); ok && sess.UserId == userID {
		return sess, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return nil, fmt.Errorf("load chat session: %w", err)
	}
	if row == nil {
		return nil, ErrSessionNotFound
	}

	rows, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionID},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	initial := store.Initial(row.Model)
	if mode := store.AgentMode(row.ActiveMode); mode.Valid() {
		initial.ActiveMode = mode
	}
	initial.Messages = make([]store.Message, 0, len(rows))
	for _, m := range rows {
		initial.Messages = append(initial.Messages, store.Message{
			ID:        m.Id,
			Role:      store.Role(m.Role),
			Content:   m.Content,
			Mode:      store.AgentMode(m.Mode),
			Timestamp: m.CreatedAt,
		})
	}

	sess := s.newEngine(row, initial)
	s.sessions.Save(sess)
	s.logger.Info(agentLogModule, "Session rehydrated", map[string]interface{}{
		"session_id": sessionID,
		"messages":   len(rows),
	})
	return sess, nil
}

func (s *agentService) response(sess *entity.AgentSession, state store.State) *dto.SessionResponse {
	return &dto.SessionResponse{
		Id:        sess.Id,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		State:     state,
	}
}

// apply runs one engine operation against an owned session.
func (s *agentService) apply(ctx context.Context, userID, sessionID uuid.UUID, op func(d *dispatcher.Dispatcher) (store.State, error)) (*dto.SessionResponse, error) {
	sess, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := op(sess.Dispatcher)
	if err != nil {
		if errors.Is(err, store.ErrInvalidAction) || errors.Is(err, store.ErrInvariant) {
			s.logger.Warn(agentLogModule, "Action rejected", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
		return nil, err
	}
	return s.response(sess, state), nil
}

func (s *agentService) dispatch(ctx context.Context, userID, sessionID uuid.UUID, actions ...store.Action) (*dto.SessionResponse, error) {
	return s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.Store().Dispatch(actions...)
	})
}

func (s *agentService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	return s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.Store().Snapshot(), nil
	})
}

func (s *agentService) Snapshot(ctx context.Context, userID, sessionID uuid.UUID) (store.State, error) {
	sess, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return store.State{}, err
	}
	return sess.Dispatcher.Store().Snapshot(), nil
}

func (s *agentService) DeleteSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrSessionNotFound
	}
	err = unitofwork.Within(ctx, uow, func(tx unitofwork.UnitOfWork) error {
		if err := tx.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionID); err != nil {
			return err
		}
		return tx.ChatSessionRepository().Delete(ctx, sessionID)
	})
	if err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	s.logger.Info(agentLogModule, "Session deleted", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *agentService) Mount(ctx context.Context, userID, sessionID uuid.UUID, req *dto.MountRequest) (*dto.SessionResponse, error) {
	opts := s.mapper.MountOptions(req)
	return s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.Mount(ctx, opts)
	})
}

func (s *agentService) Launch(ctx context.Context, userID, sessionID uuid.UUID, req *dto.LaunchRequest) (*dto.SessionResponse, error) {
	trigger := s.mapper.Trigger(req)
	return s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.Launch(ctx, *trigger)
	})
}

// Send waits only until the message is accepted or declined; the reply is
// produced in the background and observed over the session's WebSocket.
func (s *agentService) Send(ctx context.Context, userID, sessionID uuid.UUID, req *dto.SendRequest) (*dto.SendResponse, error) {
	sess, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	decided := make(chan dispatcher.SendOutcome, 1)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		genCtx, span := agentTracer.Start(s.ctx, "agent.send",
			trace.WithLinks(trace.LinkFromContext(ctx)),
			trace.WithAttributes(attribute.String("session_id", sessionID.String())),
		)
		defer span.End()

		outcome, err := sess.Dispatcher.HandleSend(genCtx, dispatcher.SendRequest{
			Text:           req.Text,
			EditorContent:  req.EditorContent,
			CursorPosition: req.CursorPosition,
			OnOutcome:      func(o dispatcher.SendOutcome) { decided <- o },
		})
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error(agentLogModule, "Send failed", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}()

	select {
	case outcome := <-decided:
		return &dto.SendResponse{Accepted: outcome == dispatcher.SendAccepted, Outcome: string(outcome)}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *agentService) SetMode(ctx context.Context, userID, sessionID uuid.UUID, req *dto.ModeRequest) (*dto.SessionResponse, error) {
	resp, err := s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.SwitchMode(store.AgentMode(req.Mode))
	})
	if err != nil {
		return nil, err
	}
	s.persistSettings(ctx, resp)
	return resp, nil
}

func (s *agentService) SetModel(ctx context.Context, userID, sessionID uuid.UUID, req *dto.ModelRequest) (*dto.SessionResponse, error) {
	if !s.modelAllowed(req.Model) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotAllowed, req.Model)
	}
	resp, err := s.dispatch(ctx, userID, sessionID, store.SetModel{Model: req.Model}, store.CloseMenus{})
	if err != nil {
		return nil, err
	}
	s.persistSettings(ctx, resp)
	return resp, nil
}

// persistSettings records the mode and model so a rehydrated session resumes with them.
func (s *agentService) persistSettings(ctx context.Context, resp *dto.SessionResponse) {
	err := s.uowFactory.NewUnitOfWork(ctx).ChatSessionRepository().
		UpdateSettings(ctx, resp.Id, string(resp.State.ActiveMode), resp.State.Model)
	if err != nil {
		s.logger.Warn(agentLogModule, "Failed to persist session settings", map[string]interface{}{
			"session_id": resp.Id,
			"error":      err.Error(),
		})
	}
}

func (s *agentService) modelAllowed(model string) bool {
	if model == "" {
		return false
	}
	if len(s.cfg.Models) == 0 {
		return true
	}
	for _, m := range s.cfg.Models {
		if m == model {
			return true
		}
	}
	return false
}

func (s *agentService) SetInput(ctx context.Context, userID, sessionID uuid.UUID, req *dto.InputRequest) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.SetInput{Text: req.Text})
}

func (s *agentService) SetSelection(ctx context.Context, userID, sessionID uuid.UUID, req *dto.SelectionRequest) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID,
		store.SetSelectionContext{Text: req.Text, Range: s.mapper.Range(req.Range)},
		store.SetWasInRewriteMode{Value: true},
	)
}

func (s *agentService) SetScene(ctx context.Context, userID, sessionID uuid.UUID, req *dto.SceneContextDTO) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.SetSceneContext{Scene: *s.mapper.Scene(req)})
}

func (s *agentService) SetAutoContext(ctx context.Context, userID, sessionID uuid.UUID, req *dto.AutoContextRequest) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.SetAutoContext{Auto: &store.AutoContext{
		Source:     req.Source,
		Heading:    req.Heading,
		Characters: req.Characters,
		Excerpt:    req.Excerpt,
	}})
}

func (s *agentService) SetContextEnabled(ctx context.Context, userID, sessionID uuid.UUID, req *dto.ContextEnabledRequest) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.SetContextEnabled{Enabled: *req.Enabled})
}

func (s *agentService) ClearContext(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.ClearContext{})
}

func (s *agentService) AddAttachment(ctx context.Context, userID, sessionID uuid.UUID, req *dto.AttachmentRequest) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID,
		store.AddAttachment{Attachment: store.Attachment{Name: req.Name, MimeType: req.MimeType, URL: req.URL}},
		store.CloseMenus{},
	)
}

func (s *agentService) RemoveAttachment(ctx context.Context, userID, sessionID uuid.UUID, name string) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.RemoveAttachment{AttachmentName: name})
}

func (s *agentService) SetMenu(ctx context.Context, userID, sessionID uuid.UUID, req *dto.MenuRequest) (*dto.SessionResponse, error) {
	return s.dispatch(ctx, userID, sessionID, store.SetMenu{Menu: store.Menu(req.Menu), Open: req.Open})
}

func (s *agentService) CancelWorkflow(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	return s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.CancelWorkflow()
	})
}

func (s *agentService) CloseBanner(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	return s.apply(ctx, userID, sessionID, func(d *dispatcher.Dispatcher) (store.State, error) {
		return d.CloseBanner()
	})
}

func (s *agentService) Insert(ctx context.Context, userID, sessionID uuid.UUID, req *dto.InsertRequest) error {
	sess, err := s.session(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	return sess.Dispatcher.Insert(req.Text)
}

func (s *agentService) ClearMessages(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	resp, err := s.dispatch(ctx, userID, sessionID, store.ClearMessages{})
	if err != nil {
		return nil, err
	}
	if err := s.uowFactory.NewUnitOfWork(ctx).ChatMessageRepository().DeleteByChatSessionId(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("clear transcript: %w", err)
	}
	return resp, nil
}

func (s *agentService) History(ctx context.Context, userID, sessionID uuid.UUID, limit, offset int) ([]dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	row, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionID},
		specification.ByUserID{UserID: userID},
	)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, ErrSessionNotFound
	}

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionID},
		specification.OrderBy{Field: "created_at"},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, err
	}

	out := make([]dto.MessageResponse, len(rows))
	for i, m := range rows {
		out[i] = s.mapper.MessageResponse(m)
	}
	return out, nil
}

func (s *agentService) Interviews() []dto.InterviewResponse {
	interviews := s.planner.Catalog().Interviews()
	out := make([]dto.InterviewResponse, len(interviews))
	for i, iv := range interviews {
		out[i] = s.mapper.InterviewResponse(iv)
	}
	return out
}

// CompleteWorkflow is called by the entity consumer once the completion payload is stored.
func (s *agentService) CompleteWorkflow(sessionID, completionID uuid.UUID) error {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	_, err := sess.Dispatcher.CompleteWorkflow(completionID)
	return err
}

// Shutdown cancels in-flight generations and waits for them to record their outcome.
func (s *agentService) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

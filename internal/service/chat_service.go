package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"novel-forge/backend/ai"
	"novel-forge/backend/internal/models"
	"novel-forge/backend/internal/repository"
	"novel-forge/backend/internal/stream"
	apperrors "novel-forge/backend/pkg/errors"
	"novel-forge/backend/pkg/logger"
	"novel-forge/backend/pkg/resilience"
	"novel-forge/backend/pkg/worker"
	"novel-forge/backend/shared/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("novel-forge/backend/internal/service")

// Upstream is the chat-completions provider.
type Upstream interface {
	Complete(ctx context.Context, msgs []ai.ChatMessage) (string, error)
	Stream(ctx context.Context, msgs []ai.ChatMessage) (ai.FragmentStream, error)
}

// ChatDeps are the collaborators of ChatService. Locker and Metrics are optional.
type ChatDeps struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Upstream      Upstream
	Pool          *worker.Pool
	Locker        TurnLocker
	Metrics       *observability.ChatMetrics
	Logger        *logger.Logger
}

type ChatOptions struct {
	// StreamIdleTimeout closes a stream that emitted nothing for this long.
	StreamIdleTimeout time.Duration
	// LockWait bounds the wait for a conversation busy with another turn.
	LockWait time.Duration
}

// ChatService runs chat turns against the upstream provider and records
// streamed conversations.
type ChatService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	upstream      Upstream
	pool          *worker.Pool
	locker        TurnLocker
	metrics       *observability.ChatMetrics
	log           *logger.Logger
	opts          ChatOptions
}

func NewChatService(deps ChatDeps, opts ChatOptions) *ChatService {
	if opts.LockWait <= 0 {
		opts.LockWait = 30 * time.Second
	}
	return &ChatService{
		conversations: deps.Conversations,
		messages:      deps.Messages,
		upstream:      deps.Upstream,
		pool:          deps.Pool,
		locker:        deps.Locker,
		metrics:       deps.Metrics,
		log:           deps.Logger,
		opts:          opts,
	}
}

// Chat performs a one-shot buffered call with the prompt as the only turn.
// Nothing is persisted. Failures come back as text starting with
// ai.ErrorPrefix.
func (s *ChatService) Chat(ctx context.Context, req models.ChatRequest) string {
	ctx, span := tracer.Start(ctx, "chat.buffered")
	defer span.End()

	answer, err := s.upstream.Complete(ctx, []ai.ChatMessage{
		{Role: string(models.RoleUser), Content: req.Prompt},
	})

	outcome := observability.OutcomeCompleted
	if err != nil {
		answer = degrade(err)
		outcome = observability.OutcomeDegraded
		span.RecordError(err)
		span.SetStatus(codes.Error, "degraded")
		s.log.Warn("Buffered chat degraded", "error", err.Error())
	}
	s.metrics.BufferedCall(ctx, outcome)
	return answer
}

// StreamChat starts a streamed turn on the worker pool and returns the
// channel its events arrive on. The only synchronous failure is a saturated
// pool.
func (s *ChatService) StreamChat(ctx context.Context, req models.ChatRequest) (*stream.Channel, error) {
	ch := stream.NewChannel(ctx, s.opts.StreamIdleTimeout)

	if err := s.pool.Submit("chat-stream", func() { s.runStream(ch, req) }); err != nil {
		ch.CompleteWithError(err)
		return nil, apperrors.NewServiceUnavailableError(apperrors.CodePoolSaturated, "Too many concurrent chat streams, try again shortly").Wrap(err)
	}
	return ch, nil
}

func (s *ChatService) runStream(ch *stream.Channel, req models.ChatRequest) {
	ctx, span := tracer.Start(ch.Context(), "chat.stream")
	defer span.End()

	started := time.Now()
	s.metrics.StreamStarted(ctx)

	var res stream.Result
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Chat stream panicked", "panic", fmt.Sprint(r))
			ch.CompleteWithError(apperrors.NewInternalServerError(apperrors.CodeStreamFailed, "Chat stream failed").Wrap(fmt.Errorf("panic: %v", r)))
			s.metrics.StreamFinished(ctx, observability.OutcomeFailed, res.Fragments, time.Since(started))
		}
	}()

	var err error
	res, err = s.streamTurn(ctx, ch, req)
	if err != nil {
		appErr := s.classify(ch.Context(), err)
		ch.CompleteWithError(appErr)

		if consumerGone(ch.Context(), err) {
			s.log.Info("Chat stream abandoned by client", "fragments", res.Fragments)
			s.metrics.StreamFinished(ctx, observability.OutcomeAborted, res.Fragments, time.Since(started))
			return
		}
		span.RecordError(appErr)
		span.SetStatus(codes.Error, appErr.Code)
		s.log.Warn("Chat stream failed",
			"error_code", appErr.Code,
			"error", appErr.Error(),
			"fragments", res.Fragments,
		)
		s.metrics.StreamFinished(ctx, observability.OutcomeFailed, res.Fragments, time.Since(started))
		return
	}

	ch.Complete()
	s.metrics.StreamFinished(ctx, observability.OutcomeCompleted, res.Fragments, time.Since(started))
}

// streamTurn walks one turn: resolve the conversation, store the user
// message, stream the reply and store it once fully received.
func (s *ChatService) streamTurn(ctx context.Context, ch *stream.Channel, req models.ChatRequest) (stream.Result, error) {
	conv, created, err := s.resolveConversation(ctx, req)
	if err != nil {
		return stream.Result{}, err
	}
	log := s.log.WithConversation(conv.ID)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("conversation.id", int64(conv.ID)),
		attribute.Bool("conversation.created", created),
	)

	if created {
		if err := ch.SendMeta(stream.Meta{ConversationID: conv.ID, Title: conv.Title}); err != nil {
			return stream.Result{}, err
		}
	}

	unlock, err := s.lockTurn(ctx, conv.ID)
	if err != nil {
		return stream.Result{}, err
	}
	defer unlock()

	if _, err := s.messages.Append(ctx, conv.ID, models.RoleUser, req.Prompt); err != nil {
		return stream.Result{}, persistenceError("save user message", err)
	}

	history, err := s.messages.ListByConversation(ctx, conv.ID)
	if err != nil {
		return stream.Result{}, persistenceError("load conversation history", err)
	}

	feed, err := s.upstream.Stream(ctx, toChatMessages(history))
	if err != nil {
		return stream.Result{}, err
	}
	defer feed.Close()

	res, err := stream.Relay(feed, ch)
	if err != nil {
		return res, err
	}

	if res.Text == "" {
		log.Info("Upstream returned no content, assistant message not stored")
		return res, nil
	}

	// Every fragment reached the consumer, so the reply is kept even if the
	// consumer disconnects now.
	persistCtx := context.WithoutCancel(ctx)
	if _, err := s.messages.Append(persistCtx, conv.ID, models.RoleAssistant, res.Text); err != nil {
		return res, persistenceError("save assistant message", err)
	}
	if err := s.conversations.Touch(persistCtx, conv.ID); err != nil {
		return res, persistenceError("touch conversation", err)
	}

	log.Debug("Chat turn stored", "fragments", res.Fragments, "history", len(history))
	return res, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, req models.ChatRequest) (*models.Conversation, bool, error) {
	if req.ConversationID != nil {
		conv, err := s.conversations.GetByID(ctx, *req.ConversationID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, apperrors.NewNotFoundError(apperrors.CodeConversationNotFound,
				fmt.Sprintf("Conversation %d not found", *req.ConversationID))
		}
		if err != nil {
			return nil, false, persistenceError("load conversation", err)
		}
		return conv, false, nil
	}

	conv, err := s.conversations.Create(ctx, DeriveTitle(req.Prompt))
	if err != nil {
		return nil, false, persistenceError("create conversation", err)
	}
	return conv, true, nil
}

func (s *ChatService) lockTurn(ctx context.Context, conversationID uint) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockWait)
	defer cancel()

	unlock, err := s.locker.Lock(lockCtx, conversationID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apperrors.NewConflictError(apperrors.CodeBusyConversation,
			"Conversation is busy with another reply").Wrap(err)
	}
	return unlock, nil
}

// classify maps a turn failure to the error reported downstream.
func (s *ChatService) classify(streamCtx context.Context, err error) *apperrors.AppError {
	if errors.Is(context.Cause(streamCtx), stream.ErrIdleTimeout) {
		return apperrors.NewGatewayTimeoutError(apperrors.CodeStreamTimeout, "Chat stream timed out").Wrap(err)
	}

	if consumerGone(streamCtx, err) {
		return apperrors.NewInternalServerError(apperrors.CodeStreamFailed, "Client disconnected").Wrap(err)
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, resilience.ErrCircuitOpen) {
		return apperrors.NewServiceUnavailableError(apperrors.CodeUpstreamUnavailable,
			"AI provider temporarily unavailable").Wrap(err)
	}

	var upErr *ai.UpstreamError
	if errors.As(err, &upErr) {
		return apperrors.NewBadGatewayError(apperrors.CodeUpstream,
			fmt.Sprintf("API Error: %d", upErr.StatusCode)).
			WithDetails(map[string]any{"status": upErr.StatusCode}).
			Wrap(err)
	}

	return apperrors.NewBadGatewayError(apperrors.CodeUpstream, "AI provider request failed").Wrap(err)
}

func degrade(err error) string {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return ai.ErrorPrefix + "provider temporarily unavailable"
	}
	return ai.Degrade(err)
}

// consumerGone reports whether the turn ended because nobody is reading.
func consumerGone(streamCtx context.Context, err error) bool {
	cause := context.Cause(streamCtx)
	return errors.Is(err, stream.ErrConsumerGone) ||
		errors.Is(cause, stream.ErrConsumerGone) ||
		errors.Is(cause, context.Canceled)
}

func persistenceError(op string, err error) *apperrors.AppError {
	return apperrors.NewInternalServerError(apperrors.CodePersistence, "Failed to save conversation").
		Wrap(fmt.Errorf("%s: %w", op, err))
}

func toChatMessages(history []models.Message) []ai.ChatMessage {
	out := make([]ai.ChatMessage, 0, len(history))
	for _, m := range history {
		out = append(out, ai.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

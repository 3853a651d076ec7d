// Package service is the transfer authorization gateway. Every value
// movement must present a live authentication session; the gateway consumes
// the session, debits the points ledger, records history and drives the host
// ledger inside one unit of work.
package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	identitymodels "aliaspay/internal/identity/models"
	mappingmodels "aliaspay/internal/mapping/models"
	"aliaspay/internal/notify"
	"aliaspay/internal/platform/metrics"
	pointsmodels "aliaspay/internal/points/models"
	sessionmodels "aliaspay/internal/session/models"
	"aliaspay/internal/transfer/models"
	"aliaspay/internal/transfer/mover"
	"aliaspay/pkg/domain"
	dErrors "aliaspay/pkg/domain-errors"
	"aliaspay/pkg/platform/tx"
	"aliaspay/pkg/requestcontext"
)

type IdentityResolver interface {
	Resolve(ctx context.Context, handle string) (*identitymodels.Identity, error)
}

type MappingResolver interface {
	Resolve(ctx context.Context, handle, mtype string) (*mappingmodels.Mapping, error)
}

// SessionConsumer spends the sender's session and debits the ledger. It runs
// inside the transfer transaction; Reactivate compensates a consume whose
// backing store could not join the rollback.
type SessionConsumer interface {
	ValidateAndConsume(ctx context.Context, handle, sessionID string, deduct uint32) (*sessionmodels.Session, error)
	Reactivate(ctx context.Context, handle, sessionID string) error
}

type HistoryStore interface {
	Append(ctx context.Context, transfer *models.Transfer) error
	ListBySender(ctx context.Context, handle string, page, pageSize int) ([]models.Transfer, error)
}

type Service struct {
	identities IdentityResolver
	mappings   MappingResolver
	sessions   SessionConsumer
	history    HistoryStore
	mover      mover.Mover
	tx         tx.Runner
	tracer     trace.Tracer
	logger     *slog.Logger
	notifier   notify.Publisher
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(p notify.Publisher) Option {
	return func(s *Service) { s.notifier = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(identities IdentityResolver, mappings MappingResolver, sessions SessionConsumer,
	history HistoryStore, mv mover.Mover, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		identities: identities,
		mappings:   mappings,
		sessions:   sessions,
		history:    history,
		mover:      mv,
		tx:         runner,
		tracer:     otel.Tracer("aliaspay/transfer"),
		logger:     slog.Default(),
		notifier:   notify.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ToMain moves value to the recipient's main address.
func (s *Service) ToMain(ctx context.Context, req models.Request) (*models.Transfer, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.ToMain",
		trace.WithAttributes(
			attribute.String("sender", req.SenderHandle),
			attribute.String("recipient", req.RecipientHandle),
		))
	defer span.End()

	sender, recipient, err := s.prepare(ctx, req)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if !req.ExpectedRecipient.IsZero() && req.ExpectedRecipient != recipient.MainAddress {
		return nil, s.fail(span, dErrors.New(dErrors.CodeRecipientAddressMismatch,
			"recipient main address no longer matches the pinned address"))
	}

	transfer, err := s.execute(ctx, req, sender, recipient.MainAddress, "")
	if err != nil {
		return nil, s.fail(span, err)
	}
	return transfer, nil
}

// ToMapping moves value to one of the recipient's typed mappings.
func (s *Service) ToMapping(ctx context.Context, req models.MappingRequest) (*models.Transfer, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.ToMapping",
		trace.WithAttributes(
			attribute.String("sender", req.SenderHandle),
			attribute.String("recipient", req.RecipientHandle),
			attribute.String("mapping_type", req.MappingType),
		))
	defer span.End()

	sender, _, err := s.prepare(ctx, req.Request)
	if err != nil {
		return nil, s.fail(span, err)
	}

	mapping, err := s.mappings.Resolve(ctx, req.RecipientHandle, req.MappingType)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if mapping.Handle != req.RecipientHandle || mapping.Type != req.MappingType {
		return nil, s.fail(span, dErrors.New(dErrors.CodeMappingMismatch,
			"mapping record does not match the requested slot"))
	}
	if !req.ExpectedRecipient.IsZero() && req.ExpectedRecipient != mapping.Target {
		return nil, s.fail(span, dErrors.New(dErrors.CodeRecipientAddressMismatch,
			"mapping target no longer matches the pinned address"))
	}

	transfer, err := s.execute(ctx, req.Request, sender, mapping.Target, req.MappingType)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return transfer, nil
}

// History returns one page of the sender's executed transfers, newest first.
func (s *Service) History(ctx context.Context, handle string, page, pageSize int) ([]models.Transfer, error) {
	if err := identitymodels.ValidateHandle(handle); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > models.MaxPageSize {
		pageSize = models.MaxPageSize
	}

	transfers, err := s.history.ListBySender(ctx, handle, page, pageSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	return transfers, nil
}

// prepare runs the checks that need no transaction: amount, handles, the
// caller's right to spend for the sender, and the recipient identity.
func (s *Service) prepare(ctx context.Context, req models.Request) (*identitymodels.Identity, *identitymodels.Identity, error) {
	if req.Amount == 0 {
		return nil, nil, dErrors.New(dErrors.CodeInvalidTransferAmount, "transfer amount must be positive")
	}
	if err := identitymodels.ValidateHandle(req.SenderHandle); err != nil {
		return nil, nil, err
	}

	sender, err := s.identities.Resolve(ctx, req.SenderHandle)
	if err != nil {
		return nil, nil, err
	}
	if req.Caller != sender.Authority {
		return nil, nil, dErrors.New(dErrors.CodeNotAuthorized, "caller is not the sender authority")
	}

	recipient, err := s.identities.Resolve(ctx, req.RecipientHandle)
	if err != nil {
		return nil, nil, err
	}
	if recipient.Handle != req.RecipientHandle {
		return nil, nil, dErrors.New(dErrors.CodeUsernameMismatch,
			"resolved identity does not match the requested recipient")
	}
	return sender, recipient, nil
}

// execute consumes the session, debits the ledger, records history and moves
// value, all inside one transaction.
func (s *Service) execute(ctx context.Context, req models.Request, sender *identitymodels.Identity, target domain.Address, mappingType string) (*models.Transfer, error) {
	var transfer *models.Transfer
	consumed := false
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		session, err := s.sessions.ValidateAndConsume(txCtx, req.SenderHandle, req.SessionID, pointsmodels.DefaultTransactionCost)
		if err != nil {
			return err
		}
		consumed = true

		record := &models.Transfer{
			SenderHandle:    req.SenderHandle,
			RecipientHandle: req.RecipientHandle,
			MappingType:     mappingType,
			From:            sender.MainAddress,
			To:              target,
			Amount:          req.Amount,
			PointsSpent:     pointsmodels.DefaultTransactionCost,
			SessionID:       session.ID,
			Memo:            models.ClipMemo(req.Memo),
			ExecutedAt:      requestcontext.Now(txCtx),
		}
		if err := s.history.Append(txCtx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record transfer")
		}

		if err := s.mover.Move(txCtx, sender.MainAddress, target, req.Amount); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "host ledger rejected the move")
		}

		transfer = record
		return nil
	})
	if err != nil {
		if consumed {
			// Session stores outside the transaction (Redis) need an explicit
			// re-arm; transactional stores already rolled the consume back.
			if rErr := s.sessions.Reactivate(ctx, req.SenderHandle, req.SessionID); rErr != nil {
				s.logger.ErrorContext(ctx, "failed to reactivate session after transfer failure",
					"sender", req.SenderHandle,
					"session_id", req.SessionID,
					"error", rErr.Error(),
				)
			}
		}
		if s.metrics != nil {
			s.metrics.TransfersFailed.Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransfersExecuted.Inc()
	}
	s.logger.InfoContext(ctx, "transfer executed",
		"sender", transfer.SenderHandle,
		"recipient", transfer.RecipientHandle,
		"amount", transfer.Amount,
	)
	s.notifier.Emit(ctx, notify.Event{
		Action:    notify.ActionTransferExecuted,
		Handle:    transfer.SenderHandle,
		Subject:   transfer.RecipientHandle,
		Amount:    transfer.Amount,
		RequestID: requestcontext.RequestID(ctx),
	})
	return transfer, nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

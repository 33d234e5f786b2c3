package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/essenza-shop/essenza-backend/internal/orders"
	dbpkg "github.com/essenza-shop/essenza-backend/pkg/db"
	"github.com/essenza-shop/essenza-backend/pkg/db/models"
	"github.com/essenza-shop/essenza-backend/pkg/enums"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
	"github.com/essenza-shop/essenza-backend/pkg/metrics"
	"github.com/essenza-shop/essenza-backend/pkg/outbox"
	"github.com/essenza-shop/essenza-backend/pkg/outbox/payloads"
	"github.com/essenza-shop/essenza-backend/pkg/pagination"
	"github.com/essenza-shop/essenza-backend/pkg/pesapal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// gateway is the slice of the Pesapal client the service needs. Tests swap in
// a stub.
type gateway interface {
	SubmitOrderRequest(ctx context.Context, params pesapal.OrderRequestParams) (*pesapal.OrderResponse, error)
	GetTransactionStatus(ctx context.Context, orderTrackingID string) (*pesapal.TransactionStatus, error)
	RegisterIPN(ctx context.Context, params pesapal.RegisterIPNParams) (*pesapal.IPNRegistration, error)
	CallbackURL() string
}

// Service defines payment operations. Initiate also satisfies the order
// module's payment starter.
type Service interface {
	Initiate(ctx context.Context, order *models.Order) (string, error)
	Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error)
	RegisterCallbackURL(ctx context.Context, rawURL string) (*models.CallbackURL, error)
	ListCallbackURLs(ctx context.Context) ([]models.CallbackURL, error)
	GetTransaction(ctx context.Context, trxID uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, params pagination.Params, filters TransactionFilters) (*TransactionList, error)
	UpdateTransaction(ctx context.Context, trxID uuid.UUID) error
	DeleteTransaction(ctx context.Context, trxID uuid.UUID) error
}

type service struct {
	repo    Repository
	orders  orders.Repository
	gateway gateway
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.PaymentMetrics
}

// NewService builds a payment service. Metrics may be nil.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	gw gateway,
	tx txRunner,
	outboxSvc outboxPublisher,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		orders:  ordersRepo,
		gateway: gw,
		tx:      tx,
		outbox:  outboxSvc,
		logg:    logg,
		metrics: paymentMetrics,
	}, nil
}

// Initiate starts a hosted checkout for the order, records the PENDING
// transaction and stamps the order's payment URL.
func (s *service) Initiate(ctx context.Context, order *models.Order) (string, error) {
	if order == nil || order.ID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	notificationID := ""
	callback, err := s.repo.FindActiveCallbackURL(ctx)
	switch {
	case err == nil:
		notificationID = callback.NotificationID
	case err != gorm.ErrRecordNotFound:
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load callback url")
	}

	resp, err := s.gateway.SubmitOrderRequest(ctx, pesapal.OrderRequestParams{
		MerchantReference: order.OrderNumber,
		Amount:            order.Total,
		Currency:          order.Currency.String(),
		Description:       fmt.Sprintf("Essenza order %s", order.OrderNumber),
		CallbackURL:       s.gateway.CallbackURL(),
		NotificationID:    notificationID,
		Email:             order.Email,
		Phone:             order.Phone,
	})
	if err != nil {
		s.metrics.IncInitiationFailure()
		return "", err
	}

	trx := &models.Transaction{
		OrderID:           order.ID,
		TrackingID:        resp.OrderTrackingID,
		MerchantReference: order.OrderNumber,
		Status:            enums.TransactionPending,
		Amount:            order.Total,
		Currency:          order.Currency,
		InitiationPayload: rawJSON(resp),
	}
	if _, err := s.repo.CreateTransaction(ctx, trx); err != nil {
		s.metrics.IncInitiationFailure()
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transaction")
	}

	if resp.RedirectURL != "" {
		if err := s.orders.SetPaymentURL(ctx, order.ID, resp.RedirectURL); err != nil {
			// The redirect still works without the stamp; log and move on.
			logCtx := s.logg.WithOrderNumber(ctx, order.OrderNumber)
			s.logg.Error(logCtx, "stamping payment url failed", err)
		}
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_number": order.OrderNumber,
		"tracking_id":  resp.OrderTrackingID,
	})
	s.logg.Info(logCtx, "payment initiated")
	return resp.RedirectURL, nil
}

// Reconcile resolves an IPN callback against the gateway's authoritative
// status. Redelivered callbacks for settled transactions are no-ops.
func (s *service) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	trackingID := strings.TrimSpace(input.TrackingID)
	merchantRef := strings.TrimSpace(input.MerchantReference)
	if trackingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking id required")
	}
	if merchantRef == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "merchant reference required")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"tracking_id":        trackingID,
		"merchant_reference": merchantRef,
	})

	order, err := s.orders.FindByOrderNumber(ctx, merchantRef)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.logg.Warn(logCtx, "callback references unknown order")
			s.metrics.IncReconcileOutcome(string(OutcomeFailed))
			return &ReconcileResult{Outcome: OutcomeFailed}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	existing, err := s.repo.FindTransactionByTrackingID(ctx, trackingID)
	if err != nil && err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if existing != nil && existing.Status.IsTerminal() {
		s.metrics.IncReconcileOutcome(string(OutcomeAlreadyProcessed))
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Transaction: existing}, nil
	}

	status, err := s.gateway.GetTransactionStatus(ctx, trackingID)
	if err != nil {
		return nil, err
	}

	callbackPayload := rawJSON(gatewayCallback{
		OrderTrackingID:        trackingID,
		OrderMerchantReference: merchantRef,
		OrderNotificationType:  input.NotificationType,
	})

	var result *ReconcileResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		// The pre-transaction read can go stale while the gateway status
		// call is in flight. Concurrent deliveries of the same callback
		// serialize on the row lock and re-check terminality here, so only
		// one of them settles the transaction and emits events.
		trx, lockErr := repo.FindTransactionByTrackingIDForUpdate(ctx, trackingID)
		if lockErr != nil && lockErr != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, lockErr, "lock transaction")
		}
		if trx == nil {
			created, createErr := repo.CreateTransaction(ctx, &models.Transaction{
				OrderID:           order.ID,
				TrackingID:        trackingID,
				MerchantReference: order.OrderNumber,
				Status:            enums.TransactionPending,
				Amount:            order.Total,
				Currency:          order.Currency,
				CallbackPayload:   callbackPayload,
			})
			if createErr != nil {
				if !dbpkg.IsUniqueViolation(createErr, "ux_transactions_tracking_id") {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create transaction")
				}
				trx, createErr = repo.FindTransactionByTrackingIDForUpdate(ctx, trackingID)
				if createErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "load transaction after collision")
				}
			} else {
				trx = created
			}
		}
		if trx.Status.IsTerminal() {
			result = &ReconcileResult{Outcome: OutcomeAlreadyProcessed, Transaction: trx}
			return nil
		}

		next := classifyGatewayStatus(status)
		updates := map[string]any{
			"status":             next,
			"status_description": status.PaymentStatusDescription,
			"callback_payload":   callbackPayload,
			"status_payload":     rawJSON(status),
		}
		if status.PaymentMethod != "" {
			updates["payment_method"] = status.PaymentMethod
		}
		if status.ConfirmationCode != "" {
			updates["confirmation_code"] = status.ConfirmationCode
		}
		if status.Amount.IsPositive() {
			updates["amount"] = status.Amount
		}
		if err := repo.UpdateTransaction(ctx, trx.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transaction")
		}
		applyStatusUpdates(trx, status, next, callbackPayload)

		switch next {
		case enums.TransactionCompleted:
			if err := ordersRepo.MarkPaid(ctx, order.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderPaid,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderPaidEvent{
					OrderID:       order.ID,
					OrderNumber:   order.OrderNumber,
					TransactionID: trx.ID,
					TrackingID:    trx.TrackingID,
					Amount:        trx.Amount,
					PaymentMethod: status.PaymentMethod,
					PaidAt:        trx.UpdatedAt,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			result = &ReconcileResult{Outcome: OutcomeCompleted, Transaction: trx}
		case enums.TransactionFailed:
			event := outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregateTransaction,
				AggregateID:   trx.ID,
				Version:       1,
				Data: payloads.PaymentFailedEvent{
					OrderID:     order.ID,
					OrderNumber: order.OrderNumber,
					TrackingID:  trx.TrackingID,
					Reason:      status.PaymentStatusDescription,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return err
			}
			result = &ReconcileResult{Outcome: OutcomeFailed, Transaction: trx}
		default:
			result = &ReconcileResult{Outcome: OutcomeStillPending, Transaction: trx}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncReconcileOutcome(string(result.Outcome))
	s.logg.Info(s.logg.WithField(logCtx, "outcome", string(result.Outcome)), "callback reconciled")
	return result, nil
}

// gatewayCallback mirrors the IPN wire fields for the transaction's callback
// audit column.
type gatewayCallback struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
	OrderNotificationType  string `json:"OrderNotificationType,omitempty"`
}

// rawJSON marshals gateway bodies for the audit columns. These are plain
// structs that always marshal; a missing payload is preferable to failing
// the payment flow, so errors collapse to a nil column.
func rawJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// classifyGatewayStatus maps the gateway's free-text description onto the
// local transaction state. Unrecognized descriptions stay PENDING so a later
// callback can settle them.
func classifyGatewayStatus(status *pesapal.TransactionStatus) enums.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(status.PaymentStatusDescription)) {
	case "completed":
		return enums.TransactionCompleted
	case "failed", "invalid", "reversed":
		return enums.TransactionFailed
	default:
		return enums.TransactionPending
	}
}

func applyStatusUpdates(trx *models.Transaction, status *pesapal.TransactionStatus, next enums.TransactionStatus, callbackPayload json.RawMessage) {
	trx.Status = next
	description := status.PaymentStatusDescription
	trx.StatusDescription = &description
	trx.CallbackPayload = callbackPayload
	trx.StatusPayload = rawJSON(status)
	if status.PaymentMethod != "" {
		method := status.PaymentMethod
		trx.PaymentMethod = &method
	}
	if status.ConfirmationCode != "" {
		code := status.ConfirmationCode
		trx.ConfirmationCode = &code
	}
	if status.Amount.IsPositive() {
		trx.Amount = status.Amount
	}
}

// RegisterCallbackURL registers the URL with the gateway and stores the
// returned notification id. Re-registering an existing URL refreshes it.
func (s *service) RegisterCallbackURL(ctx context.Context, rawURL string) (*models.CallbackURL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback url required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "callback url must be absolute http(s)")
	}

	registration, err := s.gateway.RegisterIPN(ctx, pesapal.RegisterIPNParams{URL: trimmed})
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindCallbackURLByURL(ctx, trimmed)
	if err == nil {
		updates := map[string]any{
			"notification_id": registration.ID,
			"is_active":       true,
		}
		if err := s.repo.UpdateCallbackURL(ctx, existing.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh callback url")
		}
		existing.NotificationID = registration.ID
		existing.IsActive = true
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load callback url")
	}

	callback, err := s.repo.CreateCallbackURL(ctx, &models.CallbackURL{
		URL:            trimmed,
		NotificationID: registration.ID,
		IsActive:       true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store callback url")
	}
	return callback, nil
}

func (s *service) ListCallbackURLs(ctx context.Context) ([]models.CallbackURL, error) {
	callbacks, err := s.repo.ListCallbackURLs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list callback urls")
	}
	return callbacks, nil
}

func (s *service) GetTransaction(ctx context.Context, trxID uuid.UUID) (*models.Transaction, error) {
	if trxID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	trx, err := s.repo.FindTransactionByID(ctx, trxID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	return trx, nil
}

func (s *service) ListTransactions(ctx context.Context, params pagination.Params, filters TransactionFilters) (*TransactionList, error) {
	list, err := s.repo.ListTransactions(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	return list, nil
}

// Transactions are an audit trail written only by reconciliation.
func (s *service) UpdateTransaction(ctx context.Context, trxID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "transactions are immutable")
}

func (s *service) DeleteTransaction(ctx context.Context, trxID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "transactions are immutable")
}

package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/essenza-shop/essenza-backend/api/responses"
	"github.com/essenza-shop/essenza-backend/internal/payments"
	pkgerrors "github.com/essenza-shop/essenza-backend/pkg/errors"
	"github.com/essenza-shop/essenza-backend/pkg/logger"
)

type PaymentReconciler interface {
	Reconcile(ctx context.Context, input payments.ReconcileInput) (*payments.ReconcileResult, error)
}

type replayGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	WebhookReplayKey(trackingID string) string
}

type ipnPayload struct {
	OrderTrackingID        string `json:"OrderTrackingId"`
	OrderMerchantReference string `json:"OrderMerchantReference"`
	OrderNotificationType  string `json:"OrderNotificationType"`
}

type ipnAck struct {
	OrderNotificationType  string `json:"orderNotificationType"`
	OrderTrackingID        string `json:"orderTrackingId"`
	OrderMerchantReference string `json:"orderMerchantReference"`
	Status                 int    `json:"status"`
}

// PesapalIPN handles gateway payment notifications. The gateway delivers the
// same callback over GET query parameters or a POST JSON body; both carry the
// tracking id and merchant reference. Reconciliation failures are logged and
// acknowledged anyway so the gateway does not retry forever against a
// callback we already know how to recover through polling.
// replayTTL bounds how long a tracking id suppresses redeliveries. The
// reconciler is idempotent regardless, the guard only sheds redundant
// gateway status lookups during redelivery bursts.
func PesapalIPN(svc PaymentReconciler, guard replayGuard, replayTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		payload, err := parseIPN(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		logCtx := logg.WithFields(ctx, map[string]any{
			"tracking_id":        payload.OrderTrackingID,
			"merchant_reference": payload.OrderMerchantReference,
		})

		if guard != nil {
			fresh, err := guard.SetNX(ctx, guard.WebhookReplayKey(payload.OrderTrackingID), "1", replayTTL)
			if err != nil {
				// Fail open: a dead cache must not drop callbacks.
				logg.Warn(logCtx, "replay guard unavailable, processing anyway")
			} else if !fresh {
				logg.Info(logCtx, "duplicate callback suppressed")
				writeAck(w, payload)
				return
			}
		}

		result, err := svc.Reconcile(ctx, payments.ReconcileInput{
			TrackingID:        payload.OrderTrackingID,
			MerchantReference: payload.OrderMerchantReference,
			NotificationType:  payload.OrderNotificationType,
		})
		if err != nil {
			logg.Error(logCtx, "callback reconciliation failed", err)
			writeAck(w, payload)
			return
		}

		logg.Info(logCtx, fmt.Sprintf("callback acknowledged with outcome %s", result.Outcome))
		writeAck(w, payload)
	}
}

func parseIPN(r *http.Request) (*ipnPayload, error) {
	payload := &ipnPayload{
		OrderTrackingID:        r.URL.Query().Get("OrderTrackingId"),
		OrderMerchantReference: r.URL.Query().Get("OrderMerchantReference"),
		OrderNotificationType:  r.URL.Query().Get("OrderNotificationType"),
	}

	if payload.OrderTrackingID == "" && r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed callback body")
		}
	}

	payload.OrderTrackingID = strings.TrimSpace(payload.OrderTrackingID)
	payload.OrderMerchantReference = strings.TrimSpace(payload.OrderMerchantReference)
	if payload.OrderTrackingID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "OrderTrackingId is required")
	}
	if payload.OrderMerchantReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "OrderMerchantReference is required")
	}
	return payload, nil
}

func writeAck(w http.ResponseWriter, payload *ipnPayload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ipnAck{
		OrderNotificationType:  payload.OrderNotificationType,
		OrderTrackingID:        payload.OrderTrackingID,
		OrderMerchantReference: payload.OrderMerchantReference,
		Status:                 http.StatusOK,
	})
}

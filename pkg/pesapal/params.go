package pesapal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// tokenRequest is the auth payload posted to /api/Auth/RequestToken.
type tokenRequest struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
}

type tokenResponse struct {
	Token      string `json:"token"`
	ExpiryDate string `json:"expiryDate"`
	Error      *Error `json:"error"`
	Status     string `json:"status"`
}

// RegisterIPNParams configures an IPN registration request.
type RegisterIPNParams struct {
	URL              string
	NotificationType string
}

func (p RegisterIPNParams) toRequest() registerIPNRequest {
	notificationType := strings.TrimSpace(p.NotificationType)
	if notificationType == "" {
		notificationType = "POST"
	}
	return registerIPNRequest{
		URL:                 p.URL,
		IPNNotificationType: notificationType,
	}
}

type registerIPNRequest struct {
	URL                 string `json:"url"`
	IPNNotificationType string `json:"ipn_notification_type"`
}

// IPNRegistration is the gateway's record of a registered notification URL.
type IPNRegistration struct {
	ID     string `json:"ipn_id"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  *Error `json:"error"`
}

// OrderRequestParams carries the payment initiation inputs.
type OrderRequestParams struct {
	MerchantReference string
	Amount            decimal.Decimal
	Currency          string
	Description       string
	CallbackURL       string
	NotificationID    string
	Email             string
	Phone             string
	ForceMpesa        bool
}

func (p OrderRequestParams) toRequest() submitOrderRequest {
	req := submitOrderRequest{
		ID:             p.MerchantReference,
		Currency:       strings.ToUpper(strings.TrimSpace(p.Currency)),
		Amount:         p.Amount.InexactFloat64(),
		Description:    p.Description,
		CallbackURL:    p.CallbackURL,
		NotificationID: p.NotificationID,
		BillingAddress: billingAddress{
			EmailAddress: p.Email,
			PhoneNumber:  p.Phone,
		},
	}
	if p.ForceMpesa {
		req.PaymentMethod = "mpesa"
	}
	return req
}

type submitOrderRequest struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         float64        `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id"`
	BillingAddress billingAddress `json:"billing_address"`
	PaymentMethod  string         `json:"payment_method,omitempty"`
}

type billingAddress struct {
	EmailAddress string `json:"email_address"`
	PhoneNumber  string `json:"phone_number"`
}

// OrderResponse is returned by SubmitOrderRequest. The redirect URL points at
// the gateway's hosted payment page.
type OrderResponse struct {
	OrderTrackingID   string `json:"order_tracking_id"`
	MerchantReference string `json:"merchant_reference"`
	RedirectURL       string `json:"redirect_url"`
	Status            string `json:"status"`
	Error             *Error `json:"error"`
}

// TransactionStatus is the authoritative payment state reported by the gateway.
type TransactionStatus struct {
	PaymentStatusDescription string          `json:"payment_status_description"`
	Amount                   decimal.Decimal `json:"amount"`
	Currency                 string          `json:"currency"`
	PaymentMethod            string          `json:"payment_method"`
	ConfirmationCode         string          `json:"confirmation_code"`
	MerchantReference        string          `json:"merchant_reference"`
	Description              string          `json:"description"`
	CreatedDate              string          `json:"created_date"`
	StatusCode               int             `json:"status_code"`
	Error                    *Error          `json:"error"`
}

// Completed reports whether the gateway considers the payment settled. The
// comparison is case-insensitive because the gateway is not consistent about
// casing in status descriptions.
func (s TransactionStatus) Completed() bool {
	return strings.EqualFold(strings.TrimSpace(s.PaymentStatusDescription), "completed")
}

// Pending reports whether the gateway still considers the payment in flight.
func (s TransactionStatus) Pending() bool {
	return strings.EqualFold(strings.TrimSpace(s.PaymentStatusDescription), "pending")
}

// Error is the structured error object embedded in gateway responses.
type Error struct {
	Type    string `json:"error_type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) isZero() bool {
	return e == nil || (e.Type == "" && e.Code == "" && e.Message == "")
}

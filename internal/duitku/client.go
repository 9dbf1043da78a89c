// Package duitku implements the Duitku payment gateway protocol:
//
//  1. Get payment methods: SHA256(merchantCode + amount + datetime + apiKey)
//  2. Request transaction: MD5(merchantCode + merchantOrderId + paymentAmount + apiKey)
//  3. Callback verification: MD5(merchantCode + amount + merchantOrderId + apiKey)
//
// Sandbox docs: https://docs.duitku.com/api/en/
package duitku

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tarjuman/order-service/internal/config"
)

const (
	paymentMethodPath = "/webapi/api/merchant/paymentmethod/getpaymentmethod"
	inquiryPath       = "/webapi/api/merchant/v2/inquiry"

	// successCode is the gateway's own success sentinel, distinct from the
	// HTTP status code.
	successCode = "00"

	datetimeLayout = "2006-01-02 15:04:05"

	// expiryPeriodMinutes is how long a requested transaction stays payable.
	expiryPeriodMinutes = 1440
)

var ErrMissingCredentials = errors.New("duitku: DUITKU_MERCHANT_CODE and DUITKU_API_KEY must be set")

// GatewayError reports a failed gateway call: a transport failure, a non-2xx
// HTTP status, an unparseable body, or a non-success gateway response code.
type GatewayError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("duitku: %s failed with gateway code %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("duitku: %s failed (%d): %s", e.Op, e.StatusCode, e.Message)
}

type PaymentMethod struct {
	PaymentMethod string `json:"paymentMethod"`
	PaymentName   string `json:"paymentName"`
	PaymentImage  string `json:"paymentImage"`
	TotalFee      string `json:"totalFee"`
}

type paymentMethodResponse struct {
	PaymentFee      []PaymentMethod `json:"paymentFee"`
	ResponseCode    string          `json:"responseCode"`
	ResponseMessage string          `json:"responseMessage"`
}

// TransactionRequest describes one payment attempt for an order. Amount is
// an integer rupiah value; it is sent verbatim in both the signature and the
// request body so the two can never disagree on formatting.
type TransactionRequest struct {
	OrderID        string
	Amount         int64
	PaymentMethod  string
	ProductDetails string
	Email          string
	CustomerName   string
	PhoneNumber    string
}

type TransactionResponse struct {
	MerchantCode  string `json:"merchantCode"`
	Reference     string `json:"reference"`
	PaymentURL    string `json:"paymentUrl"`
	VANumber      string `json:"vaNumber,omitempty"`
	QRString      string `json:"qrString,omitempty"`
	Amount        string `json:"amount"`
	StatusCode    string `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

// CallbackParams is the untrusted x-www-form-urlencoded payload Duitku's
// server posts when a payment status changes. It must pass
// VerifyCallbackSignature before any state is derived from it.
type CallbackParams struct {
	MerchantCode     string
	Amount           string
	MerchantOrderID  string
	ProductDetail    string
	AdditionalParam  string
	PaymentCode      string
	ResultCode       string
	MerchantUserID   string
	Reference        string
	Signature        string
	PublisherOrderID string
	SpUserHash       string
	SettlementDate   string
	IssuerCode       string
}

// HasRequiredFields reports whether the fields needed for signature
// verification are present.
func (p CallbackParams) HasRequiredFields() bool {
	return p.MerchantCode != "" && p.Amount != "" && p.MerchantOrderID != "" && p.Signature != ""
}

// Paid reports whether the callback announces a successful payment.
// "00" = success, "01" = pending, "02" = canceled/failed.
func (p CallbackParams) Paid() bool {
	return p.ResultCode == successCode
}

type Client struct {
	merchantCode string
	apiKey       string
	baseURL      string
	siteURL      string
	httpClient   *http.Client
	now          func() time.Time
}

// NewClient builds a gateway client from config. Missing merchant code or
// api key is a fatal configuration error, surfaced here rather than on the
// first payment attempt.
func NewClient(cfg config.DuitkuConfig) (*Client, error) {
	if cfg.MerchantCode == "" || cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}

	return &Client{
		merchantCode: cfg.MerchantCode,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		siteURL:      strings.TrimRight(cfg.SiteURL, "/"),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		now:          time.Now,
	}, nil
}

// GetPaymentMethods lists the payment channels available for the given
// amount, with their fees.
func (c *Client) GetPaymentMethods(ctx context.Context, amount int64) ([]PaymentMethod, error) {
	datetime := c.now().UTC().Format(datetimeLayout)
	amountStr := strconv.FormatInt(amount, 10)
	signature := sha256Hex(c.merchantCode + amountStr + datetime + c.apiKey)

	body := map[string]any{
		"merchantcode": c.merchantCode,
		"amount":       amount,
		"datetime":     datetime,
		"signature":    signature,
	}

	var parsed paymentMethodResponse
	if err := c.post(ctx, "getPaymentMethods", paymentMethodPath, body, &parsed); err != nil {
		return nil, err
	}

	if parsed.ResponseCode != successCode {
		return nil, &GatewayError{Op: "getPaymentMethods", Code: parsed.ResponseCode, Message: parsed.ResponseMessage}
	}

	return parsed.PaymentFee, nil
}

// RequestTransaction asks the gateway to collect req.Amount for req.OrderID
// and returns the redirect URL the customer pays at.
func (c *Client) RequestTransaction(ctx context.Context, req TransactionRequest) (*TransactionResponse, error) {
	amountStr := strconv.FormatInt(req.Amount, 10)
	signature := md5Hex(c.merchantCode + req.OrderID + amountStr + c.apiKey)

	firstName, lastName := splitName(req.CustomerName)

	body := map[string]any{
		"merchantCode":     c.merchantCode,
		"paymentAmount":    req.Amount,
		"paymentMethod":    req.PaymentMethod,
		"merchantOrderId":  req.OrderID,
		"productDetails":   req.ProductDetails,
		"additionalParam":  "",
		"merchantUserInfo": "",
		"customerVaName":   req.CustomerName,
		"email":            req.Email,
		"phoneNumber":      req.PhoneNumber,
		"itemDetails": []map[string]any{
			{
				"name":     req.ProductDetails,
				"price":    req.Amount,
				"quantity": 1,
			},
		},
		"customerDetail": map[string]any{
			"firstName":   firstName,
			"lastName":    lastName,
			"email":       req.Email,
			"phoneNumber": req.PhoneNumber,
		},
		"callbackUrl":  c.siteURL + "/api/duitku/callback",
		"returnUrl":    c.siteURL + "/payment/success/" + req.OrderID,
		"signature":    signature,
		"expiryPeriod": expiryPeriodMinutes,
	}

	var parsed TransactionResponse
	if err := c.post(ctx, "requestTransaction", inquiryPath, body, &parsed); err != nil {
		return nil, err
	}

	if parsed.StatusCode != successCode {
		return nil, &GatewayError{Op: "requestTransaction", Code: parsed.StatusCode, Message: parsed.StatusMessage}
	}

	return &parsed, nil
}

// VerifyCallbackSignature recomputes the callback signature and compares it
// to the one in the payload. The amount is used exactly as received: the
// gateway signed its own string representation. Never returns an error; a
// false result means the callback must be rejected.
func (c *Client) VerifyCallbackSignature(params CallbackParams) bool {
	expected := md5Hex(c.merchantCode + params.Amount + params.MerchantOrderID + c.apiKey)
	return signaturesEqual(expected, params.Signature)
}

// post sends one signed JSON request. Transport-level failures get a single
// retry; HTTP-level and gateway-level failures do not, because the request
// reached the gateway.
func (c *Client) post(ctx context.Context, op, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("duitku: failed to marshal %s request: %w", op, err)
	}

	var resp *http.Response
	for attempt := 0; ; attempt++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if reqErr != nil {
			return fmt.Errorf("duitku: failed to build %s request: %w", op, reqErr)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err == nil {
			break
		}
		if attempt >= 1 || ctx.Err() != nil {
			return &GatewayError{Op: op, Message: err.Error()}
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: string(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("unparseable response: %v", err)}
	}

	return nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "Customer", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

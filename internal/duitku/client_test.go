package duitku

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarjuman/order-service/internal/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(config.DuitkuConfig{
		MerchantCode: "D0001",
		APIKey:       "secret-key",
		BaseURL:      baseURL,
		SiteURL:      "https://tarjuman.org",
	})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.DuitkuConfig{BaseURL: "https://sandbox.duitku.com"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(config.DuitkuConfig{MerchantCode: "D0001"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestGetPaymentMethods(t *testing.T) {
	fixedNow := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, paymentMethodPath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "D0001", body["merchantcode"])
		assert.Equal(t, float64(825000), body["amount"])
		assert.Equal(t, "2026-03-14 09:26:53", body["datetime"])
		assert.Equal(t, sha256Hex("D0001"+"825000"+"2026-03-14 09:26:53"+"secret-key"), body["signature"])

		_ = json.NewEncoder(w).Encode(paymentMethodResponse{
			ResponseCode: "00",
			PaymentFee: []PaymentMethod{
				{PaymentMethod: "VC", PaymentName: "Credit Card", TotalFee: "2500"},
				{PaymentMethod: "BT", PaymentName: "Bank Transfer", TotalFee: "0"},
			},
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	client.now = func() time.Time { return fixedNow }

	methods, err := client.GetPaymentMethods(context.Background(), 825000)
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "VC", methods[0].PaymentMethod)
	assert.Equal(t, "Credit Card", methods[0].PaymentName)
}

func TestGetPaymentMethodsGatewayErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode string
	}{
		{
			name: "non_success_response_code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(paymentMethodResponse{ResponseCode: "01", ResponseMessage: "invalid signature"})
			},
			wantCode: "01",
		},
		{
			name: "http_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "unparseable_body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, "<html>not json</html>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := newTestClient(t, srv.URL)
			_, err := client.GetPaymentMethods(context.Background(), 1000)
			require.Error(t, err)

			var gatewayErr *GatewayError
			require.ErrorAs(t, err, &gatewayErr)
			assert.Equal(t, "getPaymentMethods", gatewayErr.Op)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, gatewayErr.Code)
			}
		})
	}
}

func TestRequestTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, inquiryPath, r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		// The signature must cover the exact integer representation sent in
		// the body; a formatting mismatch silently rejects the payment.
		assert.Equal(t, float64(770000), body["paymentAmount"])
		assert.Equal(t, md5Hex("D0001"+"ORD-7"+"770000"+"secret-key"), body["signature"])
		assert.Equal(t, "ORD-7", body["merchantOrderId"])
		assert.Equal(t, "https://tarjuman.org/api/duitku/callback", body["callbackUrl"])
		assert.Equal(t, "https://tarjuman.org/payment/success/ORD-7", body["returnUrl"])
		assert.Equal(t, float64(expiryPeriodMinutes), body["expiryPeriod"])

		customer, ok := body["customerDetail"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Siti", customer["firstName"])
		assert.Equal(t, "Rahma Putri", customer["lastName"])

		_ = json.NewEncoder(w).Encode(TransactionResponse{
			MerchantCode: "D0001",
			Reference:    "DK-REF-77",
			PaymentURL:   "https://sandbox.duitku.com/payment/DK-REF-77",
			VANumber:     "8808777",
			Amount:       "770000",
			StatusCode:   "00",
		})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	resp, err := client.RequestTransaction(context.Background(), TransactionRequest{
		OrderID:        "ORD-7",
		Amount:         770000,
		PaymentMethod:  "VC",
		ProductDetails: "Document translation (10 pages)",
		Email:          "siti@example.com",
		CustomerName:   "Siti Rahma Putri",
	})
	require.NoError(t, err)
	assert.Equal(t, "DK-REF-77", resp.Reference)
	assert.Equal(t, "https://sandbox.duitku.com/payment/DK-REF-77", resp.PaymentURL)
	assert.Equal(t, "8808777", resp.VANumber)
}

func TestRequestTransactionNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(TransactionResponse{StatusCode: "02", StatusMessage: "merchant not found"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.RequestTransaction(context.Background(), TransactionRequest{OrderID: "ORD-1", Amount: 1000})
	require.Error(t, err)

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, "02", gatewayErr.Code)
}

func TestParseCallback(t *testing.T) {
	form := url.Values{}
	form.Set("merchantCode", "D0001")
	form.Set("amount", "825000")
	form.Set("merchantOrderId", "ORD-42")
	form.Set("resultCode", "00")
	form.Set("reference", "DK-REF-1")
	form.Set("signature", "deadbeef")
	form.Set("settlementDate", "2026-03-15")

	params := ParseCallback(form)
	assert.Equal(t, "D0001", params.MerchantCode)
	assert.Equal(t, "825000", params.Amount)
	assert.Equal(t, "ORD-42", params.MerchantOrderID)
	assert.Equal(t, "DK-REF-1", params.Reference)
	assert.Equal(t, "2026-03-15", params.SettlementDate)
	assert.True(t, params.Paid())
	assert.True(t, params.HasRequiredFields())

	form.Set("resultCode", "02")
	assert.False(t, ParseCallback(form).Paid())
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		in        string
		wantFirst string
		wantLast  string
	}{
		{"Siti Rahma Putri", "Siti", "Rahma Putri"},
		{"Budi", "Budi", ""},
		{"  ", "Customer", ""},
	}

	for _, tt := range tests {
		first, last := splitName(tt.in)
		assert.Equal(t, tt.wantFirst, first)
		assert.Equal(t, tt.wantLast, last)
	}
}

package utils

import (
	"encoding/json"
	"io"
	"lms/config"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGatewayConfig(t *testing.T) {
	t.Helper()
	config.AppConfig = &config.Config{
		PayGateClientID:    "client-123",
		PayGateApiKey:      "api-key-123",
		PayGateChecksumKey: "test-checksum-key",
		PayGateReturnURL:   "http://localhost:3000/payment/success",
		PayGateCancelURL:   "http://localhost:3000/payment/cancel",
	}
}

func signedPayload(t *testing.T, orderCode, amount int64, reference, code string, success bool) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"code":    code,
		"desc":    "ok",
		"success": success,
		"data": map[string]interface{}{
			"orderCode": orderCode,
			"amount":    amount,
			"reference": reference,
			"code":      code,
			"desc":      "ok",
		},
		"signature": SignWebhookData(orderCode, amount, reference, code, "ok"),
	})
	require.NoError(t, err)
	return raw
}

func TestVerifyWebhookAcceptsSignedPayload(t *testing.T) {
	setupGatewayConfig(t)

	event, err := VerifyWebhook(signedPayload(t, 17123456789001, 500000, "FT-900", "00", true))
	require.NoError(t, err)
	assert.EqualValues(t, 17123456789001, event.OrderCode)
	assert.EqualValues(t, 500000, event.Amount)
	assert.Equal(t, "FT-900", event.Reference)
	assert.True(t, event.Success)
}

func TestVerifyWebhookNonSuccessCode(t *testing.T) {
	setupGatewayConfig(t)

	event, err := VerifyWebhook(signedPayload(t, 17123456789001, 500000, "FT-900", "01", true))
	require.NoError(t, err)
	assert.False(t, event.Success, "a non-00 data code is never a success")
}

func TestVerifyWebhookRejectsTampering(t *testing.T) {
	setupGatewayConfig(t)

	raw := signedPayload(t, 17123456789001, 500000, "FT-900", "00", true)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	payload["data"].(map[string]interface{})["amount"] = 1
	tampered, err := json.Marshal(payload)
	require.NoError(t, err)

	_, err = VerifyWebhook(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookRejectsMissingSignature(t *testing.T) {
	setupGatewayConfig(t)

	_, err := VerifyWebhook([]byte(`{"code":"00","success":true,"data":{"orderCode":1,"amount":1}}`))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = VerifyWebhook([]byte(`{{{`))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyWebhookRejectsForeignChecksumKey(t *testing.T) {
	setupGatewayConfig(t)
	raw := signedPayload(t, 17123456789001, 500000, "FT-900", "00", true)

	// Same payload verified under a different merchant key must fail
	config.AppConfig.PayGateChecksumKey = "some-other-key"
	_, err := VerifyWebhook(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCreatePaymentLink(t *testing.T) {
	setupGatewayConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "client-123", r.Header.Get("x-client-id"))
		assert.Equal(t, "api-key-123", r.Header.Get("x-api-key"))
		assert.Equal(t, "/v2/payment-requests", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.EqualValues(t, 500000, req["amount"])
		assert.NotEmpty(t, req["signature"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"code":"00","desc":"success","data":{"checkoutUrl":"https://pay.test/checkout/xyz"}}`)
	}))
	defer server.Close()
	config.AppConfig.PayGateBaseURL = server.URL

	url, err := CreatePaymentLink(CheckoutRequest{
		OrderCode:   17123456789001,
		Amount:      500000,
		Description: "Course purchase",
		BuyerEmail:  "buyer@test.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.test/checkout/xyz", url)
}

func TestCreatePaymentLinkGatewayRejection(t *testing.T) {
	setupGatewayConfig(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"code":"231","desc":"duplicate order code","data":{}}`)
	}))
	defer server.Close()
	config.AppConfig.PayGateBaseURL = server.URL

	_, err := CreatePaymentLink(CheckoutRequest{OrderCode: 1, Amount: 1000})
	assert.Error(t, err)
}

func TestCreatePaymentLinkGatewayUnreachable(t *testing.T) {
	setupGatewayConfig(t)
	config.AppConfig.PayGateBaseURL = "http://127.0.0.1:1"

	_, err := CreatePaymentLink(CheckoutRequest{OrderCode: 1, Amount: 1000})
	assert.Error(t, err)
}

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"lms/config"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrInvalidSignature is returned when a webhook payload fails checksum verification
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CheckoutRequest is the data sent to the gateway to open a payment link
type CheckoutRequest struct {
	OrderCode   int64
	Amount      int64
	Description string
	BuyerEmail  string
}

// WebhookEvent is the verified, decoded result of an inbound gateway webhook.
// Fields must only ever be read after VerifyWebhook has accepted the payload.
type WebhookEvent struct {
	OrderCode int64
	Amount    int64
	Reference string // gateway transaction id
	Success   bool
}

type webhookPayload struct {
	Code      string      `json:"code"`
	Desc      string      `json:"desc"`
	Success   bool        `json:"success"`
	Data      webhookData `json:"data"`
	Signature string      `json:"signature"`
}

type webhookData struct {
	OrderCode int64  `json:"orderCode"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Code      string `json:"code"`
	Desc      string `json:"desc"`
}

// CreatePaymentLink asks the gateway for a hosted checkout URL. The gateway
// treats orderCode as its idempotency key, so retrying with the same code is safe.
func CreatePaymentLink(req CheckoutRequest) (string, error) {
	cfg := config.AppConfig

	body := map[string]interface{}{
		"orderCode":   req.OrderCode,
		"amount":      req.Amount,
		"description": req.Description,
		"buyerEmail":  req.BuyerEmail,
		"returnUrl":   cfg.PayGateReturnURL,
		"cancelUrl":   cfg.PayGateCancelURL,
		"signature": signFields(map[string]string{
			"amount":      strconv.FormatInt(req.Amount, 10),
			"cancelUrl":   cfg.PayGateCancelURL,
			"description": req.Description,
			"orderCode":   strconv.FormatInt(req.OrderCode, 10),
			"returnUrl":   cfg.PayGateReturnURL,
		}),
	}

	client := resty.New()
	resp, err := client.R().
		SetHeader("x-client-id", cfg.PayGateClientID).
		SetHeader("x-api-key", cfg.PayGateApiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(cfg.PayGateBaseURL + "/v2/payment-requests")
	if err != nil {
		return "", fmt.Errorf("payment gateway unreachable: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("payment gateway error: %s", resp.String())
	}

	var linkResp struct {
		Code string `json:"code"`
		Desc string `json:"desc"`
		Data struct {
			CheckoutURL string `json:"checkoutUrl"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &linkResp); err != nil {
		return "", fmt.Errorf("failed to parse gateway response: %w", err)
	}
	if linkResp.Code != "00" || linkResp.Data.CheckoutURL == "" {
		return "", fmt.Errorf("gateway rejected payment request: %s", linkResp.Desc)
	}

	return linkResp.Data.CheckoutURL, nil
}

// VerifyWebhook checks the payload checksum and decodes it into a WebhookEvent.
// Nothing in the raw payload may be trusted before this returns without error.
func VerifyWebhook(raw []byte) (*WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrInvalidSignature
	}
	if payload.Signature == "" {
		return nil, ErrInvalidSignature
	}

	expected := signFields(map[string]string{
		"amount":    strconv.FormatInt(payload.Data.Amount, 10),
		"code":      payload.Data.Code,
		"desc":      payload.Data.Desc,
		"orderCode": strconv.FormatInt(payload.Data.OrderCode, 10),
		"reference": payload.Data.Reference,
	})
	if !hmac.Equal([]byte(expected), []byte(payload.Signature)) {
		return nil, ErrInvalidSignature
	}

	return &WebhookEvent{
		OrderCode: payload.Data.OrderCode,
		Amount:    payload.Data.Amount,
		Reference: payload.Data.Reference,
		Success:   payload.Success && payload.Data.Code == "00",
	}, nil
}

// SignWebhookData builds the signature for a webhook data section. Exposed for
// building payloads in tests and the sandbox simulator.
func SignWebhookData(orderCode, amount int64, reference, code, desc string) string {
	return signFields(map[string]string{
		"amount":    strconv.FormatInt(amount, 10),
		"code":      code,
		"desc":      desc,
		"orderCode": strconv.FormatInt(orderCode, 10),
		"reference": reference,
	})
}

// signFields canonicalizes fields as key=value pairs sorted by key, joined
// with &, and returns the hex HMAC-SHA256 under the merchant checksum key.
func signFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}

	mac := hmac.New(sha256.New, []byte(config.AppConfig.PayGateChecksumKey))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hex.EncodeToString(mac.Sum(nil))
}

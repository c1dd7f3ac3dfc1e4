// Package zalopay implements the C1 provider adapter for ZaloPay.
package zalopay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/providers"
)

const providerName = "ZALOPAY"

// Config holds the merchant credentials ZaloPay issues per app.
type Config struct {
	AppID      string
	Key1       string
	Key2       string
	Endpoint   string
	HTTPClient *http.Client
}

// Adapter implements providers.Adapter for ZaloPay.
type Adapter struct {
	cfg Config
}

// New builds a ZaloPay adapter. A zero-value HTTPClient is replaced with
// one carrying the 10s-connect/25s-request timeout budget the lifecycle
// engine's provider calls are expected to honor.
func New(cfg Config) *Adapter {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{
			Timeout: 25 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
			},
		}
	}
	return &Adapter{cfg: cfg}
}

func (a *Adapter) Name() string { return providerName }

type createRequest struct {
	AppID       string `json:"app_id"`
	AppTransID  string `json:"app_trans_id"`
	AppUser     string `json:"app_user"`
	Amount      int64  `json:"amount"`
	AppTime     int64  `json:"app_time"`
	EmbedData   string `json:"embed_data"`
	Item        string `json:"item"`
	Description string `json:"description"`
	CallbackURL string `json:"callback_url"`
	Mac         string `json:"mac"`
}

type createResponse struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
	OrderURL      string `json:"order_url"`
	ZPTransToken  string `json:"zp_trans_token"`
}

// buildAppTransID stamps the local date onto the caller's order code, per
// the ZaloPay wire convention app_trans_id = YYMMDD_<orderCode>. The date
// is derived at call time, not stored/recomputed later — a webhook that
// arrives after a day-boundary rollover still resolves correctly because
// lookups key off the persisted app_trans_id, never a freshly-derived one.
func buildAppTransID(now time.Time, orderCode string) string {
	return fmt.Sprintf("%s_%s", now.Format("060102"), orderCode)
}

func buildMac(key1, appID, appTransID, appUser string, amount, appTime int64, embedData, item string) string {
	raw := fmt.Sprintf("%s|%s|%s|%d|%d|%s|%s", appID, appTransID, appUser, amount, appTime, embedData, item)
	return hmacHex(key1, raw)
}

func hmacHex(key, message string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatePaymentLink builds and submits a ZaloPay order-creation request.
func (a *Adapter) CreatePaymentLink(ctx context.Context, in providers.CreateLinkInput) (*providers.CreateLinkResult, error) {
	now := time.Now()
	appTransID := buildAppTransID(now, in.OrderCode)
	appTime := now.UnixMilli()
	embedData := "{}"
	item := "[]"
	appUser := in.IdempotencyKey

	req := createRequest{
		AppID:       a.cfg.AppID,
		AppTransID:  appTransID,
		AppUser:     appUser,
		Amount:      in.AmountCents,
		AppTime:     appTime,
		EmbedData:   embedData,
		Item:        item,
		Description: fmt.Sprintf("Payment for order %s", in.OrderCode),
		CallbackURL: in.RedirectURL,
	}
	req.Mac = buildMac(a.cfg.Key1, req.AppID, req.AppTransID, req.AppUser, req.Amount, req.AppTime, req.EmbedData, req.Item)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal zalopay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build zalopay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read zalopay response: %w", err)
	}

	var out createResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if out.ReturnCode != 1 {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrProviderRejected, out.ReturnMessage)
	}

	return &providers.CreateLinkResult{
		PaymentURL:            out.OrderURL,
		ProviderTransactionID: appTransID,
	}, nil
}

// callbackEnvelope is ZaloPay's outer webhook shape: data is itself a
// JSON-encoded string that must be decoded a second time.
type callbackEnvelope struct {
	Data string `json:"data"`
	Mac  string `json:"mac"`
	Type int    `json:"type"`
}

type callbackData struct {
	AppTransID string `json:"app_trans_id"`
	AppID      int    `json:"app_id"`
	Amount     int64  `json:"amount"`
}

// HandleCallback verifies the MAC over the raw data string with key2,
// rejects any type other than 1, then decodes the nested JSON to recover
// app_trans_id as the provider transaction id.
func (a *Adapter) HandleCallback(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return &providers.CallbackOutcome{
			Success: false,
			ResponseBody: map[string]any{
				"return_code":    -1,
				"return_message": "Malformed payload",
			},
		}, nil
	}

	expectedMac := hmacHex(a.cfg.Key2, envelope.Data)
	if !hmac.Equal([]byte(expectedMac), []byte(envelope.Mac)) || envelope.Type != 1 {
		return &providers.CallbackOutcome{
			Success: false,
			ResponseBody: map[string]any{
				"return_code":    -1,
				"return_message": "Invalid mac",
			},
		}, nil
	}

	var inner callbackData
	if err := json.Unmarshal([]byte(envelope.Data), &inner); err != nil {
		return &providers.CallbackOutcome{
			Success: false,
			ResponseBody: map[string]any{
				"return_code":    -1,
				"return_message": "Malformed data",
			},
		}, nil
	}

	return &providers.CallbackOutcome{
		Success:               true,
		ProviderTransactionID: inner.AppTransID,
		ResponseBody: map[string]any{
			"return_code":    1,
			"return_message": "Success",
		},
	}, nil
}

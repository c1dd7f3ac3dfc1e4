// Package payos implements the C1 provider adapter for PayOS.
package payos

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
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	domainErrors "github.com/cassiomorais/paygate/internal/domain/errors"
	"github.com/cassiomorais/paygate/internal/providers"
)

const providerName = "PAYOS"

// Config holds the merchant credentials PayOS issues per client.
type Config struct {
	ClientID     string
	APIKey       string
	ChecksumKey  string
	Endpoint     string
	HTTPClient   *http.Client
}

// Adapter implements providers.Adapter for PayOS.
type Adapter struct {
	cfg Config
}

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

// buildPayOSOrderCode encodes the caller's order code into the numeric
// identifier PayOS requires. The encoding is lossy: the alphanumeric tail
// of orderCode is base-36 encoded into the low 8 digits, and the high
// digits carry the request date (YYYYMMDD). The original orderCode
// cannot be recovered from the result; the adapter instead relies on the
// provider-assigned paymentLinkId as the provider transaction id.
func buildPayOSOrderCode(now time.Time, orderCode string) (int64, error) {
	tail, err := base36Tail(orderCode, 5)
	if err != nil {
		return 0, err
	}
	dateComponent, err := strconv.ParseInt(now.Format("20060102"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("format date component: %w", err)
	}
	return dateComponent*1e8 + tail, nil
}

func base36Tail(orderCode string, n int) (int64, error) {
	var alnum strings.Builder
	for _, r := range orderCode {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum.WriteRune(r)
		}
	}
	s := alnum.String()
	if len(s) < n {
		return 0, fmt.Errorf("%w: orderCode has fewer than %d alphanumeric characters", domainErrors.ErrValidationFailed, n)
	}
	tail := s[len(s)-n:]
	val, err := strconv.ParseInt(tail, 36, 64)
	if err != nil {
		return 0, fmt.Errorf("base36 decode %q: %w", tail, err)
	}
	return val, nil
}

// sign computes the checksum PayOS expects: HMAC-SHA256, keyed by the
// merchant's checksum key, over the request fields sorted by key and
// joined as key=value&key=value.
func sign(checksumKey string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	raw := strings.Join(parts, "&")

	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

type createRequest struct {
	OrderCode   int64  `json:"orderCode"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
	CancelURL   string `json:"cancelUrl"`
	ReturnURL   string `json:"returnUrl"`
	Signature   string `json:"signature"`
}

type createResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		CheckoutURL   string `json:"checkoutUrl"`
		PaymentLinkID string `json:"paymentLinkId"`
	} `json:"data"`
}

// CreatePaymentLink builds and submits a PayOS payment-link request.
func (a *Adapter) CreatePaymentLink(ctx context.Context, in providers.CreateLinkInput) (*providers.CreateLinkResult, error) {
	numericCode, err := buildPayOSOrderCode(time.Now(), in.OrderCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}

	req := createRequest{
		OrderCode:   numericCode,
		Amount:      in.AmountCents,
		Description: fmt.Sprintf("Payment for order %s", in.OrderCode),
		CancelURL:   in.RedirectURL,
		ReturnURL:   in.RedirectURL,
	}
	req.Signature = sign(a.cfg.ChecksumKey, map[string]string{
		"amount":      strconv.FormatInt(req.Amount, 10),
		"cancelUrl":   req.CancelURL,
		"description": req.Description,
		"orderCode":   strconv.FormatInt(req.OrderCode, 10),
		"returnUrl":   req.ReturnURL,
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal payos request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payos request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", a.cfg.ClientID)
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)

	resp, err := a.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read payos response: %w", err)
	}

	var out createResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if out.Code != "00" {
		return nil, fmt.Errorf("%w: %s", domainErrors.ErrProviderRejected, out.Desc)
	}

	return &providers.CreateLinkResult{
		PaymentURL:            out.Data.CheckoutURL,
		ProviderTransactionID: out.Data.PaymentLinkID,
	}, nil
}

type callbackBody struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data struct {
		OrderCode     int64  `json:"orderCode"`
		PaymentLinkID string `json:"paymentLinkId"`
		Amount        int64  `json:"amount"`
	} `json:"data"`
	Signature string `json:"signature"`
}

// HandleCallback validates the callback signature and reports success iff
// the inner code is "00".
func (a *Adapter) HandleCallback(ctx context.Context, rawBody []byte) (*providers.CallbackOutcome, error) {
	var body callbackBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		return &providers.CallbackOutcome{
			Success: false,
			ResponseBody: map[string]any{
				"error":   -1,
				"message": "Malformed payload",
				"data":    nil,
			},
		}, nil
	}

	expected := sign(a.cfg.ChecksumKey, map[string]string{
		"orderCode":     strconv.FormatInt(body.Data.OrderCode, 10),
		"paymentLinkId": body.Data.PaymentLinkID,
		"amount":        strconv.FormatInt(body.Data.Amount, 10),
	})
	if !hmac.Equal([]byte(expected), []byte(body.Signature)) {
		return &providers.CallbackOutcome{
			Success: false,
			ResponseBody: map[string]any{
				"error":   -1,
				"message": "Invalid signature",
				"data":    nil,
			},
		}, nil
	}

	if body.Code != "00" {
		return &providers.CallbackOutcome{
			Success:               false,
			ProviderTransactionID: body.Data.PaymentLinkID,
			ResponseBody: map[string]any{
				"error":   -1,
				"message": body.Desc,
				"data":    nil,
			},
		}, nil
	}

	return &providers.CallbackOutcome{
		Success:               true,
		ProviderTransactionID: body.Data.PaymentLinkID,
		ResponseBody: map[string]any{
			"error":   0,
			"message": "Success",
			"data":    nil,
		},
	}, nil
}

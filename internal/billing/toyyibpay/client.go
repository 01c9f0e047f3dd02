// Package toyyibpay implements the client for the toyyibpay payment
// gateway. The gateway speaks form-encoded HTTP and answers createBill with
// a JSON array holding the bill code.
package toyyibpay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultAPIURL = "https://toyyibpay.com/index.php/api"

// Client calls the toyyibpay API.
type Client struct {
	secretKey    string
	categoryCode string
	apiURL       string
	httpClient   *http.Client
}

// NewClient creates a toyyibpay client with the account credentials.
func NewClient(secretKey, categoryCode string) *Client {
	return &Client{
		secretKey:    secretKey,
		categoryCode: categoryCode,
		apiURL:       defaultAPIURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateBill creates a fixed-price bill and returns its code and payment
// URL. Any transport failure or unparseable answer is returned as an error
// for the caller to surface as "billing unavailable".
func (c *Client) CreateBill(ctx context.Context, reqParams CreateBillRequest) (*CreateBillResponse, error) {
	const op = "toyyibpay.CreateBill"

	form := url.Values{}
	form.Set("userSecretKey", c.secretKey)
	form.Set("categoryCode", c.categoryCode)
	form.Set("billName", reqParams.BillName)
	form.Set("billDescription", reqParams.BillDescription)
	form.Set("billPriceSetting", "1")
	form.Set("billPayorInfo", "1")
	form.Set("billAmount", strconv.FormatInt(reqParams.AmountCents, 10))
	form.Set("billReturnUrl", reqParams.ReturnURL)
	form.Set("billCallbackUrl", reqParams.CallbackURL)
	form.Set("billExternalReferenceNo", reqParams.ExternalRef)
	form.Set("billTo", reqParams.PayorName)
	form.Set("billEmail", reqParams.PayorEmail)
	form.Set("billPhone", "0123456789")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/createBill",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var result []billCode
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(result) == 0 || result[0].BillCode == "" {
		return nil, fmt.Errorf("%s: no bill code in response", op)
	}

	return &CreateBillResponse{
		BillCode:   result[0].BillCode,
		PaymentURL: "https://toyyibpay.com/" + result[0].BillCode,
	}, nil
}

// Package payment gates the paid chat endpoint behind x402 pay-per-call
// validation. Payment proofs are verified against a facilitator service
// before the handler body runs, and settled on-chain after a successful
// response.
package payment

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Requirements describes one accepted payment scheme, returned to unpaid
// callers in the 402 body.
type Requirements struct {
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
	PayTo       string `json:"payTo"`
	Price       string `json:"price"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// Validator verifies and settles payment proofs.
type Validator interface {
	// Verify checks a payment proof from the X-Payment header. A non-nil
	// error means the request must not run.
	Verify(ctx context.Context, proof string) error
	// Settle submits the payment for on-chain settlement after the gated
	// handler succeeded.
	Settle(ctx context.Context, proof string) error
	// Requirements lists the accepted payment schemes.
	Requirements() []Requirements
}

// FacilitatorClient validates payments against a remote x402 facilitator.
type FacilitatorClient struct {
	http     *resty.Client
	requires Requirements
}

// NewFacilitatorClient returns a Validator backed by the facilitator at url.
func NewFacilitatorClient(url, payTo, network, price string) *FacilitatorClient {
	client := resty.New().SetBaseURL(url)
	return &FacilitatorClient{
		http: client,
		requires: Requirements{
			Scheme:      "exact",
			Network:     network,
			PayTo:       payTo,
			Price:       price,
			Description: "ClawCoach AI coaching interaction",
			MimeType:    "application/json",
		},
	}
}

type facilitatorRequest struct {
	PaymentPayload      string       `json:"paymentPayload"`
	PaymentRequirements Requirements `json:"paymentRequirements"`
}

type verifyResponse struct {
	IsValid bool   `json:"isValid"`
	Reason  string `json:"invalidReason"`
}

type settleResponse struct {
	Success bool   `json:"success"`
	TxHash  string `json:"transaction"`
	Reason  string `json:"errorReason"`
}

func (c *FacilitatorClient) Verify(ctx context.Context, proof string) error {
	var result verifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(facilitatorRequest{PaymentPayload: proof, PaymentRequirements: c.requires}).
		SetResult(&result).
		Post("/verify")
	if err != nil {
		return fmt.Errorf("facilitator verify call failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("facilitator verify returned %s", resp.Status())
	}
	if !result.IsValid {
		return fmt.Errorf("payment rejected: %s", result.Reason)
	}
	return nil
}

func (c *FacilitatorClient) Settle(ctx context.Context, proof string) error {
	var result settleResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(facilitatorRequest{PaymentPayload: proof, PaymentRequirements: c.requires}).
		SetResult(&result).
		Post("/settle")
	if err != nil {
		return fmt.Errorf("facilitator settle call failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("facilitator settle returned %s", resp.Status())
	}
	if !result.Success {
		return fmt.Errorf("settlement failed: %s", result.Reason)
	}
	return nil
}

func (c *FacilitatorClient) Requirements() []Requirements {
	return []Requirements{c.requires}
}

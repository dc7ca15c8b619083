// Package client is a Go API client for the POS HTTP surface, used by
// terminals and integration tooling.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/order"
	"restoran-pos/internal/payment"

	"github.com/gofiber/fiber/v2"
)

// APIError is a non-2xx response. Message is the server's "error" field.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	retry   RetryPolicy
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: 10 * time.Second,
		retry:   DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	return c.token
}

type loginResponse struct {
	Token string            `json:"token"`
	User  auth.UserResponse `json:"user"`
}

// Login authenticates and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*auth.UserResponse, error) {
	var out loginResponse
	err := c.do(ctx, NoRetry, fiber.MethodPost, "/api/auth/login", auth.LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out.User, nil
}

func (c *Client) Menu(ctx context.Context) ([]models.MenuItem, error) {
	var out []models.MenuItem
	if err := c.do(ctx, c.retry, fiber.MethodGet, "/api/menu", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder is attempted once; a lost response after commit would
// otherwise create a duplicate order.
func (c *Client) CreateOrder(ctx context.Context, req order.CreateOrderRequest) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, NoRetry, fiber.MethodPost, "/api/orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, c.retry, fiber.MethodGet, fmt.Sprintf("/api/orders/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrderStatus retries; a repeated transition that already applied
// comes back as 409 and is reported as such.
func (c *Client) UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus, notes string) (*models.Order, error) {
	var out models.Order
	body := order.UpdateStatusRequest{Status: status, Notes: notes}
	if err := c.do(ctx, c.retry, fiber.MethodPatch, fmt.Sprintf("/api/orders/%d/status", id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PayOrder retries under the client's policy. The server settles an order
// at most once, so when a retried attempt meets 409 the client looks up the
// receipt and returns it if the earlier attempt went through.
func (c *Client) PayOrder(ctx context.Context, id uint, req payment.PayRequest) (*payment.Result, error) {
	var out payment.Result
	retried := false
	err := c.doWith(ctx, c.retry, fiber.MethodPost, fmt.Sprintf("/api/orders/%d/pay", id), req, &out, func() { retried = true })
	if err == nil {
		return &out, nil
	}
	if !retried || StatusOf(err) != fiber.StatusConflict {
		return nil, err
	}

	rc, rerr := c.Receipt(ctx, id)
	if rerr != nil {
		return nil, err
	}
	return &payment.Result{Receipt: rc.Receipt, ReceiptData: rc.Data}, nil
}

type ReceiptResponse struct {
	Receipt models.Receipt      `json:"receipt"`
	Data    payment.ReceiptData `json:"data"`
}

func (c *Client) Receipt(ctx context.Context, orderID uint) (*ReceiptResponse, error) {
	var out ReceiptResponse
	if err := c.do(ctx, c.retry, fiber.MethodGet, fmt.Sprintf("/api/orders/%d/receipt", orderID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) StartShift(ctx context.Context, startingCash string) (*models.Shift, error) {
	var out models.Shift
	body := map[string]string{"starting_cash": startingCash}
	if err := c.do(ctx, NoRetry, fiber.MethodPost, "/api/shifts/start", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) EndShift(ctx context.Context, endingCash, notes string) (*models.Shift, error) {
	var out models.Shift
	body := map[string]string{"ending_cash": endingCash, "notes": notes}
	if err := c.do(ctx, NoRetry, fiber.MethodPost, "/api/shifts/end", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, policy RetryPolicy, method, path string, body, out any) error {
	return c.doWith(ctx, policy, method, path, body, out, nil)
}

// doWith runs up to policy.MaxAttempts attempts. onRetry is called before
// every attempt after the first.
func (c *Client) doWith(ctx context.Context, policy RetryPolicy, method, path string, body, out any, onRetry func()) error {
	var lastErr error
	for attempt := 1; attempt <= policy.attempts(); attempt++ {
		if attempt > 1 {
			if err := wait(ctx, policy.Delay(attempt-1)); err != nil {
				return lastErr
			}
			if onRetry != nil {
				onRetry()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		status, data, err := c.send(ctx, method, path, body)
		if err == nil && status >= 200 && status < 300 {
			if out == nil || len(data) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode %s %s: %w", method, path, err)
			}
			return nil
		}

		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
		} else {
			lastErr = apiError(status, data)
		}
		if !policy.Retryable(status) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, method, path string, body any) (int, []byte, error) {
	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	a.Timeout(timeout)

	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		a.JSON(body)
	}

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, err
	}

	status, data, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return status, data, nil
}

func apiError(status int, data []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: status, Message: msg}
}

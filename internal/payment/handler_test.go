package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/notify"
	"restoran-pos/internal/order"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(f *fixture, staffID uint) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{"error": err.Error()})
		},
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, staffID)
		return c.Next()
	})
	app.Post("/api/orders/:id/pay", PayOrderHandler(f.payments))
	app.Get("/api/orders/:id/receipt", GetReceiptHandler(f.payments))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func TestPayOrderHandler_CashRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	app := newApp(f, 5)
	o := f.readyOrder(t)
	path := fmt.Sprintf("/api/orders/%d/pay", o.ID)

	resp := postJSON(t, app, path, `{"method": "cash", "amount": "22.00", "tip_amount": 3, "tendered_amount": "30"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var res Result
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Equal(t, models.PaymentCash, res.Payment.Method)
	assert.Equal(t, uint(5), res.Payment.ProcessedBy)
	assertMoney(t, "22.00", res.Payment.Amount)
	assertMoney(t, "3.00", res.Payment.TipAmount)
	assertMoney(t, "30.00", res.Payment.TenderedAmount)
	assertMoney(t, "5.00", res.Payment.ChangeAmount)
	assertMoney(t, "22.00", res.Receipt.TotalAmount)
	assert.Equal(t, "RCP-20260301-0001", res.Receipt.ReceiptNumber)

	// money is written as quoted decimal strings, never floats
	var wire struct {
		Payment map[string]any `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(raw, &wire))
	assert.IsType(t, "", wire.Payment["amount"])
	assert.IsType(t, "", wire.Payment["change_amount"])

	resp = postJSON(t, app, path, `{"method": "cash", "amount": "22.00"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), order.ErrOrderAlreadyFinalized.Error())

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/orders/%d/receipt", o.ID), nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stored struct {
		Receipt models.Receipt `json:"receipt"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stored))
	assert.Equal(t, res.Receipt.ReceiptNumber, stored.Receipt.ReceiptNumber)
	assertMoney(t, "22.00", stored.Receipt.TotalAmount)

	assert.Equal(t, 1, f.pub.count(notify.EventPaymentProcessed))
}

func TestPayOrderHandler_MapsErrorsToStatus(t *testing.T) {
	f := newFixture(t, nil)
	app := newApp(f, 5)
	o := f.readyOrder(t)
	path := fmt.Sprintf("/api/orders/%d/pay", o.ID)

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		msg    string
	}{
		{"malformed decimal", path, `{"method": "cash", "amount": "twenty"}`, fiber.StatusBadRequest, "invalid request body"},
		{"bad order id", "/api/orders/abc/pay", `{"method": "cash", "amount": "22.00"}`, fiber.StatusBadRequest, "invalid order id"},
		{"amount mismatch", path, `{"method": "cash", "amount": "21.99"}`, fiber.StatusBadRequest, ErrAmountMismatch.Error()},
		{"sub-cent tip", path, `{"method": "cash", "amount": "22.00", "tip_amount": "0.005"}`, fiber.StatusBadRequest, "decimal places"},
		{"card without reference", path, `{"method": "card", "amount": "22.00"}`, fiber.StatusBadRequest, "reference"},
		{"missing order", "/api/orders/9999/pay", `{"method": "cash", "amount": "22.00"}`, fiber.StatusNotFound, order.ErrOrderNotFound.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, app, tc.path, tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, errorMessage(t, resp), tc.msg)
		})
	}

	var payments int64
	require.NoError(t, f.db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, payments)
	assert.Zero(t, f.pub.count(notify.EventPaymentProcessed))
}

func TestPayOrderHandler_UnverifiedCardIsRejected(t *testing.T) {
	verifier := &mockVerifier{}
	verifier.On("VerifyCard", "pi_declined", "22.00", "TRY").Return(ErrCardNotVerified)
	f := newFixture(t, verifier)
	app := newApp(f, 5)
	o := f.readyOrder(t)

	resp := postJSON(t, app, fmt.Sprintf("/api/orders/%d/pay", o.ID), `{"method": "card", "amount": "22.00", "reference": "pi_declined"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorMessage(t, resp), ErrCardNotVerified.Error())
	verifier.AssertExpectations(t)
}

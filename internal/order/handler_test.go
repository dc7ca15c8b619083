package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"restoran-pos/internal/apperr"
	"restoran-pos/internal/auth"
	"restoran-pos/internal/models"
	"restoran-pos/internal/notify"

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
	app.Post("/api/orders", CreateOrderHandler(f.svc))
	app.Patch("/api/orders/:id/status", UpdateOrderStatusHandler(f.svc))
	return app
}

func send(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
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

func TestCreateOrderHandler_DecodesDecimalAmounts(t *testing.T) {
	f := newFixture(t)
	app := newApp(f, 5)

	// quoted and bare decimals are both accepted
	resp := send(t, app, http.MethodPost, "/api/orders", `{
		"order_type": "takeaway",
		"items": [{"menu_item_id": 2, "quantity": 3, "modifiers": [{"name": "extra cheese", "price_adjustment": "1.50"}]}],
		"discount": {"type": "percentage", "value": 10},
		"send_to_kitchen": true
	}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var o models.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	assert.Equal(t, models.OrderStatusSentToKitchen, o.Status)
	assert.Equal(t, uint(5), o.ServerID)
	assertMoney(t, "31.50", o.Subtotal)
	assertMoney(t, "3.15", o.DiscountAmount)
	assertMoney(t, "2.84", o.TaxAmount)
	assertMoney(t, "31.19", o.TotalAmount)
	require.Len(t, o.Items, 1)
	require.Len(t, o.Items[0].Modifiers, 1)
	assertMoney(t, "1.50", o.Items[0].Modifiers[0].PriceAdjustment)

	assert.Len(t, f.pub.named(notify.EventOrderCreated), 1)
}

func TestCreateOrderHandler_MapsErrorsToStatus(t *testing.T) {
	f := newFixture(t)
	app := newApp(f, 5)

	cases := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"malformed body", `{"items": [`, fiber.StatusBadRequest, "invalid request body"},
		{"malformed decimal", `{"order_type": "bar", "items": [{"menu_item_id": 1, "quantity": 1, "modifiers": [{"name": "x", "price_adjustment": "abc"}]}]}`, fiber.StatusBadRequest, "invalid request body"},
		{"unknown menu item", `{"order_type": "bar", "items": [{"menu_item_id": 999, "quantity": 1}]}`, fiber.StatusBadRequest, ErrUnknownMenuItem.Error()},
		{"unavailable item", `{"order_type": "bar", "items": [{"menu_item_id": 3, "quantity": 1}]}`, fiber.StatusBadRequest, ErrMenuItemUnavailable.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := send(t, app, http.MethodPost, "/api/orders", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, errorMessage(t, resp), tc.msg)
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateOrderStatusHandler_MapsConflictsAndMissingOrders(t *testing.T) {
	f := newFixture(t)
	app := newApp(f, 5)

	resp := send(t, app, http.MethodPost, "/api/orders", `{"order_type": "bar", "items": [{"menu_item_id": 1, "quantity": 1}]}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	var o models.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))

	resp = send(t, app, http.MethodPatch, "/api/orders/"+itoa(o.ID)+"/status", `{"status": "served"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp = send(t, app, http.MethodPatch, "/api/orders/9999/status", `{"status": "cancelled"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ErrOrderNotFound.Error(), errorMessage(t, resp))

	resp = send(t, app, http.MethodPatch, "/api/orders/"+itoa(o.ID)+"/status", `{"status": "sent_to_kitchen"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	assert.Equal(t, models.OrderStatusSentToKitchen, o.Status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

package order

import "restoran-pos/internal/models"

// transitions lists the staff-driven moves. Paid is reached only through
// payment, see CanPay.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusOpen:          {models.OrderStatusSentToKitchen, models.OrderStatusCancelled},
	models.OrderStatusSentToKitchen: {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing:     {models.OrderStatusReady, models.OrderStatusCancelled},
	models.OrderStatusReady:         {models.OrderStatusServed, models.OrderStatusCancelled},
	models.OrderStatusServed:        {models.OrderStatusCancelled},
}

// payable lists the statuses from which payment is accepted.
var payable = []models.OrderStatus{models.OrderStatusReady, models.OrderStatusServed}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CanPay(status models.OrderStatus) bool {
	for _, s := range payable {
		if s == status {
			return true
		}
	}
	return false
}

// PayableStatuses is used by conditional updates that move an order to paid.
func PayableStatuses() []models.OrderStatus {
	return append([]models.OrderStatus(nil), payable...)
}

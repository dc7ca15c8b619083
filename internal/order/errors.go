package order

import "restoran-pos/internal/apperr"

var (
	ErrOrderNotFound         = apperr.New(apperr.KindNotFound, "order_not_found", "order not found")
	ErrInvalidTransition     = apperr.New(apperr.KindConflict, "invalid_transition", "invalid status transition")
	ErrOrderAlreadyFinalized = apperr.New(apperr.KindConflict, "order_already_finalized", "order is already paid or cancelled")
	ErrUnknownMenuItem       = apperr.New(apperr.KindValidation, "unknown_menu_item", "menu item not found")
	ErrMenuItemUnavailable   = apperr.New(apperr.KindValidation, "menu_item_unavailable", "menu item is not available")
)

package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/purchase-cart-service/internal/domain/order"
)

// idempotencyKeyHeader carries the optional client-supplied deduplication token.
const idempotencyKeyHeader = "Idempotency-Key"

type orderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrder handles POST /api/orders. Shape validation happens here, before
// the use case runs; domain and idempotency failures map to distinct client
// error statuses.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg, ok := validateOrderRequest(req); !ok {
		writeError(w, r, http.StatusBadRequest, msg)
		return
	}

	items := make([]order.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.ItemInput{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	o, err := h.orders.CreateOrder(r.Context(),
		order.CreateOrderRequest{Items: items},
		r.Header.Get(idempotencyKeyHeader),
	)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, encodeOrder(o))
}

// validateOrderRequest rejects malformed shapes: empty item list, blank
// product IDs, non-positive quantities.
func validateOrderRequest(req orderRequest) (string, bool) {
	if len(req.Items) == 0 {
		return "items required", false
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return "productId must not be blank", false
		}
		if it.Quantity < 1 {
			return "quantity must be greater than 0 for product " + it.ProductID, false
		}
	}
	return "", true
}

func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *order.ProductNotFoundError
		stock    *order.InsufficientStockError
		conflict *order.IdempotencyConflictError
	)
	switch {
	case errors.As(err, &notFound):
		writeError(w, r, http.StatusUnprocessableEntity, notFound.Error())
	case errors.As(err, &stock):
		writeError(w, r, http.StatusUnprocessableEntity, stock.Error())
	case errors.As(err, &conflict):
		writeError(w, r, http.StatusConflict, conflict.Error())
	default:
		zctx.From(r.Context()).Error("create order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func encodeOrder(o *order.Order) *jx.Encoder {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("totalPrice")
	e.RawStr(o.TotalPrice.String())
	e.FieldStart("totalVat")
	e.RawStr(o.TotalVAT.String())
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.RawStr(it.Price.String())
		e.FieldStart("vat")
		e.RawStr(it.VAT.String())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e
}

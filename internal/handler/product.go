package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/purchase-cart-service/internal/domain/money"
)

// ListProducts handles GET /api/products, returning the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	e := &jx.Encoder{}
	e.ArrStart()
	for _, p := range products {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(p.ID)
		e.FieldStart("name")
		e.Str(p.Name)
		e.FieldStart("unitPrice")
		e.RawStr(money.New(p.UnitPrice).String())
		e.FieldStart("vatRate")
		e.RawStr(p.VATRate.String())
		e.FieldStart("availableQuantity")
		e.Int(p.AvailableQuantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	writeJSON(w, r, http.StatusOK, e)
}

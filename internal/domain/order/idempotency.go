package order

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// hashRequest computes a SHA-256 digest over a canonical encoding of the
// request items. The encoding fixes field order and number formatting, so two
// retries carrying identical content always produce the same hash.
func hashRequest(items []ItemInput) string {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	sum := sha256.Sum256(e.Bytes())
	return hex.EncodeToString(sum[:])
}

// resolveExisting decides whether a keyed request replays a previously
// persisted order. It returns (nil, nil) when the request should proceed:
// either no key was supplied or the key is not bound yet. A bound key with a
// matching body hash replays the stored order. A bound key whose recorded
// hash differs is a conflict.
//
// A stored order with no recorded body hash is treated as a match regardless
// of the current body (lenient replay for orders persisted before hashing).
func (s *Service) resolveExisting(ctx context.Context, key, bodyHash string) (*Order, error) {
	if key == "" {
		return nil, nil
	}

	existing, err := s.orders.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "find order by idempotency key")
	}
	if existing == nil {
		return nil, nil
	}

	if existing.BodyHash != "" && existing.BodyHash != bodyHash {
		return nil, &IdempotencyConflictError{Key: key}
	}
	return existing, nil
}

// recoverLostRace handles a Save that lost a concurrent race on the
// idempotency key: the uniqueness constraint fired, so some order is bound to
// the key by now. Re-reading turns the loss into a replay or a conflict. If
// the binding is gone again (e.g. the winner rolled back), the original save
// error is surfaced.
func (s *Service) recoverLostRace(ctx context.Context, key, bodyHash string, saveErr error) (*Order, error) {
	existing, err := s.orders.FindByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "reread order after duplicate key")
	}
	if existing == nil {
		return nil, errors.Wrap(saveErr, "save order")
	}

	if existing.BodyHash != "" && existing.BodyHash != bodyHash {
		return nil, &IdempotencyConflictError{Key: key}
	}
	return existing, nil
}

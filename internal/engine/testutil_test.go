package engine

import (
	"context"
	"errors"
)

// fakeModel streams a fixed list of pieces.
type fakeModel struct {
	pieces   []string
	err      error
	received Input
	params   GenerateParameters
}

func (f *fakeModel) Stream(ctx context.Context, in Input, p GenerateParameters, emit func(Token) bool) error {
	f.received = in
	f.params = p
	for i, s := range f.pieces {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !emit(Token{ID: int32(i + 1), Piece: s}) {
			return nil
		}
	}
	return f.err
}

var errBoom = errors.New("boom")

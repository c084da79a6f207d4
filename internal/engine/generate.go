package engine

import (
	"context"
	"errors"
	"time"
)

// Generate runs one streaming generation on mc. didGenerate sees the whole
// token buffer after each token and decides whether decoding continues.
func Generate(ctx context.Context, mc ModelContext, in Input, p GenerateParameters, didGenerate func([]Token) Disposition) (Result, error) {
	if mc.Model == nil {
		return Result{}, errors.New("model context has no model")
	}
	tok := mc.Tokenizer
	if tok == nil {
		tok = PieceTokenizer{}
	}

	start := time.Now()
	var first time.Time
	var tokens []Token
	stopped := false
	err := mc.Model.Stream(ctx, in, p, func(t Token) bool {
		if first.IsZero() {
			first = time.Now()
		}
		tokens = append(tokens, t)
		if didGenerate != nil && didGenerate(tokens) == Stop {
			stopped = true
			return false
		}
		return true
	})
	end := time.Now()
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}

	res := Result{
		Output:  tok.Decode(tokens),
		Tokens:  tokens,
		Stopped: stopped,
	}
	if first.IsZero() {
		res.PromptTime = end.Sub(start)
	} else {
		res.PromptTime = first.Sub(start)
		res.GenerateTime = end.Sub(first)
	}
	if s := res.GenerateTime.Seconds(); s > 0 {
		res.TokensPerSecond = float64(len(tokens)) / s
	}
	return res, nil
}

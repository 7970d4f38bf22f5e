package tools

import (
	"context"
	"strings"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagents/chatmodel"
	"github.com/effective-security/toolagents/pkg/llmutils"
	"github.com/effective-security/toolagents/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// UnexpectedErrorPrefix is the text prefix of failures that are not tool Errors.
const UnexpectedErrorPrefix = "Unexpected error"

// Decode parses the tool input into a request.
// The input is cleaned from markdown and surrounding text, and the numbers
// and booleans are decoded leniently.
func Decode[I any](input string) (*I, error) {
	var req I
	js := llmutils.CleanJSON([]byte(strings.TrimSpace(input)))
	if len(js) == 0 || (js[0] != '{' && js[0] != '[') {
		return nil, errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	if err := ljson.Unmarshal(js, &req); err != nil {
		return nil, errors.WithMessage(chatmodel.ErrFailedUnmarshalInput, err.Error())
	}
	return &req, nil
}

// Render returns the text for the result of a Run.
// A tool Error renders as its message, any other error as Unexpected error.
// Render never returns an error for a failed Run.
func Render[O any](ctx context.Context, name string, out *O, err error) (string, error) {
	if err != nil {
		var te *Error
		if !errors.As(err, &te) {
			te = Wrap(KindInternal, err, UnexpectedErrorPrefix)
		}
		metricskey.StatsToolCallsFailed.IncrCounter(1, name, string(te.Kind))
		logger.ContextKV(ctx, xlog.DEBUG,
			"tool", name,
			"kind", te.Kind,
			"err", slices.StringUpto(te.Message, 256),
		)
		return te.Message, nil
	}
	if out == nil {
		return "", nil
	}
	return llmutils.Stringify(out), nil
}

// Invoke decodes input, runs the tool and renders the result.
// Only undecodable input is returned as error,
// wrapping chatmodel.ErrFailedUnmarshalInput.
func Invoke[I any, O any](ctx context.Context, t Tool[I, O], input string) (string, error) {
	req, err := Decode[I](input)
	if err != nil {
		metricskey.StatsToolInputParseErrors.IncrCounter(1, t.Name())
		return "", err
	}
	out, err := t.Run(ctx, req)
	return Render(ctx, t.Name(), out, err)
}

package logs

import "context"

// Script names the chunk a log record was emitted for.
type Script string

type scriptKeyType struct{}

var ScriptKey scriptKeyType

func WithScript(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, ScriptKey, Script(name))
}

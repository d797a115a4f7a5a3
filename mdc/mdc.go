// Package mdc provides a mapped diagnostic context: key/value pairs carried by
// a [context.Context] and injected into every record logged with that
// context.
//
// Values are stored copy-on-write, so a derived context never changes the
// values seen through its parent:
//
//	ctx = mdc.Put(ctx, "requestID", id)
//	ctx = mdc.Put(ctx, "user", user)
//
//	logger := slog.New(mdc.NewHandler(next))
//	logger.InfoContext(ctx, "request served") // carries mdc.requestID, mdc.user
//
// [Format] renders selected values for text output, for example the format
// "{requestID} {user}" yields "requestID=42 user=bob".
package mdc

import (
	"context"
	"maps"
)

type contextKey struct{}

// Put returns a copy of ctx whose diagnostic context maps key to value.
func Put(ctx context.Context, key string, value any) context.Context {
	values := make(map[string]any, len(fromContext(ctx))+1)
	maps.Copy(values, fromContext(ctx))
	values[key] = value

	return context.WithValue(ctx, contextKey{}, values)
}

// Get returns the value stored under key.
func Get(ctx context.Context, key string) (any, bool) {
	v, ok := fromContext(ctx)[key]

	return v, ok
}

// Remove returns a copy of ctx without key. If key is absent ctx is returned
// unchanged.
func Remove(ctx context.Context, key string) context.Context {
	current := fromContext(ctx)
	if _, ok := current[key]; !ok {
		return ctx
	}

	values := maps.Clone(current)
	delete(values, key)

	return context.WithValue(ctx, contextKey{}, values)
}

// Clear returns a copy of ctx with an empty diagnostic context.
func Clear(ctx context.Context) context.Context {
	if IsEmpty(ctx) {
		return ctx
	}

	return context.WithValue(ctx, contextKey{}, map[string]any(nil))
}

// All returns a copy of every value in the diagnostic context.
func All(ctx context.Context) map[string]any {
	return maps.Clone(fromContext(ctx))
}

// IsEmpty reports whether the diagnostic context holds no values.
func IsEmpty(ctx context.Context) bool {
	return len(fromContext(ctx)) == 0
}

func fromContext(ctx context.Context) map[string]any {
	if ctx == nil {
		return nil
	}

	values, _ := ctx.Value(contextKey{}).(map[string]any)

	return values
}

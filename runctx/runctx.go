// Package runctx carries per-run identity through context.Context, the way
// the teacher's context/request_id.go carries a request id, extended with
// the trace/org/user scope fields the engine's external interface requires.
package runctx

import (
	"context"

	"github.com/google/uuid"
)

type contextKey int

const (
	runIDKey contextKey = iota
	traceIDKey
	orgScopeKey
	userScopeKey
)

// NewRunID mints a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// Scope bundles the identity fields plan() accepts alongside a Request.
type Scope struct {
	TraceID   string
	OrgScope  string
	UserScope string
}

// WithRunID attaches a run id to ctx.
func WithRunID(parent context.Context, runID string) context.Context {
	return context.WithValue(parent, runIDKey, runID)
}

// RunIDFromContext returns the run id, or "" if none is set.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey).(string)
	return id
}

// WithScope attaches trace id and org/user scope to ctx in one step.
func WithScope(parent context.Context, s Scope) context.Context {
	ctx := context.WithValue(parent, traceIDKey, s.TraceID)
	ctx = context.WithValue(ctx, orgScopeKey, s.OrgScope)
	ctx = context.WithValue(ctx, userScopeKey, s.UserScope)
	return ctx
}

func TraceIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

func OrgScopeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(orgScopeKey).(string)
	return v
}

func UserScopeFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userScopeKey).(string)
	return v
}

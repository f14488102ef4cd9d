package utils

import (
	"context"

	"github.com/mmdatafocus/property_backend/appctx"
)

var (
	ContextKeyOrgId         = appctx.ContextKeyOrgId
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyForceResync   = appctx.ContextKeyForceResync
)

func GetOrgIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOrgId)
}

func SetOrgIdInContext(ctx context.Context, orgId string) context.Context {
	return appctx.Set(ctx, ContextKeyOrgId, orgId)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

// IsForceResync reports whether the request is an operator-triggered resync.
func IsForceResync(ctx context.Context) bool {
	v, _ := appctx.GetBool(ctx, ContextKeyForceResync)
	return v
}

func SetForceResyncInContext(ctx context.Context, force bool) context.Context {
	return appctx.Set(ctx, ContextKeyForceResync, force)
}

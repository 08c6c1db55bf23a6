package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/cashflow_dashboard/appctx"
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyCorrelationId, correlationId)
}

func GetActorFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, appctx.ContextKeyActor)
}

func SetActorInContext(ctx context.Context, actor string) context.Context {
	return appctx.Set(ctx, appctx.ContextKeyActor, actor)
}

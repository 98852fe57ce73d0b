package utils

import (
	"context"

	"github.com/agribenchmark/farmsync/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyFarmId        = appctx.ContextKeyFarmId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetFarmIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyFarmId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetFarmIdInContext(ctx context.Context, farmId string) context.Context {
	return appctx.Set(ctx, ContextKeyFarmId, farmId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

package eino

import "context"

type workflowKey struct{}
type providerKey struct{}

// WithWorkflowProvider 在 ctx 中标记当前工作流与模型提供方，供回调打标签
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	ctx = context.WithValue(ctx, workflowKey{}, workflow)
	return context.WithValue(ctx, providerKey{}, provider)
}

func WorkflowFromContext(ctx context.Context) string {
	v, _ := ctx.Value(workflowKey{}).(string)
	return v
}

func ProviderFromContext(ctx context.Context) string {
	v, _ := ctx.Value(providerKey{}).(string)
	return v
}

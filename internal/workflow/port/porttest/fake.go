// Package porttest 提供 GenerationClient 的可编排测试替身
package porttest

import (
	"context"
	"sync"

	"ultra-prompt-ai-api/internal/domain/entity"
	"ultra-prompt-ai-api/internal/workflow/port"
)

var _ port.GenerationClient = (*FakeClient)(nil)

// FakeClient 以函数字段编排各操作的返回，并记录调用
type FakeClient struct {
	QuestionsFn func(ctx context.Context, in entity.QuestionsInput) ([]entity.Question, error)
	GenerateFn  func(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationDocument, error)
	RefineFn    func(ctx context.Context, doc *entity.GenerationDocument, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error)
	RewriteFn   func(ctx context.Context, currentText, instruction string) (string, error)

	mu       sync.Mutex
	calls    map[string]int
	requests []entity.GenerationRequest
	images   [][]entity.ReferenceImage
}

func (f *FakeClient) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls 返回指定操作的调用次数
func (f *FakeClient) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// LastRequest 返回最近一次 GenerateDocument 的请求
func (f *FakeClient) LastRequest() entity.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return entity.GenerationRequest{}
	}
	return f.requests[len(f.requests)-1]
}

// LastRefineImages 返回最近一次 RefineDocument 收到的图片
func (f *FakeClient) LastRefineImages() []entity.ReferenceImage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.images) == 0 {
		return nil
	}
	return f.images[len(f.images)-1]
}

func (f *FakeClient) ProposeQuestions(ctx context.Context, in entity.QuestionsInput) ([]entity.Question, error) {
	f.record("questions")
	if f.QuestionsFn == nil {
		return nil, nil
	}
	return f.QuestionsFn(ctx, in)
}

func (f *FakeClient) GenerateDocument(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationDocument, error) {
	f.record("generate")
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.GenerateFn == nil {
		return &entity.GenerationDocument{}, nil
	}
	return f.GenerateFn(ctx, req)
}

func (f *FakeClient) RefineDocument(ctx context.Context, doc *entity.GenerationDocument, instruction string, images []entity.ReferenceImage) (*entity.GenerationDocument, error) {
	f.record("refine")
	f.mu.Lock()
	f.images = append(f.images, images)
	f.mu.Unlock()
	if f.RefineFn == nil {
		return doc, nil
	}
	return f.RefineFn(ctx, doc, instruction, images)
}

func (f *FakeClient) RewriteText(ctx context.Context, currentText, instruction string) (string, error) {
	f.record("rewrite")
	if f.RewriteFn == nil {
		return currentText, nil
	}
	return f.RewriteFn(ctx, currentText, instruction)
}

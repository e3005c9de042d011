package refine

import (
	"encoding/json"
	"maps"
	"slices"

	jsonpatch "github.com/evanphx/json-patch"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// Summary 两份文档之间的差异概要，仅用于展示与日志
type Summary struct {
	ChangedSections []string        `json:"changed_sections"`
	MergePatch      json.RawMessage `json:"merge_patch"`
}

// Summarize 计算 RFC 7386 merge patch 并列出变化的顶层分区
func Summarize(before, after *entity.GenerationDocument) (*Summary, error) {
	a, err := before.MarshalCanonical()
	if err != nil {
		return nil, err
	}
	b, err := after.MarshalCanonical()
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(patch, &top); err != nil {
		return nil, err
	}
	return &Summary{
		ChangedSections: slices.Sorted(maps.Keys(top)),
		MergePatch:      patch,
	}, nil
}

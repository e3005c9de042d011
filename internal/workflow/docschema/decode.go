package docschema

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"ultra-prompt-ai-api/internal/domain/entity"
	wfnode "ultra-prompt-ai-api/internal/workflow/node"
	apperrors "ultra-prompt-ai-api/pkg/errors"
	"ultra-prompt-ai-api/pkg/metrics"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	documentSchema  = DocumentSchema()
	questionsSchema = QuestionsSchema()
)

// DecodeDocument 解析并校验模型输出的文档
// ct 非空时要求该内容类型对应的分支至少包含一个条目
func DecodeDocument(text string, ct entity.ContentType) (doc *entity.GenerationDocument, err error) {
	defer countRejection("document", &err)

	raw, err := parseObject(text, documentSchema)
	if err != nil {
		return nil, err
	}

	doc = &entity.GenerationDocument{}
	if err := json.Unmarshal([]byte(raw), doc); err != nil {
		return nil, apperrors.SchemaError("document does not match expected types", err)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, apperrors.SchemaError("document failed field validation", err)
	}
	if err := doc.CheckSceneNumbering(); err != nil {
		return nil, apperrors.SchemaError("document scene numbering invalid", err)
	}
	if ct != "" && doc.ActiveBranchSize(ct) == 0 {
		return nil, apperrors.SchemaError("document is missing content for the requested format",
			fmt.Errorf("content_type %s has no entries", ct))
	}
	return doc, nil
}

// DecodeQuestions 解析并校验模型输出的问题批次
func DecodeQuestions(text string) (questions []entity.Question, err error) {
	defer countRejection("questions", &err)

	raw, err := parseObject(text, questionsSchema)
	if err != nil {
		return nil, err
	}

	var set entity.QuestionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, apperrors.SchemaError("questions do not match expected types", err)
	}
	if err := validate.Struct(&set); err != nil {
		return nil, apperrors.SchemaError("questions failed field validation", err)
	}
	if err := uniqueIDs(set.Questions); err != nil {
		return nil, err
	}
	return set.Questions, nil
}

func uniqueIDs(questions []entity.Question) error {
	seen := make(map[int]bool, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			return apperrors.SchemaError("questions failed field validation", fmt.Errorf("duplicate question id %d", q.ID))
		}
		seen[q.ID] = true
	}
	return nil
}

func countRejection(kind string, err *error) {
	if *err != nil {
		metrics.LLMSchemaRejections.WithLabelValues(kind).Inc()
	}
}

func parseObject(text string, schema map[string]any) (string, error) {
	raw := wfnode.ExtractJSONObject(text)
	if raw == "" {
		return "", apperrors.SchemaError("empty model output", nil)
	}
	if !gjson.Valid(raw) {
		return "", apperrors.SchemaError("model output is not valid JSON", nil)
	}
	if err := CheckRequired(gjson.Parse(raw), schema); err != nil {
		return "", apperrors.SchemaError("model output violates schema", err)
	}
	return raw, nil
}

// CheckRequired 按 schema 校验 JSON 的类型与必需字段
func CheckRequired(v gjson.Result, schema map[string]any) error {
	return checkNode(v, schema, "$")
}

func checkNode(v gjson.Result, schema map[string]any, path string) error {
	switch schema["type"] {
	case "object":
		if !v.IsObject() {
			return fmt.Errorf("%s: expected object", path)
		}
		if required, ok := schema["required"].([]any); ok {
			for _, r := range required {
				key, _ := r.(string)
				if child := v.Get(key); !child.Exists() || child.Type == gjson.Null {
					return fmt.Errorf("%s: missing required field %q", path, key)
				}
			}
		}
		props, _ := schema["properties"].(map[string]any)
		for _, name := range slices.Sorted(maps.Keys(props)) {
			child := v.Get(name)
			if !child.Exists() || child.Type == gjson.Null {
				continue
			}
			sub, _ := props[name].(map[string]any)
			if err := checkNode(child, sub, path+"."+name); err != nil {
				return err
			}
		}
	case "array":
		if !v.IsArray() {
			return fmt.Errorf("%s: expected array", path)
		}
		items, _ := schema["items"].(map[string]any)
		for i, el := range v.Array() {
			if err := checkNode(el, items, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case "string":
		if v.Type != gjson.String {
			return fmt.Errorf("%s: expected string", path)
		}
	case "integer":
		if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
			return fmt.Errorf("%s: expected integer", path)
		}
	}
	return nil
}

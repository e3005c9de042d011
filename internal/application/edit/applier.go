// Package edit 在当前文档上应用用户直接修改的单个字段
package edit

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/tidwall/gjson"

	"ultra-prompt-ai-api/internal/domain/entity"
)

// EntityKind 可编辑的实体类别
type EntityKind string

const (
	KindCharacter   EntityKind = "character"
	KindScene       EntityKind = "scene"
	KindVideoScene  EntityKind = "videoScene"
	KindSongSegment EntityKind = "songSegment"
)

// Valid 是否为已知类别
func (k EntityKind) Valid() bool {
	switch k {
	case KindCharacter, KindScene, KindVideoScene, KindSongSegment:
		return true
	}
	return false
}

// FieldRef 定位文档中某个实体的一个文本字段
// Field 使用线上字段名，嵌套以点分隔，如 voice_profile.pitch
type FieldRef struct {
	Kind  EntityKind `json:"entity_kind"`
	Index int        `json:"index"`
	Field string     `json:"field"`
}

func (r FieldRef) String() string {
	return fmt.Sprintf("%s[%d].%s", r.Kind, r.Index, r.Field)
}

// Edit 一次本地字段修改
type Edit struct {
	FieldRef
	Value string `json:"value"`
}

// Apply 返回新文档：目标实体替换为设置了字段的副本，其余实体与集合按引用复用。
// 文档为空、下标越界、字段不存在或不是字符串时返回 (doc, false)，不视为错误。
func Apply(doc *entity.GenerationDocument, e Edit) (*entity.GenerationDocument, bool) {
	if doc == nil || !validField(e.Field) {
		return doc, false
	}

	cp := doc.Clone()
	var ok bool
	switch e.Kind {
	case KindCharacter:
		cp.CharacterBible.Characters, ok = replaceAt(doc.CharacterBible.Characters, e.Index, e.Field, e.Value)
	case KindScene:
		cp.Storybook.Scenes, ok = replaceAt(doc.Storybook.Scenes, e.Index, e.Field, e.Value)
	case KindVideoScene:
		cp.Video.Scenes, ok = replaceAt(doc.Video.Scenes, e.Index, e.Field, e.Value)
	case KindSongSegment:
		cp.Song.LyricsStructure, ok = replaceAt(doc.Song.LyricsStructure, e.Index, e.Field, e.Value)
	}
	if !ok {
		return doc, false
	}
	return cp, true
}

// FieldValue 读取字段的当前文本
func FieldValue(doc *entity.GenerationDocument, ref FieldRef) (string, bool) {
	if doc == nil || !validField(ref.Field) {
		return "", false
	}
	var item any
	switch ref.Kind {
	case KindCharacter:
		item, _ = at(doc.CharacterBible.Characters, ref.Index)
	case KindScene:
		item, _ = at(doc.Storybook.Scenes, ref.Index)
	case KindVideoScene:
		item, _ = at(doc.Video.Scenes, ref.Index)
	case KindSongSegment:
		item, _ = at(doc.Song.LyricsStructure, ref.Index)
	}
	if item == nil {
		return "", false
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return "", false
	}
	r := gjson.GetBytes(raw, ref.Field)
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

func at[T any](items []T, i int) (any, bool) {
	if i < 0 || i >= len(items) {
		return nil, false
	}
	return items[i], true
}

// replaceAt 复制切片并只替换下标 i，原切片保持不变
func replaceAt[T any](items []T, i int, field, value string) ([]T, bool) {
	if i < 0 || i >= len(items) {
		return items, false
	}
	updated, ok := setField(items[i], field, value)
	if !ok {
		return items, false
	}
	out := slices.Clone(items)
	out[i] = updated
	return out, true
}

// setField 通过单条 JSON Patch replace 写入字符串字段
func setField[T any](v T, field, value string) (T, bool) {
	raw, err := json.Marshal(v)
	if err != nil {
		return v, false
	}
	if r := gjson.GetBytes(raw, field); r.Type != gjson.String {
		return v, false
	}

	op, err := json.Marshal([]map[string]any{{
		"op":    "replace",
		"path":  "/" + strings.ReplaceAll(field, ".", "/"),
		"value": value,
	}})
	if err != nil {
		return v, false
	}
	patch, err := jsonpatch.DecodePatch(op)
	if err != nil {
		return v, false
	}
	out, err := patch.Apply(raw)
	if err != nil {
		return v, false
	}

	var res T
	if err := json.Unmarshal(out, &res); err != nil {
		return v, false
	}
	return res, true
}

// validField 字段名只允许小写字母、数字、下划线与点
func validField(field string) bool {
	if field == "" || strings.HasPrefix(field, ".") || strings.HasSuffix(field, ".") || strings.Contains(field, "..") {
		return false
	}
	for _, c := range field {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}

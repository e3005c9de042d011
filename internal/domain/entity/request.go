package entity

import (
	"encoding/base64"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"
)

// ContentType 内容类型
type ContentType string

const (
	ContentTypeImage ContentType = "image"
	ContentTypeStory ContentType = "story"
	ContentTypeVideo ContentType = "video"
	ContentTypeSong  ContentType = "song"
)

// Valid 是否为已知内容类型
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeImage, ContentTypeStory, ContentTypeVideo, ContentTypeSong:
		return true
	}
	return false
}

// GenerationMode 生成模式
type GenerationMode string

const (
	GenerationModeStandard GenerationMode = "standard"
	GenerationModeUltra    GenerationMode = "ultra"
)

// ReferenceImage 参考图片
type ReferenceImage struct {
	MimeType   string `json:"mime_type"`
	Base64Data string `json:"base64_data"`
}

// NewReferenceImage 由原始字节构造参考图片
func NewReferenceImage(mimeType string, raw []byte) ReferenceImage {
	return ReferenceImage{
		MimeType:   mimeType,
		Base64Data: base64.StdEncoding.EncodeToString(raw),
	}
}

// Bytes 解码图片数据
func (r ReferenceImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(r.Base64Data)
}

// DataURI 返回 data URI 形式
func (r ReferenceImage) DataURI() string {
	return "data:" + r.MimeType + ";base64," + r.Base64Data
}

// GenerationOptions 生成选项
type GenerationOptions struct {
	ContentType     ContentType    `json:"content_type"`
	Style           string         `json:"style"`
	AspectRatio     string         `json:"aspect_ratio"`
	Language        string         `json:"language"`
	Dialect         string         `json:"dialect"`
	TransitionStyle string         `json:"transition_style"`
	StoryType       string         `json:"story_type"`
	VideoFormat     string         `json:"video_format"`
	VideoResolution string         `json:"video_resolution"`
	MusicGenre      string         `json:"music_genre"`
	Mode            GenerationMode `json:"mode"`
}

// WithDefaults 补齐未设置的选项
func (o GenerationOptions) WithDefaults() GenerationOptions {
	if !o.ContentType.Valid() {
		o.ContentType = ContentTypeImage
	}
	if o.Style == "" {
		o.Style = DefaultStyle(o.ContentType)
	}
	if o.AspectRatio == "" {
		o.AspectRatio = DefaultAspectRatio
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	if o.Dialect == "" {
		o.Dialect = DefaultDialect(o.Language)
	}
	if o.TransitionStyle == "" {
		o.TransitionStyle = DefaultTransition
	}
	if o.StoryType == "" {
		o.StoryType = DefaultStoryType
	}
	if o.VideoFormat == "" {
		o.VideoFormat = DefaultVideoFormat
	}
	if o.VideoResolution == "" {
		o.VideoResolution = DefaultResolution
	}
	if o.MusicGenre == "" {
		o.MusicGenre = DefaultMusicGenre
	}
	if o.Mode == "" {
		o.Mode = GenerationModeStandard
	}
	return o
}

// GenerationRequest 提交给生成客户端的完整请求，提交后不可变
type GenerationRequest struct {
	Concept           string            `json:"concept"`
	ReferenceImages   []ReferenceImage  `json:"reference_images"`
	AnsweredQuestions map[string]string `json:"answered_questions"`
	GenerationOptions
}

// Clone 深拷贝请求，使调用方后续修改不影响已提交的请求
func (r GenerationRequest) Clone() GenerationRequest {
	r.ReferenceImages = slices.Clone(r.ReferenceImages)
	r.AnsweredQuestions = maps.Clone(r.AnsweredQuestions)
	return r
}

// HasInput 概念或参考图至少提供其一
func HasInput(concept string, images []ReferenceImage) bool {
	return strings.TrimSpace(concept) != "" || len(images) > 0
}

// ConceptTooLong 概念是否超过字符上限，limit<=0 表示不限制
func ConceptTooLong(concept string, limit int) bool {
	return limit > 0 && utf8.RuneCountInString(concept) > limit
}

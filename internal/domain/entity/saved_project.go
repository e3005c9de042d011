package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// UntitledProject 文档没有标题时使用的项目名
	UntitledProject = "مشروع بدون عنوان"
	// ConceptExcerptLimit 项目摘要保留的概念字符数
	ConceptExcerptLimit = 500

	browserIDPrefix   = "ULTRA-"
	browserIDLength   = 9
	browserIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// OwnerFingerprint 项目归属指纹（IP + 浏览器标识）
type OwnerFingerprint struct {
	OwnerIP   string `json:"owner_ip"`
	BrowserID string `json:"browser_id"`
}

// SavedProject 持久化的项目
type SavedProject struct {
	ID             string              `json:"id"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Title          string              `json:"title"`
	ConceptExcerpt string              `json:"concept_excerpt"`
	ContentType    ContentType         `json:"content_type"`
	Style          string              `json:"style"`
	Document       *GenerationDocument `json:"document"`
	Owner          OwnerFingerprint    `json:"owner"`
	CharacterNames []string            `json:"character_names"`
}

// NewSavedProject 由一次成功生成构造项目记录
func NewSavedProject(id string, req GenerationRequest, doc *GenerationDocument, owner OwnerFingerprint, now time.Time) *SavedProject {
	title := strings.TrimSpace(doc.Title(req.ContentType))
	if title == "" {
		title = UntitledProject
	}
	return &SavedProject{
		ID:             id,
		CreatedAt:      now,
		UpdatedAt:      now,
		Title:          title,
		ConceptExcerpt: Excerpt(req.Concept, ConceptExcerptLimit),
		ContentType:    req.ContentType,
		Style:          req.Style,
		Document:       doc,
		Owner:          owner,
		CharacterNames: doc.CharacterNames(),
	}
}

// Excerpt 按字符截断
func Excerpt(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// NewBrowserID 生成浏览器标识，格式 ULTRA-XXXXXXXXX
func NewBrowserID() string {
	raw := uuid.New()
	var b strings.Builder
	b.WriteString(browserIDPrefix)
	for i := 0; i < browserIDLength; i++ {
		b.WriteByte(browserIDAlphabet[int(raw[i])%len(browserIDAlphabet)])
	}
	return b.String()
}

// ValidBrowserID 校验浏览器标识格式
func ValidBrowserID(id string) bool {
	rest, ok := strings.CutPrefix(id, browserIDPrefix)
	if !ok || len(rest) != browserIDLength {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if !strings.ContainsRune(browserIDAlphabet, rune(rest[i])) {
			return false
		}
	}
	return true
}

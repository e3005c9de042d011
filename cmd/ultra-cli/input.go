package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/domain/entity"
)

// answerSheet questions 命令输出、generate 命令读取的作答文件
type answerSheet struct {
	Concept     string        `yaml:"concept"`
	ContentType string        `yaml:"content_type"`
	Questions   []sheetAnswer `yaml:"questions"`
}

type sheetAnswer struct {
	ID         int      `yaml:"id"`
	Question   string   `yaml:"question"`
	ContextKey string   `yaml:"context_key"`
	Options    []string `yaml:"options,omitempty,flow"`
	Answer     string   `yaml:"answer"`
}

func newAnswerSheet(concept string, ct entity.ContentType, questions []entity.Question) answerSheet {
	sheet := answerSheet{Concept: concept, ContentType: string(ct)}
	for _, q := range questions {
		sheet.Questions = append(sheet.Questions, sheetAnswer{
			ID:         q.ID,
			Question:   q.QuestionAr,
			ContextKey: q.ContextKey,
			Options:    q.Options,
		})
	}
	return sheet
}

func writeAnswerSheet(w io.Writer, sheet answerSheet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sheet); err != nil {
		return err
	}
	return enc.Close()
}

func readAnswerSheet(path string) (answerSheet, error) {
	var sheet answerSheet
	raw, err := os.ReadFile(path)
	if err != nil {
		return sheet, err
	}
	if err := yaml.Unmarshal(raw, &sheet); err != nil {
		return sheet, fmt.Errorf("parse %s: %w", path, err)
	}
	return sheet, nil
}

// questions 还原作答文件中的问题批次
func (s answerSheet) questions() []entity.Question {
	out := make([]entity.Question, 0, len(s.Questions))
	for _, a := range s.Questions {
		out = append(out, entity.Question{
			ID:         a.ID,
			QuestionAr: a.Question,
			ContextKey: a.ContextKey,
			Options:    a.Options,
		})
	}
	return out
}

// answers 按问题 id 取出已填写的作答，空白作答留给占位答案
func (s answerSheet) answers() map[int]string {
	out := make(map[int]string)
	for _, a := range s.Questions {
		if v := strings.TrimSpace(a.Answer); v != "" {
			out[a.ID] = v
		}
	}
	return out
}

// applySheet 用作答文件补全输入：概念为空时取文件中的概念，
// 未显式指定 --type 时沿用文件中的内容类型
func applySheet(in session.Inputs, sheet answerSheet, typeFlagSet bool) (session.Inputs, error) {
	if in.Concept == "" {
		in.Concept = sheet.Concept
	}
	if !typeFlagSet && sheet.ContentType != "" {
		ct := entity.ContentType(sheet.ContentType)
		if !ct.Valid() {
			return in, fmt.Errorf("answer sheet has unknown content type %q", sheet.ContentType)
		}
		in.Options.ContentType = ct
	}
	return in, nil
}

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// loadImages 读取参考图文件，按内容嗅探 MIME
func loadImages(paths []string) ([]entity.ReferenceImage, error) {
	out := make([]entity.ReferenceImage, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		mime := http.DetectContentType(raw)
		if !allowedImageTypes[mime] {
			return nil, fmt.Errorf("%s: unsupported image type %s", p, mime)
		}
		out = append(out, entity.NewReferenceImage(mime, raw))
	}
	return out, nil
}

func readConcept(concept, file string) (string, error) {
	if file == "" {
		return concept, nil
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

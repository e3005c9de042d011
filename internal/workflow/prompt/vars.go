package prompt

import (
	"strings"

	"ultra-prompt-ai-api/internal/domain/entity"
	wfnode "ultra-prompt-ai-api/internal/workflow/node"
)

// QuestionsVars 问题阶段的模板变量
func QuestionsVars(in entity.QuestionsInput) map[string]any {
	opts := entity.GenerationOptions{ContentType: in.ContentType, Style: in.Style, Mode: in.Mode}.WithDefaults()
	return map[string]any{
		"concept":      strings.TrimSpace(in.Concept),
		"content_type": string(opts.ContentType),
		"style":        opts.Style,
		"mode":         string(opts.Mode),
		"image_count":  len(in.Images),
	}
}

func DocumentVars(req entity.GenerationRequest) map[string]any {
	opts := req.GenerationOptions.WithDefaults()
	return map[string]any{
		"concept":          strings.TrimSpace(req.Concept),
		"content_type":     string(opts.ContentType),
		"story_type":       opts.StoryType,
		"style":            opts.Style,
		"aspect_ratio":     opts.AspectRatio,
		"language":         opts.Language,
		"dialect":          opts.Dialect,
		"transition_style": opts.TransitionStyle,
		"video_format":     opts.VideoFormat,
		"video_resolution": opts.VideoResolution,
		"music_genre":      opts.MusicGenre,
		"mode":             string(opts.Mode),
		"image_count":      len(req.ReferenceImages),
		"answers_block":    wfnode.BuildAnswersBlock(req.AnsweredQuestions),
	}
}

func RefineVars(doc *entity.GenerationDocument, instruction string, imageCount int) (map[string]any, error) {
	raw, err := doc.MarshalCanonical()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"instruction":   strings.TrimSpace(instruction),
		"image_count":   imageCount,
		"document_json": string(raw),
	}, nil
}

func RewriteVars(currentText, instruction string) map[string]any {
	return map[string]any{
		"current_text": currentText,
		"instruction":  strings.TrimSpace(instruction),
	}
}

// Package docschema 定义模型输出的 JSON Schema 并对输出做结构校验
package docschema

// 说明：schema 采用 OpenAPI 子集（type/properties/items/required），
// 同时用于 OpenAI response_format 与 Gemini ResponseSchema。

func str() map[string]any { return map[string]any{"type": "string"} }

func obj(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		req := make([]any, len(required))
		for i, r := range required {
			req[i] = r
		}
		s["required"] = req
	}
	return s
}

func arr(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func stringProps(names ...string) map[string]any {
	props := make(map[string]any, len(names))
	for _, n := range names {
		props[n] = str()
	}
	return props
}

func technicalSpecs() map[string]any {
	return obj(stringProps("camera", "lens", "lighting", "aspect_ratio"))
}

// DocumentSchema 生成文档的 schema，四个分支均为必需
func DocumentSchema() map[string]any {
	voice := obj(stringProps("gender", "age_group", "tone_description_ar", "tone_description_en", "pitch", "speaking_style"),
		"gender", "age_group", "tone_description_en")

	characterProps := stringProps("name", "role", "details_ar", "details_en", "character_prompt", "color_palette",
		"style_guide", "clothing_rules", "visual_identity")
	characterProps["voice_profile"] = voice
	character := obj(characterProps, "name", "details_ar", "details_en", "character_prompt", "voice_profile")

	location := obj(stringProps("name_ar", "name_en", "description", "location_prompt"),
		"name_ar", "name_en", "location_prompt")

	sceneProps := stringProps("description_ar", "description_en", "visual_prompt_ar", "visual_prompt_en",
		"animation_prompt_ar", "animation_prompt_en", "narration_ar", "narration_en", "transition_ar", "transition_en")
	sceneProps["scene_number"] = map[string]any{"type": "integer"}
	sceneProps["technical_specs"] = technicalSpecs()
	scene := obj(sceneProps, "scene_number", "visual_prompt_en", "visual_prompt_ar", "animation_prompt_en",
		"animation_prompt_ar", "narration_ar", "narration_en", "transition_ar")

	videoSceneProps := stringProps("action_description_ar", "action_description_en", "visual_prompt_ar",
		"visual_prompt_en", "animation_prompt_ar", "animation_prompt_en", "narration_ar", "narration_en",
		"transition_ar", "transition_en", "sound_style")
	videoSceneProps["scene_number"] = map[string]any{"type": "integer"}
	videoSceneProps["technical_specs"] = technicalSpecs()
	videoSceneProps["tracks"] = obj(stringProps("vfx", "motion_type", "sound_direction_ar", "sound_direction_en"))
	videoScene := obj(videoSceneProps, "scene_number", "narration_ar", "narration_en", "transition_ar",
		"animation_prompt_ar", "animation_prompt_en", "sound_style")

	segmentProps := stringProps("section_type", "lyrics_ar", "lyrics_en_transliteration", "musical_cues",
		"visual_description_ar", "visual_description_en", "visual_prompt_ar", "visual_prompt_en",
		"animation_prompt_ar", "animation_prompt_en", "transition_ar", "transition_en")
	segmentProps["technical_specs"] = technicalSpecs()
	segment := obj(segmentProps, "section_type", "lyrics_ar", "musical_cues", "visual_description_ar",
		"visual_description_en", "visual_prompt_ar", "visual_prompt_en", "animation_prompt_ar",
		"animation_prompt_en", "transition_ar", "technical_specs")

	storyProps := stringProps("story_title", "voiceover_tone_ar", "voiceover_tone_en")
	storyProps["scenes"] = arr(scene)

	videoProps := stringProps("video_title", "voiceover_tone_ar", "voiceover_tone_en", "full_video_prompt_ar", "full_video_prompt_en")
	videoProps["scenes"] = arr(videoScene)

	songProps := stringProps("song_title", "genre_description", "music_generation_prompt", "consistent_audio_vibe_ar",
		"consistent_audio_vibe_en", "bpm", "instruments")
	songProps["lyrics_structure"] = arr(segment)

	return obj(map[string]any{
		"analysis": obj(stringProps("concept_summary", "art_direction", "technical_breakdown"),
			"concept_summary", "art_direction", "technical_breakdown"),
		"character_bible": obj(map[string]any{"characters": arr(character)}, "characters"),
		"location_assets": arr(location),
		"storybook":       obj(storyProps, "scenes", "voiceover_tone_ar", "voiceover_tone_en"),
		"video": obj(videoProps, "scenes", "voiceover_tone_ar", "voiceover_tone_en",
			"full_video_prompt_ar", "full_video_prompt_en"),
		"song": obj(songProps, "song_title", "music_generation_prompt", "lyrics_structure",
			"consistent_audio_vibe_ar", "consistent_audio_vibe_en"),
	}, "analysis", "character_bible", "storybook", "video", "song")
}

// QuestionsSchema 澄清问题批次的 schema
func QuestionsSchema() map[string]any {
	question := obj(map[string]any{
		"id":          map[string]any{"type": "integer"},
		"question_ar": str(),
		"context_key": str(),
		"options":     arr(str()),
	}, "id", "question_ar", "context_key", "options")
	return obj(map[string]any{"questions": arr(question)}, "questions")
}

// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"fmt"
)

// Analysis 概念分析
type Analysis struct {
	ConceptSummary     string `json:"concept_summary"`
	ArtDirection       string `json:"art_direction"`
	TechnicalBreakdown string `json:"technical_breakdown"`
}

// VoiceProfile 角色声音档案
type VoiceProfile struct {
	Gender            string `json:"gender"`
	AgeGroup          string `json:"age_group"`
	ToneDescriptionAr string `json:"tone_description_ar"`
	ToneDescriptionEn string `json:"tone_description_en"`
	Pitch             string `json:"pitch"`
	SpeakingStyle     string `json:"speaking_style"`
}

// CharacterProfile 角色档案
// CharacterPrompt 为该角色的主提示词，视觉或声音字段经精修改变后须一并重写
type CharacterProfile struct {
	Name            string       `json:"name" validate:"required"`
	Role            string       `json:"role"`
	DetailsAr       string       `json:"details_ar"`
	DetailsEn       string       `json:"details_en"`
	CharacterPrompt string       `json:"character_prompt"`
	ColorPalette    string       `json:"color_palette"`
	StyleGuide      string       `json:"style_guide"`
	ClothingRules   string       `json:"clothing_rules"`
	VisualIdentity  string       `json:"visual_identity"`
	VoiceProfile    VoiceProfile `json:"voice_profile"`
}

// CharacterBible 角色设定集
type CharacterBible struct {
	Characters []CharacterProfile `json:"characters" validate:"dive"`
}

// LocationAsset 场景地点资产
type LocationAsset struct {
	NameAr         string `json:"name_ar"`
	NameEn         string `json:"name_en"`
	Description    string `json:"description"`
	LocationPrompt string `json:"location_prompt"`
}

// TechnicalSpecs 镜头技术参数
type TechnicalSpecs struct {
	Camera      string `json:"camera"`
	Lens        string `json:"lens"`
	Lighting    string `json:"lighting"`
	AspectRatio string `json:"aspect_ratio"`
}

// Scene 故事/视频时间线上的一个分镜，SceneNumber 从 1 开始
type Scene struct {
	SceneNumber       int            `json:"scene_number" validate:"gte=1"`
	DescriptionAr     string         `json:"description_ar"`
	DescriptionEn     string         `json:"description_en"`
	VisualPromptAr    string         `json:"visual_prompt_ar"`
	VisualPromptEn    string         `json:"visual_prompt_en"`
	AnimationPromptAr string         `json:"animation_prompt_ar"`
	AnimationPromptEn string         `json:"animation_prompt_en"`
	NarrationAr       string         `json:"narration_ar"`
	NarrationEn       string         `json:"narration_en"`
	TransitionAr      string         `json:"transition_ar"`
	TransitionEn      string         `json:"transition_en"`
	TechnicalSpecs    TechnicalSpecs `json:"technical_specs"`
}

// VideoTracks 视频分镜的附加轨道
type VideoTracks struct {
	VFX              string `json:"vfx"`
	MotionType       string `json:"motion_type"`
	SoundDirectionAr string `json:"sound_direction_ar"`
	SoundDirectionEn string `json:"sound_direction_en"`
}

// VideoScene 视频分镜
type VideoScene struct {
	Scene
	ActionDescriptionAr string      `json:"action_description_ar"`
	ActionDescriptionEn string      `json:"action_description_en"`
	SoundStyle          string      `json:"sound_style"`
	Tracks              VideoTracks `json:"tracks"`
}

// SongSegment 歌曲段落
type SongSegment struct {
	SectionType             string         `json:"section_type"`
	LyricsAr                string         `json:"lyrics_ar"`
	LyricsEnTransliteration string         `json:"lyrics_en_transliteration"`
	MusicalCues             string         `json:"musical_cues"`
	VisualDescriptionAr     string         `json:"visual_description_ar"`
	VisualDescriptionEn     string         `json:"visual_description_en"`
	VisualPromptAr          string         `json:"visual_prompt_ar"`
	VisualPromptEn          string         `json:"visual_prompt_en"`
	AnimationPromptAr       string         `json:"animation_prompt_ar"`
	AnimationPromptEn       string         `json:"animation_prompt_en"`
	TransitionAr            string         `json:"transition_ar"`
	TransitionEn            string         `json:"transition_en"`
	TechnicalSpecs          TechnicalSpecs `json:"technical_specs"`
}

// Storybook 故事分支
type Storybook struct {
	StoryTitle      string  `json:"story_title"`
	VoiceoverToneAr string  `json:"voiceover_tone_ar"`
	VoiceoverToneEn string  `json:"voiceover_tone_en"`
	Scenes          []Scene `json:"scenes" validate:"dive"`
}

// Video 视频分支
type Video struct {
	VideoTitle        string       `json:"video_title"`
	VoiceoverToneAr   string       `json:"voiceover_tone_ar"`
	VoiceoverToneEn   string       `json:"voiceover_tone_en"`
	FullVideoPromptAr string       `json:"full_video_prompt_ar"`
	FullVideoPromptEn string       `json:"full_video_prompt_en"`
	Scenes            []VideoScene `json:"scenes" validate:"dive"`
}

// Song 歌曲分支
type Song struct {
	SongTitle             string        `json:"song_title"`
	GenreDescription      string        `json:"genre_description"`
	MusicGenerationPrompt string        `json:"music_generation_prompt"`
	ConsistentAudioVibeAr string        `json:"consistent_audio_vibe_ar"`
	ConsistentAudioVibeEn string        `json:"consistent_audio_vibe_en"`
	BPM                   string        `json:"bpm"`
	Instruments           string        `json:"instruments"`
	LyricsStructure       []SongSegment `json:"lyrics_structure" validate:"dive"`
}

// GenerationDocument 一次完整的生成结果
// 四个分支始终存在，由请求的内容类型决定哪个分支处于激活状态。
// 文档按值替换，持有者不得原地修改其中的切片元素。
type GenerationDocument struct {
	Analysis       Analysis        `json:"analysis"`
	CharacterBible CharacterBible  `json:"character_bible"`
	LocationAssets []LocationAsset `json:"location_assets"`
	Storybook      Storybook       `json:"storybook"`
	Video          Video           `json:"video"`
	Song           Song            `json:"song"`
}

// Clone 返回浅拷贝：顶层结构独立，切片底层数组共享
func (d *GenerationDocument) Clone() *GenerationDocument {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// MarshalCanonical 序列化为稳定的 JSON，nil 切片输出为空数组
func (d *GenerationDocument) MarshalCanonical() ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("document is nil")
	}
	cp := d.Clone()
	if cp.CharacterBible.Characters == nil {
		cp.CharacterBible.Characters = []CharacterProfile{}
	}
	if cp.LocationAssets == nil {
		cp.LocationAssets = []LocationAsset{}
	}
	if cp.Storybook.Scenes == nil {
		cp.Storybook.Scenes = []Scene{}
	}
	if cp.Video.Scenes == nil {
		cp.Video.Scenes = []VideoScene{}
	}
	if cp.Song.LyricsStructure == nil {
		cp.Song.LyricsStructure = []SongSegment{}
	}
	return json.Marshal(cp)
}

// CheckSceneNumbering 校验故事与视频分镜编号唯一且连续覆盖 1..len
func (d *GenerationDocument) CheckSceneNumbering() error {
	story := make([]int, len(d.Storybook.Scenes))
	for i, s := range d.Storybook.Scenes {
		story[i] = s.SceneNumber
	}
	if err := checkContiguous(story); err != nil {
		return fmt.Errorf("storybook.scenes: %w", err)
	}

	video := make([]int, len(d.Video.Scenes))
	for i, s := range d.Video.Scenes {
		video[i] = s.SceneNumber
	}
	if err := checkContiguous(video); err != nil {
		return fmt.Errorf("video.scenes: %w", err)
	}
	return nil
}

func checkContiguous(numbers []int) error {
	seen := make(map[int]bool, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > len(numbers) {
			return fmt.Errorf("scene_number %d outside 1..%d", n, len(numbers))
		}
		if seen[n] {
			return fmt.Errorf("duplicate scene_number %d", n)
		}
		seen[n] = true
	}
	return nil
}

// ActiveBranchSize 返回内容类型对应分支的条目数
func (d *GenerationDocument) ActiveBranchSize(ct ContentType) int {
	switch ct {
	case ContentTypeVideo:
		return len(d.Video.Scenes)
	case ContentTypeSong:
		return len(d.Song.LyricsStructure)
	default:
		return len(d.Storybook.Scenes)
	}
}

// Title 按内容类型选取标题
func (d *GenerationDocument) Title(ct ContentType) string {
	if d == nil {
		return ""
	}
	switch ct {
	case ContentTypeVideo:
		return d.Video.VideoTitle
	case ContentTypeSong:
		return d.Song.SongTitle
	default:
		return d.Storybook.StoryTitle
	}
}

// CharacterNames 返回角色名列表
func (d *GenerationDocument) CharacterNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.CharacterBible.Characters))
	for _, c := range d.CharacterBible.Characters {
		names = append(names, c.Name)
	}
	return names
}

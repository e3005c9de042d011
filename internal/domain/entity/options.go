package entity

import "slices"

// 默认选项
const (
	DefaultAspectRatio = "16:9"
	DefaultLanguage    = "ar"
	DefaultTransition  = "Dynamic"
	DefaultResolution  = "4K"
	DefaultStoryType   = "narrative"
	DefaultVideoFormat = "standard"
	DefaultMusicGenre  = "Automatic"
)

// Option 选项条目
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Catalog 全部可选项
type Catalog struct {
	Modes            []Option                 `json:"modes"`
	Languages        []Option                 `json:"languages"`
	Dialects         map[string][]Option      `json:"dialects"`
	AspectRatios     []Option                 `json:"aspect_ratios"`
	VideoResolutions []Option                 `json:"video_resolutions"`
	TransitionStyles []Option                 `json:"transition_styles"`
	StoryTypes       []Option                 `json:"story_types"`
	VideoFormats     []Option                 `json:"video_formats"`
	MusicGenres      []Option                 `json:"music_genres"`
	Styles           map[ContentType][]Option `json:"styles"`
}

var catalog = Catalog{
	Modes: []Option{
		{ID: string(GenerationModeStandard), Label: "Standard Analysis"},
		{ID: string(GenerationModeUltra), Label: "Ultra Expert"},
	},
	Languages: []Option{
		{ID: "ar", Label: "Arabic"},
		{ID: "en", Label: "English"},
	},
	Dialects: map[string][]Option{
		"ar": {
			{ID: "msa", Label: "Modern Standard Arabic"},
			{ID: "egyptian", Label: "Egyptian"},
			{ID: "saudi", Label: "Saudi"},
			{ID: "levantine", Label: "Levantine"},
			{ID: "gulf", Label: "Gulf General"},
			{ID: "moroccan", Label: "Moroccan"},
			{ID: "iraqi", Label: "Iraqi"},
		},
		"en": {
			{ID: "us", Label: "American English"},
			{ID: "uk", Label: "British English"},
		},
	},
	AspectRatios: []Option{
		{ID: "16:9", Label: "Cinematic landscape"},
		{ID: "9:16", Label: "Vertical reels"},
		{ID: "1:1", Label: "Square"},
		{ID: "4:3", Label: "Classic TV"},
		{ID: "2.39:1", Label: "Epic widescreen"},
	},
	VideoResolutions: []Option{
		{ID: "1080p", Label: "Full HD"},
		{ID: "4K", Label: "Ultra HD"},
		{ID: "8K", Label: "8K"},
	},
	TransitionStyles: []Option{
		{ID: "Dynamic", Label: "AI decides"},
		{ID: "Fast Cut", Label: "Fast Cut"},
		{ID: "Slow Fade", Label: "Slow Fade"},
		{ID: "Dissolve", Label: "Dissolve"},
		{ID: "Wipe", Label: "Wipe"},
		{ID: "Whip Pan", Label: "Whip Pan"},
	},
	StoryTypes: []Option{
		{ID: "narrative", Label: "Narrative"},
		{ID: "dialogue", Label: "Dialogue"},
	},
	VideoFormats: []Option{
		{ID: "standard", Label: "Standard video"},
		{ID: "reels", Label: "Reels / Shorts"},
	},
	MusicGenres: optionsOf("Automatic", "Pop", "Cinematic Orchestral", "Hip Hop / Rap", "Electronic / EDM",
		"Acoustic Folk", "Arabic Pop", "Khaleeji", "Shaabi", "Lo-Fi", "Rock"),
	Styles: map[ContentType][]Option{
		ContentTypeImage: optionsOf("Realistic", "3D Pixar", "Cinematic", "Hyperrealistic", "Anime",
			"Digital Art", "Oil Painting", "Cyberpunk", "Vintage", "Minimalist"),
		ContentTypeStory: optionsOf("3D Pixar", "Realistic Drama", "Watercolor", "Comic Book", "Dark Fantasy",
			"Vector Art", "Sketch", "Paper Cutout"),
		ContentTypeVideo: optionsOf("Realistic", "3D Pixar", "Hollywood Cinematic", "Documentary", "3D Animation",
			"Retro VHS", "Drone Footage", "GoPro Action", "Slow Motion"),
		ContentTypeSong: optionsOf("3D Pixar", "Cinematic Music Video", "Neon/Cyberpunk", "Anime Style",
			"Abstract Visuals", "Vintage/Retro", "Realistic Performance"),
	},
}

func optionsOf(ids ...string) []Option {
	out := make([]Option, len(ids))
	for i, id := range ids {
		out[i] = Option{ID: id, Label: id}
	}
	return out
}

// Options 返回选项目录
func Options() Catalog {
	return catalog
}

// DefaultStyle 内容类型的默认风格为目录中的第一项
func DefaultStyle(ct ContentType) string {
	styles := catalog.Styles[ct]
	if len(styles) == 0 {
		return ""
	}
	return styles[0].ID
}

// DefaultDialect 语言的默认方言
func DefaultDialect(language string) string {
	dialects := catalog.Dialects[language]
	if len(dialects) == 0 {
		return ""
	}
	return dialects[0].ID
}

// KnownStyle 风格是否属于该内容类型
func KnownStyle(ct ContentType, style string) bool {
	return slices.ContainsFunc(catalog.Styles[ct], func(o Option) bool { return o.ID == style })
}

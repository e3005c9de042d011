package refine

const (
	narrationPresetAr = "أعد صياغة هذا النص السردي ليكون أكثر احترافية، جاذبية، ومناسباً لقصة سينمائية. حافظ على المعنى الأساسي."
	narrationPresetEn = "Rewrite this narration script to be more engaging, professional, and cinematic. Keep the core meaning."
)

// NarrationPreset 旁白一键改写的预设指令，非 ar 语言统一用英文
func NarrationPreset(language string) string {
	if language == "ar" {
		return narrationPresetAr
	}
	return narrationPresetEn
}

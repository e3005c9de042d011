package refine

import (
	"fmt"
	"strings"
)

const (
	tweakLow  = 35
	tweakHigh = 65

	// NeutralTweakInstruction 所有滑块都处于中间区间时的指令
	NeutralTweakInstruction = "Reset visual adjustments to balanced/neutral style."
)

// VisualTweaks 视觉微调滑块，取值 0..100，50 为中性
type VisualTweaks struct {
	Brightness int `json:"brightness" binding:"min=0,max=100"`
	Contrast   int `json:"contrast" binding:"min=0,max=100"`
	Warmth     int `json:"warmth" binding:"min=0,max=100"`
	Saturation int `json:"saturation" binding:"min=0,max=100"`
}

// NeutralTweaks 全部居中
func NeutralTweaks() VisualTweaks {
	return VisualTweaks{Brightness: 50, Contrast: 50, Warmth: 50, Saturation: 50}
}

type tweakTerms struct {
	low, high string
}

var (
	brightnessTerms = tweakTerms{"Low Key / Dim Lighting", "High Key / Bright Exposure"}
	contrastTerms   = tweakTerms{"Soft / Low Contrast / Hazy", "High Contrast / Dramatic Shadows"}
	warmthTerms     = tweakTerms{"Cool / Blue Tones / Cold Atmosphere", "Warm / Golden Tones / Cozy Atmosphere"}
	saturationTerms = tweakTerms{"Desaturated / Muted Colors / Bleach Bypass", "Vivid / Saturated Colors / Vibrant"}
)

func (t tweakTerms) pick(v int) string {
	switch {
	case v < tweakLow:
		return t.low
	case v > tweakHigh:
		return t.high
	default:
		return ""
	}
}

// TweakInstruction 将滑块位置转换为整体精修指令
func TweakInstruction(t VisualTweaks) string {
	terms := make([]string, 0, 4)
	for _, term := range []string{
		brightnessTerms.pick(t.Brightness),
		contrastTerms.pick(t.Contrast),
		warmthTerms.pick(t.Warmth),
		saturationTerms.pick(t.Saturation),
	} {
		if term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return NeutralTweakInstruction
	}
	return fmt.Sprintf("Apply these visual adjustments to all generated prompts: %s.", strings.Join(terms, ", "))
}

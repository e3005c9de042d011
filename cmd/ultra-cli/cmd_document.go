package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ultra-prompt-ai-api/internal/application/edit"
	"ultra-prompt-ai-api/internal/application/refine"
	"ultra-prompt-ai-api/internal/application/session"
)

var (
	refineInstruction string
	refineImages      []string
	refineTweaks      refine.VisualTweaks
	refineUseTweaks   bool

	rewriteText        string
	rewriteInstruction string
	rewriteProject     string
	rewriteKind        string
	rewriteIndex       int
	rewriteField       string
)

var refineCmd = &cobra.Command{
	Use:   "refine <project-id>",
	Short: "Refine a saved project with an instruction or visual tweaks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sm, err := openProject(cmd, args[0])
		if err != nil {
			return err
		}
		before := sm.Snapshot().Document

		if refineUseTweaks {
			err = sm.RefineWithTweaks(ctx, refineTweaks)
		} else {
			images, lerr := loadImages(refineImages)
			if lerr != nil {
				return lerr
			}
			err = sm.Refine(ctx, refineInstruction, images)
		}
		if err != nil {
			return err
		}

		after := sm.Snapshot().Document
		if s, err := refine.Summarize(before, after); err == nil {
			fmt.Fprintf(os.Stderr, "changed sections: %s\n", strings.Join(s.ChangedSections, ", "))
		}
		return writeJSON(os.Stdout, after)
	},
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite a piece of text, or one field of a saved project",
	Long: `Without --project, rewrites --text according to --instruction and prints the result.

With --project, rewrites one text field of the saved document, e.g.
  ultra rewrite --project <id> --kind scene --index 0 --field narration_en --instruction "more drama"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if rewriteProject == "" {
			out, err := toolkit.Refine.RewriteText(ctx, rewriteText, rewriteInstruction)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, out)
			return err
		}

		sm, err := openProject(cmd, rewriteProject)
		if err != nil {
			return err
		}
		ref := edit.FieldRef{Kind: edit.EntityKind(rewriteKind), Index: rewriteIndex, Field: rewriteField}
		out, err := sm.Rewrite(ctx, ref, rewriteInstruction)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(os.Stdout, out)
		return err
	},
}

func init() {
	refineCmd.Flags().StringVarP(&refineInstruction, "instruction", "m", "", "refinement instruction")
	refineCmd.Flags().StringSliceVarP(&refineImages, "image", "i", nil, "reference image for this refinement (repeatable)")
	refineCmd.Flags().BoolVar(&refineUseTweaks, "tweaks", false, "refine with the visual tweak sliders instead of an instruction")
	refineCmd.Flags().IntVar(&refineTweaks.Brightness, "brightness", 50, "brightness 0-100 (dim to bright)")
	refineCmd.Flags().IntVar(&refineTweaks.Contrast, "contrast", 50, "contrast 0-100 (soft to dramatic)")
	refineCmd.Flags().IntVar(&refineTweaks.Warmth, "warmth", 50, "warmth 0-100 (cool to warm)")
	refineCmd.Flags().IntVar(&refineTweaks.Saturation, "saturation", 50, "saturation 0-100 (muted to vivid)")

	rewriteCmd.Flags().StringVar(&rewriteText, "text", "", "text to rewrite")
	rewriteCmd.Flags().StringVarP(&rewriteInstruction, "instruction", "m", "", "rewrite instruction")
	rewriteCmd.Flags().StringVar(&rewriteProject, "project", "", "saved project id")
	rewriteCmd.Flags().StringVar(&rewriteKind, "kind", string(edit.KindScene), "entity kind: character, scene, videoScene, songSegment")
	rewriteCmd.Flags().IntVar(&rewriteIndex, "index", 0, "entity index")
	rewriteCmd.Flags().StringVar(&rewriteField, "field", "", "field name, e.g. narration_en")
}

// openProject 新建会话并载入已保存项目
func openProject(cmd *cobra.Command, id string) (*session.Machine, error) {
	p, err := toolkit.Projects.Get(cmd.Context(), id, localOwner)
	if err != nil {
		return nil, err
	}
	sm := toolkit.Sessions.Create(localOwner)
	if err := sm.LoadProject(cmd.Context(), p); err != nil {
		return nil, err
	}
	return sm, nil
}

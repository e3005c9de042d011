package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ultra-prompt-ai-api/internal/application/session"
	"ultra-prompt-ai-api/internal/domain/entity"
)

// inputFlags questions 与 generate 共用的输入参数
type inputFlags struct {
	concept     string
	conceptFile string
	images      []string
	contentType string
	style       string
	aspectRatio string
	language    string
	ultra       bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.concept, "concept", "c", "", "concept text")
	cmd.Flags().StringVar(&f.conceptFile, "concept-file", "", "read the concept from a file")
	cmd.Flags().StringSliceVarP(&f.images, "image", "i", nil, "reference image file (repeatable)")
	cmd.Flags().StringVarP(&f.contentType, "type", "t", "image", "content type: image, story, video, song")
	cmd.Flags().StringVar(&f.style, "style", "", "visual style id")
	cmd.Flags().StringVar(&f.aspectRatio, "aspect-ratio", "", "aspect ratio, e.g. 16:9")
	cmd.Flags().StringVar(&f.language, "language", "", "output language")
	cmd.Flags().BoolVar(&f.ultra, "ultra", false, "use the ultra generation mode")
}

func (f *inputFlags) inputs() (session.Inputs, error) {
	concept, err := readConcept(f.concept, f.conceptFile)
	if err != nil {
		return session.Inputs{}, err
	}
	images, err := loadImages(f.images)
	if err != nil {
		return session.Inputs{}, err
	}
	ct := entity.ContentType(f.contentType)
	if !ct.Valid() {
		return session.Inputs{}, fmt.Errorf("unknown content type %q", f.contentType)
	}
	opts := entity.GenerationOptions{
		ContentType: ct,
		Style:       f.style,
		AspectRatio: f.aspectRatio,
		Language:    f.language,
	}
	if f.ultra {
		opts.Mode = entity.GenerationModeUltra
	}
	return session.Inputs{Concept: concept, Images: images, Options: opts}, nil
}

var (
	questionsFlags inputFlags
	questionsOut   string

	generateFlags   inputFlags
	generateAnswers string
	generateOut     string
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Propose clarifying questions and write an answer sheet",
	Long: `Asks the model for clarifying questions about the concept and writes them
as a YAML answer sheet. Fill in the "answer" fields and pass the file to
"ultra generate --answers".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := questionsFlags.inputs()
		if err != nil {
			return err
		}
		sm := toolkit.Sessions.Create(localOwner)
		if err := sm.SetInputs(in); err != nil {
			return err
		}
		if err := sm.ProposeQuestions(cmd.Context()); err != nil {
			return err
		}

		snap := sm.Snapshot()
		return withOutput(questionsOut, func(w io.Writer) error {
			return writeAnswerSheet(w, newAnswerSheet(snap.Inputs.Concept, snap.Inputs.Options.ContentType, snap.Questions))
		})
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a production document and save it as a project",
	Long: `Runs the full flow: clarifying questions, answers, generation.

With --answers (a sheet written by "ultra questions") the sheet's questions,
answers, concept and content type are reused and no new questions are
requested; blank answers are left to the model. --type overrides the
sheet's content type. The document is printed as JSON and saved to the local
project database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := generateFlags.inputs()
		if err != nil {
			return err
		}
		var sheet answerSheet
		if generateAnswers != "" {
			if sheet, err = readAnswerSheet(generateAnswers); err != nil {
				return err
			}
			if in, err = applySheet(in, sheet, cmd.Flags().Changed("type")); err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		sm := toolkit.Sessions.Create(localOwner)
		if err := sm.SetInputs(in); err != nil {
			return err
		}
		if len(sheet.Questions) > 0 {
			if err := sm.UseQuestions(ctx, sheet.questions()); err != nil {
				return err
			}
		} else if err := sm.ProposeQuestions(ctx); err != nil {
			return err
		}
		if err := sm.SetAnswers(sheet.answers()); err != nil {
			return err
		}
		if err := sm.Generate(ctx); err != nil {
			return err
		}

		snap := sm.Snapshot()
		fmt.Fprintf(os.Stderr, "saved project %s\n", snap.ProjectID)
		return withOutput(generateOut, func(w io.Writer) error {
			return writeJSON(w, snap.Document)
		})
	},
}

func init() {
	questionsFlags.register(questionsCmd)
	questionsCmd.Flags().StringVarP(&questionsOut, "out", "o", "", "write the answer sheet to a file instead of stdout")

	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateAnswers, "answers", "a", "", "YAML answer sheet")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "write the document to a file instead of stdout")
}

// withOutput 写到文件或 stdout
func withOutput(path string, fn func(w io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

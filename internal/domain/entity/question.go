package entity

// Question 澄清问题，Options 为空时表示自由作答
type Question struct {
	ID         int      `json:"id" validate:"gte=0"`
	QuestionAr string   `json:"question_ar" validate:"required"`
	ContextKey string   `json:"context_key"`
	Options    []string `json:"options"`
}

// QuestionSet 问题批次
type QuestionSet struct {
	Questions []Question `json:"questions" validate:"dive"`
}

// QuestionsInput 问题阶段的输入
type QuestionsInput struct {
	Concept     string           `json:"concept"`
	Images      []ReferenceImage `json:"images"`
	ContentType ContentType      `json:"content_type"`
	Style       string           `json:"style"`
	Mode        GenerationMode   `json:"mode,omitempty"`
}

package types

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to records that leave optional fields empty.
const (
	DefaultPaperSet   = "unknown"
	DefaultMarks      = 1
	DefaultSourceFile = "unknown"
	DefaultSourceType = "textbook"
	DefaultDifficulty = 1
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into an ErrInvalidRecord.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(parts, "; "))
}

// QuestionRecord is a question as produced by upstream document processing.
type QuestionRecord struct {
	QuestionText string   `json:"question_text" yaml:"question_text" parquet:"question_text"`
	Options      []string `json:"options,omitempty" yaml:"options" parquet:"options,list"`
	Answer       string   `json:"answer,omitempty" yaml:"answer" parquet:"answer"`
	Year         int      `json:"year,omitempty" yaml:"year" parquet:"year" validate:"gte=0"`
	PaperSet     string   `json:"paper_set,omitempty" yaml:"paper_set" parquet:"paper_set"`
	Difficulty   int      `json:"difficulty,omitempty" yaml:"difficulty" parquet:"difficulty" validate:"gte=0,lte=5"`
	Marks        int      `json:"marks,omitempty" yaml:"marks" parquet:"marks" validate:"gte=0"`
	Subject      string   `json:"subject" yaml:"subject" parquet:"subject" validate:"required"`
	Topic        string   `json:"topic" yaml:"topic" parquet:"topic" validate:"required"`
}

// Normalize trims identifying fields and fills defaults.
func (r *QuestionRecord) Normalize() {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Topic = strings.TrimSpace(r.Topic)
	if r.PaperSet == "" {
		r.PaperSet = DefaultPaperSet
	}
	if r.Marks == 0 {
		r.Marks = DefaultMarks
	}
	if r.Options == nil {
		r.Options = []string{}
	}
}

// Validate normalizes the record and checks its fields.
func (r *QuestionRecord) Validate() error {
	r.Normalize()
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

// EmbeddingText is the text embedded for a question: the question text
// followed by each option on its own line.
func (r *QuestionRecord) EmbeddingText() string {
	if len(r.Options) == 0 {
		return r.QuestionText
	}
	return r.QuestionText + "\n" + strings.Join(r.Options, "\n")
}

// ChunkRecord is a text passage as produced by upstream chunking. Embedding
// is optional; when present it is stored as-is.
type ChunkRecord struct {
	Text       string    `json:"text" yaml:"text" parquet:"text"`
	Subject    string    `json:"subject" yaml:"subject" parquet:"subject" validate:"required"`
	Topic      string    `json:"topic" yaml:"topic" parquet:"topic" validate:"required"`
	SourceFile string    `json:"source_file,omitempty" yaml:"source_file" parquet:"source_file"`
	SourceType string    `json:"source_type,omitempty" yaml:"source_type" parquet:"source_type"`
	PageNumber int       `json:"page_number,omitempty" yaml:"page_number" parquet:"page_number" validate:"gte=0"`
	ChunkIndex int       `json:"chunk_index,omitempty" yaml:"chunk_index" parquet:"chunk_index" validate:"gte=0"`
	Embedding  []float32 `json:"embedding,omitempty" yaml:"embedding" parquet:"embedding,list"`
}

// Normalize trims identifying fields and fills defaults.
func (r *ChunkRecord) Normalize() {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Topic = strings.TrimSpace(r.Topic)
	if r.SourceFile == "" {
		r.SourceFile = DefaultSourceFile
	}
	if r.SourceType == "" {
		r.SourceType = DefaultSourceType
	}
}

// Validate normalizes the record and checks its fields.
func (r *ChunkRecord) Validate() error {
	r.Normalize()
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

// AttemptRecord identifies a question and the outcome of one attempt at it.
// The question is addressed either by uuid or by its text within a topic.
type AttemptRecord struct {
	QuestionID   string `json:"question_id,omitempty" validate:"required_without=QuestionText"`
	QuestionText string `json:"question_text,omitempty" validate:"required_without=QuestionID"`
	Subject      string `json:"subject,omitempty" validate:"required_with=QuestionText"`
	Topic        string `json:"topic,omitempty" validate:"required_with=QuestionText"`
	Correct      bool   `json:"correct"`
}

// Validate checks that the record addresses a question.
func (r *AttemptRecord) Validate() error {
	r.Subject = strings.TrimSpace(r.Subject)
	r.Topic = strings.TrimSpace(r.Topic)
	r.QuestionID = strings.TrimSpace(r.QuestionID)
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

// TopicSpec describes one topic in a curriculum file.
type TopicSpec struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description"`
	Difficulty  int    `json:"difficulty,omitempty" yaml:"difficulty" validate:"omitempty,min=1,max=5"`
}

// SubjectSpec describes one subject and its topics.
type SubjectSpec struct {
	Description string      `json:"description,omitempty" yaml:"description"`
	Topics      []TopicSpec `json:"topics" yaml:"topics" validate:"dive"`
}

// Curriculum maps subject name to its description and topics.
type Curriculum map[string]SubjectSpec

// SubjectNames returns the subject names in sorted order.
func (c Curriculum) SubjectNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks every subject and topic, filling topic difficulty defaults.
func (c Curriculum) Validate() error {
	for _, name := range c.SubjectNames() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: subject name cannot be empty", ErrInvalidRecord)
		}
		spec := c[name]
		for i := range spec.Topics {
			spec.Topics[i].Name = strings.TrimSpace(spec.Topics[i].Name)
			if spec.Topics[i].Difficulty == 0 {
				spec.Topics[i].Difficulty = DefaultDifficulty
			}
		}
		if err := validate.Struct(spec); err != nil {
			return fmt.Errorf("subject %q: %w", name, validationError(err))
		}
	}
	return nil
}

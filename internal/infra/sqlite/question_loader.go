package sqlite

import (
	"context"
	"fmt"
	"time"

	glebarez "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"interview-quiz-service/internal/domain"
)

type questionRow struct {
	ID          string      `gorm:"primaryKey;size:64"`
	RoleID      string      `gorm:"index;not null;default:''"`
	Text        string      `gorm:"not null"`
	Explanation string      `gorm:"not null;default:''"`
	Answers     []answerRow `gorm:"foreignKey:QuestionID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (questionRow) TableName() string { return "questions" }

type answerRow struct {
	ID         uint   `gorm:"primaryKey"`
	QuestionID string `gorm:"index;not null"`
	Position   int    `gorm:"not null"` // canonical order
	Content    string `gorm:"not null"`
	IsCorrect  bool   `gorm:"not null"`
}

func (answerRow) TableName() string { return "answers" }

// Open opens (or creates) a SQLite database file for local development.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(glebarez.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&questionRow{}, &answerRow{})
}

// QuestionLoader reads and writes questions through gorm.
type QuestionLoader struct {
	db *gorm.DB
}

func NewQuestionLoader(db *gorm.DB) *QuestionLoader {
	return &QuestionLoader{db: db}
}

func (l *QuestionLoader) GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	var rows []questionRow
	if err := l.withAnswers(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	byID := make(map[string]questionRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, toDomain(r))
		}
	}
	return out, nil
}

func (l *QuestionLoader) ListByRole(ctx context.Context, roleID string) ([]domain.Question, error) {
	q := l.withAnswers(ctx).Order("created_at, id")
	if roleID != "" {
		q = q.Where("role_id = ?", roleID)
	}
	var rows []questionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDomain(r))
	}
	return out, nil
}

func (l *QuestionLoader) ListCorpus(ctx context.Context) ([]domain.CorpusEntry, error) {
	var rows []questionRow
	if err := l.db.WithContext(ctx).Select("id", "text").Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	corpus := make([]domain.CorpusEntry, 0, len(rows))
	for _, r := range rows {
		corpus = append(corpus, domain.CorpusEntry{ID: r.ID, Question: r.Text})
	}
	return corpus, nil
}

// SaveQuestions upserts questions and replaces their answers.
func (l *QuestionLoader) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, q := range questions {
			row := questionRow{ID: q.ID, RoleID: q.RoleID, Text: q.Text, Explanation: q.Explanation}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"role_id", "text", "explanation", "updated_at"}),
			}).Omit("Answers").Create(&row).Error; err != nil {
				return fmt.Errorf("save question %s: %w", q.ID, err)
			}
			if err := tx.Where("question_id = ?", q.ID).Delete(&answerRow{}).Error; err != nil {
				return fmt.Errorf("clear answers %s: %w", q.ID, err)
			}
			if len(q.Answers) == 0 {
				continue
			}
			answers := make([]answerRow, 0, len(q.Answers))
			for _, a := range q.Answers {
				answers = append(answers, answerRow{QuestionID: q.ID, Position: a.Order, Content: a.Content, IsCorrect: a.IsCorrect})
			}
			if err := tx.Create(&answers).Error; err != nil {
				return fmt.Errorf("save answers %s: %w", q.ID, err)
			}
		}
		return nil
	})
}

func (l *QuestionLoader) withAnswers(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("position, id")
	})
}

func toDomain(r questionRow) domain.Question {
	answers := make([]domain.Answer, 0, len(r.Answers))
	for _, a := range r.Answers {
		answers = append(answers, domain.Answer{Content: a.Content, IsCorrect: a.IsCorrect, Order: a.Position})
	}
	return domain.Question{
		ID:          r.ID,
		RoleID:      r.RoleID,
		Text:        r.Text,
		Explanation: r.Explanation,
		Answers:     answers,
	}
}

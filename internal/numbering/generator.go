package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RunningNumber holds the running counter for one document type on one day.
type RunningNumber struct {
	DocType string `gorm:"primaryKey"`
	DateKey string `gorm:"primaryKey"`
	Counter int    `gorm:"not null"`
}

func (RunningNumber) TableName() string {
	return "running_numbers"
}

const dateKeyLayout = "20060102"

// Generator issues document numbers from a two-part pattern: the issue date
// plus a zero-padded counter scoped per document type and date, e.g.
// PR-20260831-0001. It implements workflow.NumberGenerator.
type Generator struct {
	db *gorm.DB
}

func NewGenerator(db *gorm.DB) *Generator {
	return &Generator{db: db}
}

// GenerateDocumentNumber increments the counter row under a row lock so two
// concurrent submissions never share a number.
func (g *Generator) GenerateDocumentNumber(ctx context.Context, docType string, issueDate time.Time) (string, error) {
	dateKey := issueDate.Format(dateKeyLayout)

	var counter int
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row RunningNumber
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("doc_type = ? AND date_key = ?", docType, dateKey).
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = RunningNumber{DocType: docType, DateKey: dateKey, Counter: 1}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			counter = 1
			return nil
		}
		if err != nil {
			return err
		}

		row.Counter++
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		counter = row.Counter
		return nil
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%04d", docType, dateKey, counter), nil
}

// DraftNumber returns the placeholder number for an unsubmitted draft. The
// real number is assigned on submission.
func DraftNumber(at time.Time) string {
	return "draft-" + at.Format("20060102150405")
}

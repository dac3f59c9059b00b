// Package types defines the shared domain types for capsule generation.
package types

import (
	"time"

	"github.com/google/uuid"
)

// CapsuleStatus enumerates the capsule pipeline states.
type CapsuleStatus string

const (
	CapsulePending           CapsuleStatus = "pending"
	CapsuleGeneratingOutline CapsuleStatus = "generating_outline"
	CapsuleGeneratingContent CapsuleStatus = "generating_content"
	CapsuleCompleted         CapsuleStatus = "completed"
	CapsuleFailed            CapsuleStatus = "failed"
)

// Capsule is a generated micro-course.
type Capsule struct {
	ID                uuid.UUID     `json:"id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Source            string        `json:"source"` // topic string or document reference
	Guidance          string        `json:"guidance,omitempty"`
	Status            CapsuleStatus `json:"status"`
	ErrorMessage      *string       `json:"error_message,omitempty"`
	ModuleCount       int           `json:"module_count"`
	LessonCount       int           `json:"lesson_count"`
	EstimatedDuration string        `json:"estimated_duration,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}

// GenerationJob is one durable record per capsule generation attempt.
type GenerationJob struct {
	ID               uuid.UUID  `json:"id"`
	CapsuleID        uuid.UUID  `json:"capsule_id"`
	GenerationID     uuid.UUID  `json:"generation_id"`
	Stage            string     `json:"stage"` // "outline" | "module_<i>" | "finalizing" | "completed"
	OutlineGenerated bool       `json:"outline_generated"`
	OutlineJSON      *string    `json:"outline_json,omitempty"`
	ModulesGenerated int        `json:"modules_generated"`
	TotalModules     int        `json:"total_modules"`
	CurrentModule    int        `json:"current_module"`
	RetryCount       int        `json:"retry_count"`
	LastError        *string    `json:"last_error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Module is an ordered unit within a capsule.
type Module struct {
	ID                 uuid.UUID `json:"id"`
	CapsuleID          uuid.UUID `json:"capsule_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Introduction       string    `json:"introduction,omitempty"`
	LearningObjectives []string  `json:"learning_objectives,omitempty"`
	Summary            string    `json:"summary,omitempty"`
	Order              int       `json:"order"` // zero-based, unique and dense within a capsule
	CreatedAt          time.Time `json:"created_at"`
}

// LessonType enumerates lesson kinds.
type LessonType string

const (
	LessonConcept LessonType = "concept"
	LessonMixed   LessonType = "mixed"
	LessonQuiz    LessonType = "quiz"
)

// Lesson is a leaf content unit. Content is an opaque structured payload
// validated by the generator's schema before persistence.
type Lesson struct {
	ID          uuid.UUID      `json:"id"`
	ModuleID    uuid.UUID      `json:"module_id"`
	CapsuleID   uuid.UUID      `json:"capsule_id"` // denormalized
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Order       int            `json:"order"`
	Type        LessonType     `json:"type"`
	Content     map[string]any `json:"content,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

package models

import "time"

// Semester identifies the term a class is taught in.
type Semester string

const (
	SemesterSpring  Semester = "SPRING"
	SemesterSummer1 Semester = "SUMMER1"
	SemesterSummer2 Semester = "SUMMER2"
	SemesterFall    Semester = "FALL"
)

// Valid returns true when the semester is a supported value.
func (s Semester) Valid() bool {
	switch s {
	case SemesterSpring, SemesterSummer1, SemesterSummer2, SemesterFall:
		return true
	default:
		return false
	}
}

// TrainingStatus tracks whether the recognition group for a class reflects
// the current enrollment roster. Lectures can only be recorded while TRAINED;
// any enroll or unenroll resets the class to UNTRAINED.
type TrainingStatus string

const (
	TrainingStatusUntrained TrainingStatus = "UNTRAINED"
	TrainingStatusTraining  TrainingStatus = "TRAINING"
	TrainingStatusTrained   TrainingStatus = "TRAINED"
)

// Valid returns true when the status is a supported value.
func (s TrainingStatus) Valid() bool {
	switch s {
	case TrainingStatusUntrained, TrainingStatusTraining, TrainingStatusTrained:
		return true
	default:
		return false
	}
}

// Class represents a course section taught by one teacher.
type Class struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Number         int            `db:"number" json:"number"`
	Section        string         `db:"section" json:"section"`
	Semester       Semester       `db:"semester" json:"semester"`
	Year           int            `db:"year" json:"year"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	TrainingStatus TrainingStatus `db:"training_status" json:"training_status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassDetail extends Class with teacher information.
type ClassDetail struct {
	Class
	TeacherName string `db:"teacher_name" json:"teacher_name"`
}

package models

import "time"

// Enrollment associates a student with a class and records the person id the
// recognition service assigned to the student inside the class's group.
// At most one enrollment exists per (class, student) pair.
type Enrollment struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	PersonID   string    `db:"person_id" json:"person_id"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail extends Enrollment with student contact information.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	StudentPhone string `db:"student_phone" json:"student_phone"`
}

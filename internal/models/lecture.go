package models

import "time"

// UploadedImage stores data about an image persisted in the blob store.
type UploadedImage struct {
	ID        string    `db:"id" json:"id"`
	BlobName  string    `db:"blob_name" json:"blob_name"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Lecture represents a single session during which attendance was taken.
type Lecture struct {
	ID         string    `db:"id" json:"id"`
	ClassID    string    `db:"class_id" json:"class_id"`
	RecordDate time.Time `db:"record_date" json:"record_date"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StudentAttendance stores presence or absence of one student for one
// lecture. Exactly one row exists per student enrolled at record time; the
// roster never grows afterwards.
type StudentAttendance struct {
	ID        string `db:"id" json:"id"`
	LectureID string `db:"lecture_id" json:"lecture_id"`
	StudentID string `db:"student_id" json:"student_id"`
	Present   bool   `db:"present" json:"present"`
}

// AttendanceCorrection is one manual presence fix applied to a lecture.
type AttendanceCorrection struct {
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
}

// AttendanceDetail extends StudentAttendance with student contact fields
// used for reports and absence alerts.
type AttendanceDetail struct {
	StudentAttendance
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	StudentPhone string `db:"student_phone" json:"student_phone"`
}

// LectureDetail is a lecture with its images and attendance roster.
type LectureDetail struct {
	Lecture
	Images     []UploadedImage    `json:"images"`
	Attendance []AttendanceDetail `json:"attendance"`
}

package models

import "time"

// FacialProfile holds the face images used to enroll a student with the
// recognition service. A student owns at most one profile, and the profile
// must contain at least one image before the student can be enrolled.
type FacialProfile struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FacialProfileDetail is a profile with its ordered images.
type FacialProfileDetail struct {
	FacialProfile
	Images []UploadedImage `json:"images"`
}

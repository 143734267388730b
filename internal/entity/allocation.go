package entity

import "time"

// Allocation is the canonical hall allocation record every ingestion path converges to.
type Allocation struct {
	RegisterNumber string `json:"register_number"`
	StudentName    string `json:"student_name"`
	HallName       string `json:"hall_name"`
	SeatNumber     string `json:"seat_number"`
	ExamDate       string `json:"exam_date"`
	ExamTime       string `json:"exam_time"`
}

// StoredAllocation is an allocation as persisted, with the store's identifier.
type StoredAllocation struct {
	ID int64 `json:"id"`
	Allocation
	CreatedAt time.Time `json:"created_at"`
}

// RawRow maps arbitrary key spellings to string values before normalization.
type RawRow map[string]string

package domain

import "time"

const StudentCountUpdateEvent = "student-count-update"

type StudentCountUpdate struct {
	Count     int64     `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

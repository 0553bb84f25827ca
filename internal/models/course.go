package models

// Classroom is a geofence candidate supplied by the course service.
type Classroom struct {
	ID        string  `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Building  string  `json:"building"`
	Room      string  `json:"room_number"`
}

// Label renders the human-readable classroom name cached on records.
func (c Classroom) Label() string {
	if c.Building == "" {
		return c.Room
	}
	return c.Building + " " + c.Room
}

// CourseCoordinates bundles a course's geofence configuration.
type CourseCoordinates struct {
	CourseID        string      `json:"course_id"`
	CourseCode      string      `json:"course_code"`
	DetectionRadius float64     `json:"detection_radius"`
	Classrooms      []Classroom `json:"classrooms"`
}

// Enrollment identifies an enrolled student, as reported by the course service.
type Enrollment struct {
	StudentID   string `json:"student_id"`
	StudentCode string `json:"student_code"`
	CourseID    string `json:"course_id"`
	Status      string `json:"status"`
}

package backend

import "encoding/json"

// apiResponse models the envelope every backend endpoint answers with.
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Faculty is a university faculty.
type Faculty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group is a study group of a faculty.
type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FacultyID string `json:"facultyId"`
	Course    int    `json:"course"`
}

// Dormitory is a dormitory building and its manager.
type Dormitory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Street      string `json:"street"`
	Building    string `json:"building"`
	ManagerName string `json:"managerName"`
}

// Preset holds the occupancy term of a dormitory for one academic year.
// Street and Building are optional and override the dormitory address.
type Preset struct {
	DormitoryID  string `json:"dormitoryId"`
	AcademicYear string `json:"academicYear"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Street       string `json:"street"`
	Building     string `json:"building"`
}

// Reservation statuses.
const (
	ReservationConfirmed = "confirmed"
	ReservationPending   = "pending"
)

// Reservation is a room booked for a student.
type Reservation struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	DormitoryID  string `json:"dormitoryId"`
	AcademicYear string `json:"academicYear"`
	RoomNumber   string `json:"roomNumber"`
	Status       string `json:"status"`
}

// Room is a dormitory room with free places.
type Room struct {
	ID          string `json:"id"`
	DormitoryID string `json:"dormitoryId"`
	Label       string `json:"label"`
	Floor       int    `json:"floor"`
	Gender      string `json:"gender"`
	FreePlaces  int    `json:"freePlaces"`
}

// RoomQuery filters the room availability search.
type RoomQuery struct {
	DormitoryID  string `json:"dormitoryId"`
	Gender       string `json:"gender"`
	AcademicYear string `json:"academicYear"`
}

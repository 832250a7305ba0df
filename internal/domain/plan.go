// internal/domain/plan.go
package domain

import "time"

// Macrocycle is the top container of a student's periodized plan.
type Macrocycle struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	StudentID string    `bson:"studentId" json:"studentId"` // Who the plan is for
	CoachID   string    `bson:"coachId" json:"coachId"`     // Who created the plan
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Mesocycle is a block inside a Macrocycle. Order is unique within the macrocycle.
type Mesocycle struct {
	ID           string    `bson:"_id" json:"id"`
	MacrocycleID string    `bson:"macrocycleId" json:"macrocycleId"`
	Name         string    `bson:"name" json:"name"`
	Order        int       `bson:"order" json:"order"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Microcycle is the unit of propagation. Order is unique and increasing
// within its Mesocycle; "forward" means order >= the current order.
type Microcycle struct {
	ID          string    `bson:"_id" json:"id"`
	MesocycleID string    `bson:"mesocycleId" json:"mesocycleId"`
	Name        string    `bson:"name" json:"name"`
	Order       int       `bson:"order" json:"order"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// Day is a training day slot inside a Microcycle. DayNumber is stable across
// microcycles of the same mesocycle: day 1 of microcycle N corresponds to day 1
// of microcycle N+1.
type Day struct {
	ID           string     `bson:"_id" json:"id"`
	MicrocycleID string     `bson:"microcycleId" json:"microcycleId"`
	DayNumber    int        `bson:"dayNumber" json:"dayNumber"`
	IsRestDay    bool       `bson:"isRestDay" json:"isRestDay"`
	Date         *time.Time `bson:"date,omitempty" json:"date,omitempty"`
}

// PlanExport describes an effective-plan snapshot written to object storage.
// The actual file resides in S3.
type PlanExport struct {
	MacrocycleID string `json:"macrocycleId"`
	ObjectKey    string `json:"-"` // Internal use
	DownloadURL  string `json:"downloadUrl"`
	Size         int64  `json:"size"`
}

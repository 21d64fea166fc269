package domain

import "time"

// EntityType tags a record kind for audit targets and for the reset
// dependency graph.
type EntityType string

const (
	EntityUser          EntityType = "USER"
	EntityClient        EntityType = "CLIENT"
	EntityMaterial      EntityType = "MATERIAL"
	EntityVehicle       EntityType = "VEHICLE"
	EntityDriver        EntityType = "DRIVER"
	EntityTrip          EntityType = "TRIP"
	EntityReceipt       EntityType = "RECEIPT"
	EntityMaintenance   EntityType = "MAINTENANCE"
	EntityTripExpense   EntityType = "TRIP_EXPENSE"
	EntityDriverPayment EntityType = "DRIVER_PAYMENT"
	EntityAuditRecord   EntityType = "AUDIT_RECORD"
	EntityDatabase      EntityType = "DATABASE"
	EntitySession       EntityType = "SESSION"
)

type Client struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	TaxID     string    `gorm:"size:32" json:"taxId"`
	Phone     string    `gorm:"size:32" json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Material struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Unit      string    `gorm:"size:16" json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Vehicle struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Plate     string    `gorm:"uniqueIndex;size:16;not null" json:"plate"`
	Brand     string    `gorm:"size:64" json:"brand"`
	Model     string    `gorm:"size:64" json:"model"`
	Year      int       `json:"year"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Driver struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FullName  string    `gorm:"size:128;not null" json:"fullName"`
	License   string    `gorm:"size:32" json:"license"`
	Phone     string    `gorm:"size:32" json:"phone"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Trip struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	VehicleID   string    `gorm:"size:36;not null;index" json:"vehicleId"`
	DriverID    string    `gorm:"size:36;not null;index" json:"driverId"`
	ClientID    string    `gorm:"size:36;not null;index" json:"clientId"`
	MaterialID  string    `gorm:"size:36;index" json:"materialId"`
	Origin      string    `gorm:"size:128" json:"origin"`
	Destination string    `gorm:"size:128" json:"destination"`
	Date        time.Time `json:"date"`
	Freight     float64   `json:"freight"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Receipt struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TripID    string    `gorm:"size:36;not null;index" json:"tripId"`
	Number    string    `gorm:"size:32;not null" json:"number"`
	Amount    float64   `json:"amount"`
	IssuedAt  time.Time `json:"issuedAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Maintenance struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	VehicleID   string    `gorm:"size:36;not null;index" json:"vehicleId"`
	Kind        string    `gorm:"size:32" json:"kind"`
	Description string    `gorm:"size:255" json:"description"`
	Cost        float64   `json:"cost"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type TripExpense struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	TripID      string    `gorm:"size:36;not null;index" json:"tripId"`
	Category    string    `gorm:"size:32" json:"category"`
	Description string    `gorm:"size:255" json:"description"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type DriverPayment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	DriverID    string    `gorm:"size:36;not null;index" json:"driverId"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Models returns every persisted model for AutoMigrate, parents first.
func Models() []any {
	return []any{
		&User{}, &Client{}, &Material{}, &Vehicle{}, &Driver{},
		&Trip{}, &Receipt{}, &Maintenance{}, &TripExpense{},
		&DriverPayment{}, &AuditRecord{},
	}
}

// entityDeps lists, per entity type, the parent types it references.
// Adding a new dependent entity means adding its node and edges here;
// the reset wipe order is derived, not hand-sequenced.
var entityDeps = map[EntityType][]EntityType{
	EntityUser:          nil,
	EntityClient:        nil,
	EntityMaterial:      nil,
	EntityVehicle:       nil,
	EntityDriver:        nil,
	EntityTrip:          {EntityVehicle, EntityDriver, EntityClient, EntityMaterial},
	EntityReceipt:       {EntityTrip},
	EntityMaintenance:   {EntityVehicle},
	EntityTripExpense:   {EntityTrip},
	EntityDriverPayment: {EntityDriver},
	// Audit rows reference users and are cleared before anything else.
	EntityAuditRecord: {EntityUser},
}

// entityOrder fixes iteration order so the derived wipe order is stable.
var entityOrder = []EntityType{
	EntityAuditRecord, EntityDriverPayment, EntityTripExpense,
	EntityMaintenance, EntityReceipt, EntityTrip, EntityDriver,
	EntityVehicle, EntityMaterial, EntityClient, EntityUser,
}

// ModelFor maps an entity type to an empty model usable in store calls.
func ModelFor(t EntityType) any {
	switch t {
	case EntityUser:
		return &User{}
	case EntityClient:
		return &Client{}
	case EntityMaterial:
		return &Material{}
	case EntityVehicle:
		return &Vehicle{}
	case EntityDriver:
		return &Driver{}
	case EntityTrip:
		return &Trip{}
	case EntityReceipt:
		return &Receipt{}
	case EntityMaintenance:
		return &Maintenance{}
	case EntityTripExpense:
		return &TripExpense{}
	case EntityDriverPayment:
		return &DriverPayment{}
	case EntityAuditRecord:
		return &AuditRecord{}
	}
	return nil
}

// WipeOrder walks the dependency graph leaves-first: every entity appears
// before all of its parents, so foreign keys never dangle mid-wipe.
func WipeOrder() []EntityType {
	removed := make(map[EntityType]bool, len(entityOrder))
	out := make([]EntityType, 0, len(entityOrder))

	dependentsLeft := func(t EntityType) bool {
		for _, child := range entityOrder {
			if removed[child] {
				continue
			}
			for _, parent := range entityDeps[child] {
				if parent == t {
					return true
				}
			}
		}
		return false
	}

	for len(out) < len(entityOrder) {
		progressed := false
		for _, t := range entityOrder {
			if removed[t] || dependentsLeft(t) {
				continue
			}
			removed[t] = true
			out = append(out, t)
			progressed = true
		}
		if !progressed {
			// Cycle in entityDeps: a schema bug, fail loudly.
			panic("domain: entity dependency graph has a cycle")
		}
	}
	return out
}

package router

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"fleet-expense-server/internal/domain"
	httpez "fleet-expense-server/internal/transport/http/ez"
	"fleet-expense-server/pkg/utils"
)

// FleetModule mounts the transport-operations surface. The domain logic
// here is thin on purpose: the contract is that nothing mutates without
// passing the authorizer and leaving an audit record.
type FleetModule struct{ env *httpez.Env }

func (m *FleetModule) Priority() int { return 10 }

func (m *FleetModule) MountAPI(api *gin.RouterGroup) {
	e := httpez.New(api)
	m.mountVehicles(e)
	m.mountDrivers(e)
	m.mountClientsAndMaterials(e)
	m.mountTrips(e)
	m.mountPayments(e)
}

// ---------- vehicles ----------

type vehicleIn struct {
	Plate string `json:"plate" binding:"required"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

func (m *FleetModule) mountVehicles(e httpez.EZ) {
	env := m.env

	httpez.RegisterAction[vehicleIn, *domain.Vehicle](e, env, httpez.Action[vehicleIn, *domain.Vehicle]{
		Method:     http.MethodPost,
		Path:       "/vehicles",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[vehicleIn, *domain.Vehicle]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityVehicle,
			TargetID:   func(_ *vehicleIn, out *domain.Vehicle) string { return out.ID },
			Payload:    func(in *vehicleIn, _ *domain.Vehicle) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *vehicleIn) (*domain.Vehicle, error) {
			v := &domain.Vehicle{
				ID:     utils.NewID(),
				Plate:  strings.ToUpper(strings.TrimSpace(in.Plate)),
				Brand:  in.Brand,
				Model:  in.Model,
				Year:   in.Year,
				Active: true,
			}
			if err := tx.Create(v).Error; err != nil {
				return nil, err
			}
			return v, nil
		},
	})

	httpez.RegisterAction[vehicleIn, *domain.Vehicle](e, env, httpez.Action[vehicleIn, *domain.Vehicle]{
		Method:     http.MethodPut,
		Path:       "/vehicles/:id",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[vehicleIn, *domain.Vehicle]{
			Action:     domain.AuditUpdate,
			TargetType: domain.EntityVehicle,
			TargetID:   func(_ *vehicleIn, out *domain.Vehicle) string { return out.ID },
			Payload:    func(in *vehicleIn, _ *domain.Vehicle) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *vehicleIn) (*domain.Vehicle, error) {
			var v domain.Vehicle
			if err := tx.First(&v, "id = ?", c.Param("id")).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, httpez.NotFound("vehicle not found")
				}
				return nil, err
			}
			v.Plate = strings.ToUpper(strings.TrimSpace(in.Plate))
			v.Brand = in.Brand
			v.Model = in.Model
			v.Year = in.Year
			if err := tx.Save(&v).Error; err != nil {
				return nil, err
			}
			return &v, nil
		},
	})

	httpez.RegisterAction[struct{}, gin.H](e, env, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/vehicles/:id",
		Binder:     httpez.BindNone,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[struct{}, gin.H]{
			Action:     domain.AuditDelete,
			TargetType: domain.EntityVehicle,
			TargetID:   func(_ *struct{}, out gin.H) string { s, _ := out["id"].(string); return s },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Where("id = ?", id).Delete(&domain.Vehicle{})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, httpez.NotFound("vehicle not found")
			}
			return gin.H{"id": id}, nil
		},
	})

	registerList[domain.Vehicle](e, env, "/vehicles", domain.CapManageFleet, nil)
	registerList[domain.Maintenance](e, env, "/vehicles/:id/maintenance", domain.CapRecordOperations, childOf("vehicle_id"))
}

// ---------- drivers ----------

type driverIn struct {
	FullName string `json:"fullName" binding:"required"`
	License  string `json:"license"`
	Phone    string `json:"phone"`
}

func (m *FleetModule) mountDrivers(e httpez.EZ) {
	env := m.env

	httpez.RegisterAction[driverIn, *domain.Driver](e, env, httpez.Action[driverIn, *domain.Driver]{
		Method:     http.MethodPost,
		Path:       "/drivers",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[driverIn, *domain.Driver]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityDriver,
			TargetID:   func(_ *driverIn, out *domain.Driver) string { return out.ID },
			Payload:    func(in *driverIn, _ *domain.Driver) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *driverIn) (*domain.Driver, error) {
			d := &domain.Driver{
				ID:       utils.NewID(),
				FullName: in.FullName,
				License:  in.License,
				Phone:    in.Phone,
				Active:   true,
			}
			if err := tx.Create(d).Error; err != nil {
				return nil, err
			}
			return d, nil
		},
	})

	httpez.RegisterAction[driverIn, *domain.Driver](e, env, httpez.Action[driverIn, *domain.Driver]{
		Method:     http.MethodPut,
		Path:       "/drivers/:id",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[driverIn, *domain.Driver]{
			Action:     domain.AuditUpdate,
			TargetType: domain.EntityDriver,
			TargetID:   func(_ *driverIn, out *domain.Driver) string { return out.ID },
			Payload:    func(in *driverIn, _ *domain.Driver) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *driverIn) (*domain.Driver, error) {
			var d domain.Driver
			if err := tx.First(&d, "id = ?", c.Param("id")).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, httpez.NotFound("driver not found")
				}
				return nil, err
			}
			d.FullName = in.FullName
			d.License = in.License
			d.Phone = in.Phone
			if err := tx.Save(&d).Error; err != nil {
				return nil, err
			}
			return &d, nil
		},
	})

	httpez.RegisterAction[struct{}, gin.H](e, env, httpez.Action[struct{}, gin.H]{
		Method:     http.MethodDelete,
		Path:       "/drivers/:id",
		Binder:     httpez.BindNone,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[struct{}, gin.H]{
			Action:     domain.AuditDelete,
			TargetType: domain.EntityDriver,
			TargetID:   func(_ *struct{}, out gin.H) string { s, _ := out["id"].(string); return s },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, _ *struct{}) (gin.H, error) {
			id := c.Param("id")
			res := tx.Where("id = ?", id).Delete(&domain.Driver{})
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, httpez.NotFound("driver not found")
			}
			return gin.H{"id": id}, nil
		},
	})

	registerList[domain.Driver](e, env, "/drivers", domain.CapManageFleet, nil)
	registerList[domain.DriverPayment](e, env, "/drivers/:id/payments", domain.CapRecordOperations, childOf("driver_id"))
}

// ---------- clients & materials ----------

func (m *FleetModule) mountClientsAndMaterials(e httpez.EZ) {
	env := m.env

	type clientIn struct {
		Name  string `json:"name" binding:"required"`
		TaxID string `json:"taxId"`
		Phone string `json:"phone"`
	}
	httpez.RegisterAction[clientIn, *domain.Client](e, env, httpez.Action[clientIn, *domain.Client]{
		Method:     http.MethodPost,
		Path:       "/clients",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[clientIn, *domain.Client]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityClient,
			TargetID:   func(_ *clientIn, out *domain.Client) string { return out.ID },
			Payload:    func(in *clientIn, _ *domain.Client) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *clientIn) (*domain.Client, error) {
			cl := &domain.Client{ID: utils.NewID(), Name: in.Name, TaxID: in.TaxID, Phone: in.Phone}
			if err := tx.Create(cl).Error; err != nil {
				return nil, err
			}
			return cl, nil
		},
	})

	type materialIn struct {
		Name string `json:"name" binding:"required"`
		Unit string `json:"unit"`
	}
	httpez.RegisterAction[materialIn, *domain.Material](e, env, httpez.Action[materialIn, *domain.Material]{
		Method:     http.MethodPost,
		Path:       "/materials",
		Binder:     httpez.BindJSON,
		Capability: domain.CapManageFleet,
		Audit: &httpez.AuditSpec[materialIn, *domain.Material]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityMaterial,
			TargetID:   func(_ *materialIn, out *domain.Material) string { return out.ID },
			Payload:    func(in *materialIn, _ *domain.Material) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *materialIn) (*domain.Material, error) {
			mat := &domain.Material{ID: utils.NewID(), Name: in.Name, Unit: in.Unit}
			if err := tx.Create(mat).Error; err != nil {
				return nil, err
			}
			return mat, nil
		},
	})

	registerList[domain.Client](e, env, "/clients", domain.CapManageFleet, nil)
	registerList[domain.Material](e, env, "/materials", domain.CapManageFleet, nil)
}

// ---------- trips, expenses, receipts, maintenance ----------

func (m *FleetModule) mountTrips(e httpez.EZ) {
	env := m.env

	type tripIn struct {
		VehicleID   string    `json:"vehicleId" binding:"required"`
		DriverID    string    `json:"driverId" binding:"required"`
		ClientID    string    `json:"clientId" binding:"required"`
		MaterialID  string    `json:"materialId"`
		Origin      string    `json:"origin"`
		Destination string    `json:"destination"`
		Date        time.Time `json:"date"`
		Freight     float64   `json:"freight"`
	}
	httpez.RegisterAction[tripIn, *domain.Trip](e, env, httpez.Action[tripIn, *domain.Trip]{
		Method:     http.MethodPost,
		Path:       "/trips",
		Binder:     httpez.BindJSON,
		Capability: domain.CapRecordOperations,
		Audit: &httpez.AuditSpec[tripIn, *domain.Trip]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityTrip,
			TargetID:   func(_ *tripIn, out *domain.Trip) string { return out.ID },
			Payload:    func(in *tripIn, _ *domain.Trip) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *tripIn) (*domain.Trip, error) {
			t := &domain.Trip{
				ID:          utils.NewID(),
				VehicleID:   in.VehicleID,
				DriverID:    in.DriverID,
				ClientID:    in.ClientID,
				MaterialID:  in.MaterialID,
				Origin:      in.Origin,
				Destination: in.Destination,
				Date:        in.Date,
				Freight:     in.Freight,
			}
			if err := tx.Create(t).Error; err != nil {
				return nil, err
			}
			return t, nil
		},
	})

	type expenseIn struct {
		Category    string  `json:"category" binding:"required"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount" binding:"required"`
	}
	httpez.RegisterAction[expenseIn, *domain.TripExpense](e, env, httpez.Action[expenseIn, *domain.TripExpense]{
		Method:     http.MethodPost,
		Path:       "/trips/:id/expenses",
		Binder:     httpez.BindJSON,
		Capability: domain.CapRecordOperations,
		Audit: &httpez.AuditSpec[expenseIn, *domain.TripExpense]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityTripExpense,
			TargetID:   func(_ *expenseIn, out *domain.TripExpense) string { return out.ID },
			Payload:    func(in *expenseIn, _ *domain.TripExpense) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *expenseIn) (*domain.TripExpense, error) {
			if err := ensureExists(tx, &domain.Trip{}, c.Param("id"), "trip"); err != nil {
				return nil, err
			}
			exp := &domain.TripExpense{
				ID:          utils.NewID(),
				TripID:      c.Param("id"),
				Category:    in.Category,
				Description: in.Description,
				Amount:      in.Amount,
			}
			if err := tx.Create(exp).Error; err != nil {
				return nil, err
			}
			return exp, nil
		},
	})

	type receiptIn struct {
		Number   string    `json:"number" binding:"required"`
		Amount   float64   `json:"amount"`
		IssuedAt time.Time `json:"issuedAt"`
	}
	httpez.RegisterAction[receiptIn, *domain.Receipt](e, env, httpez.Action[receiptIn, *domain.Receipt]{
		Method:     http.MethodPost,
		Path:       "/trips/:id/receipts",
		Binder:     httpez.BindJSON,
		Capability: domain.CapRecordOperations,
		Audit: &httpez.AuditSpec[receiptIn, *domain.Receipt]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityReceipt,
			TargetID:   func(_ *receiptIn, out *domain.Receipt) string { return out.ID },
			Payload:    func(in *receiptIn, _ *domain.Receipt) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *receiptIn) (*domain.Receipt, error) {
			if err := ensureExists(tx, &domain.Trip{}, c.Param("id"), "trip"); err != nil {
				return nil, err
			}
			rc := &domain.Receipt{
				ID:       utils.NewID(),
				TripID:   c.Param("id"),
				Number:   in.Number,
				Amount:   in.Amount,
				IssuedAt: in.IssuedAt,
			}
			if err := tx.Create(rc).Error; err != nil {
				return nil, err
			}
			return rc, nil
		},
	})

	type maintIn struct {
		Kind        string    `json:"kind" binding:"required"`
		Description string    `json:"description"`
		Cost        float64   `json:"cost"`
		Date        time.Time `json:"date"`
	}
	httpez.RegisterAction[maintIn, *domain.Maintenance](e, env, httpez.Action[maintIn, *domain.Maintenance]{
		Method:     http.MethodPost,
		Path:       "/vehicles/:id/maintenance",
		Binder:     httpez.BindJSON,
		Capability: domain.CapRecordOperations,
		Audit: &httpez.AuditSpec[maintIn, *domain.Maintenance]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityMaintenance,
			TargetID:   func(_ *maintIn, out *domain.Maintenance) string { return out.ID },
			Payload:    func(in *maintIn, _ *domain.Maintenance) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *maintIn) (*domain.Maintenance, error) {
			if err := ensureExists(tx, &domain.Vehicle{}, c.Param("id"), "vehicle"); err != nil {
				return nil, err
			}
			mt := &domain.Maintenance{
				ID:          utils.NewID(),
				VehicleID:   c.Param("id"),
				Kind:        in.Kind,
				Description: in.Description,
				Cost:        in.Cost,
				Date:        in.Date,
			}
			if err := tx.Create(mt).Error; err != nil {
				return nil, err
			}
			return mt, nil
		},
	})

	registerList[domain.Trip](e, env, "/trips", domain.CapRecordOperations, nil)
	registerList[domain.TripExpense](e, env, "/trips/:id/expenses", domain.CapRecordOperations, childOf("trip_id"))
	registerList[domain.Receipt](e, env, "/trips/:id/receipts", domain.CapRecordOperations, childOf("trip_id"))
}

// ---------- driver payments ----------

func (m *FleetModule) mountPayments(e httpez.EZ) {
	env := m.env

	type paymentIn struct {
		PeriodStart time.Time `json:"periodStart"`
		PeriodEnd   time.Time `json:"periodEnd"`
		Amount      float64   `json:"amount" binding:"required"`
	}
	httpez.RegisterAction[paymentIn, *domain.DriverPayment](e, env, httpez.Action[paymentIn, *domain.DriverPayment]{
		Method:     http.MethodPost,
		Path:       "/drivers/:id/payments",
		Binder:     httpez.BindJSON,
		Capability: domain.CapRecordOperations,
		Audit: &httpez.AuditSpec[paymentIn, *domain.DriverPayment]{
			Action:     domain.AuditCreate,
			TargetType: domain.EntityDriverPayment,
			TargetID:   func(_ *paymentIn, out *domain.DriverPayment) string { return out.ID },
			Payload:    func(in *paymentIn, _ *domain.DriverPayment) any { return in },
		},
		Handler: func(c *gin.Context, tx *gorm.DB, in *paymentIn) (*domain.DriverPayment, error) {
			if err := ensureExists(tx, &domain.Driver{}, c.Param("id"), "driver"); err != nil {
				return nil, err
			}
			p := &domain.DriverPayment{
				ID:          utils.NewID(),
				DriverID:    c.Param("id"),
				PeriodStart: in.PeriodStart,
				PeriodEnd:   in.PeriodEnd,
				Amount:      in.Amount,
			}
			if err := tx.Create(p).Error; err != nil {
				return nil, err
			}
			return p, nil
		},
	})
}

// ---------- shared helpers ----------

// page is the paginated list envelope body.
type page[T any] struct {
	Total int64 `json:"total"`
	Items []T   `json:"items"`
}

// registerList mounts a paginated, capability-gated read. scope, when
// non-nil, narrows the query from the route (parent lookups).
func registerList[T any](e httpez.EZ, env *httpez.Env, path string, capability domain.Capability, scope func(c *gin.Context, q *gorm.DB) *gorm.DB) {
	httpez.RegisterAction[listQ, page[T]](e, env, httpez.Action[listQ, page[T]]{
		Method:     http.MethodGet,
		Path:       path,
		Binder:     httpez.BindQuery,
		Capability: capability,
		Handler: func(c *gin.Context, tx *gorm.DB, in *listQ) (page[T], error) {
			var model T
			out := page[T]{Items: []T{}}
			q := tx.Model(&model)
			if scope != nil {
				q = scope(c, q)
			}
			if err := q.Count(&out.Total).Error; err != nil {
				return out, err
			}
			err := q.Order("created_at desc").Offset(in.Offset).Limit(in.limit()).Find(&out.Items).Error
			return out, err
		},
	})
}

// childOf scopes a list to the parent ID in the :id route segment.
func childOf(column string) func(c *gin.Context, q *gorm.DB) *gorm.DB {
	return func(c *gin.Context, q *gorm.DB) *gorm.DB {
		return q.Where(column+" = ?", c.Param("id"))
	}
}

type listQ struct {
	Offset int `form:"offset,default=0"`
	Limit  int `form:"limit,default=20"`
}

func (q *listQ) limit() int {
	if q.Limit <= 0 || q.Limit > 100 {
		return 20
	}
	return q.Limit
}

func ensureExists(tx *gorm.DB, model any, id, name string) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return httpez.NotFound(name + " not found")
	}
	return nil
}

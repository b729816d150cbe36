package changefeed

// Table names a watched table of the backing database.
type Table string

const (
	TableUsers      Table = "users"
	TableAlerts     Table = "alerts"
	TableDeliveries Table = "deliveries"
	TableInventory  Table = "inventory"
)

// DefaultTables are the tables the notification core watches.
var DefaultTables = []Table{TableUsers, TableAlerts, TableDeliveries, TableInventory}

// Op is the row operation that produced an event.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a row change from one table. The concrete type is one of
// UserChange, AlertChange, DeliveryChange, InventoryChange or UnknownChange.
type Event interface {
	Table() Table
	Op() Op
}

// UserChange is a change on the users table.
type UserChange struct {
	Operation Op
	ID        string
	FullName  string
	Role      string
}

func (UserChange) Table() Table { return TableUsers }
func (e UserChange) Op() Op { return e.Operation }

// AlertChange is a change on the alerts table.
type AlertChange struct {
	Operation Op
	ID        string
	WomanName string
	Type      string
	Severity  string
	Status    string
}

func (AlertChange) Table() Table { return TableAlerts }
func (e AlertChange) Op() Op { return e.Operation }

// DeliveryChange is a change on the deliveries table.
type DeliveryChange struct {
	Operation Op
	ID        string
	WomanName string
	Status    string
}

func (DeliveryChange) Table() Table { return TableDeliveries }
func (e DeliveryChange) Op() Op { return e.Operation }

// InventoryChange is a change on the inventory table.
// HasLevels is false when quantity or reorder_level were missing from the row.
type InventoryChange struct {
	Operation    Op
	ID           string
	ItemName     string
	Quantity     int
	ReorderLevel int
	HasLevels    bool
}

func (InventoryChange) Table() Table { return TableInventory }
func (e InventoryChange) Op() Op { return e.Operation }

// Low reports whether the stock is at or below its reorder level.
func (e InventoryChange) Low() bool {
	return e.HasLevels && e.Quantity <= e.ReorderLevel
}

// UnknownChange carries a change from a table without a dedicated variant.
type UnknownChange struct {
	TableName Table
	Operation Op
	Row       map[string]any
}

func (e UnknownChange) Table() Table { return e.TableName }
func (e UnknownChange) Op() Op { return e.Operation }

package changefeed

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Envelope is the JSON payload emitted by the row_changes trigger.
type Envelope struct {
	Table Table           `json:"table"`
	Op    Op              `json:"op"`
	Row   json.RawMessage `json:"row"`
}

// DecodeEnvelope parses a trigger payload into an Event. A payload that is not
// valid JSON still yields an UnknownChange so no change is silently dropped.
func DecodeEnvelope(payload []byte) Event {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return UnknownChange{Operation: OpInsert}
	}
	return Decode(env.Table, env.Op, env.Row)
}

// Decode maps a raw row of table into its Event variant. It never fails:
// missing or malformed fields decode to zero values.
func Decode(table Table, op Op, row []byte) Event {
	fields := map[string]any{}
	if len(row) > 0 {
		_ = json.Unmarshal(row, &fields)
	}

	op = Op(strings.ToLower(string(op)))
	if op == "" {
		op = OpInsert
	}

	switch Table(strings.ToLower(string(table))) {
	case TableUsers:
		return UserChange{
			Operation: op,
			ID:        str(fields, "id"),
			FullName:  str(fields, "full_name"),
			Role:      str(fields, "role"),
		}
	case TableAlerts:
		return AlertChange{
			Operation: op,
			ID:        str(fields, "id"),
			WomanName: str(fields, "woman_name"),
			Type:      str(fields, "type"),
			Severity:  str(fields, "severity"),
			Status:    str(fields, "status"),
		}
	case TableDeliveries:
		return DeliveryChange{
			Operation: op,
			ID:        str(fields, "id"),
			WomanName: str(fields, "woman_name"),
			Status:    str(fields, "status"),
		}
	case TableInventory:
		qty, okQty := integer(fields, "quantity")
		level, okLevel := integer(fields, "reorder_level")
		return InventoryChange{
			Operation:    op,
			ID:           str(fields, "id"),
			ItemName:     str(fields, "item_name"),
			Quantity:     qty,
			ReorderLevel: level,
			HasLevels:    okQty && okLevel,
		}
	default:
		return UnknownChange{TableName: table, Operation: op, Row: fields}
	}
}

// str stringifies a field; numeric ids come through as JSON numbers.
func str(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func integer(fields map[string]any, key string) (int, bool) {
	switch v := fields[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return n, err == nil
	default:
		return 0, false
	}
}

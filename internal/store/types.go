package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/Saymum-GS/Awaken-DIU/internal/domain"
)

// MessageList stores the append-only transcript as a JSON column so the same
// model works across SQLite, MySQL and PostgreSQL.
type MessageList []domain.Message

// Scan implements the sql.Scanner interface for reading from the database.
func (m *MessageList) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("MessageList: unsupported scan type")
	}
}

// Value implements the driver.Valuer interface for writing to the database.
func (m MessageList) Value() (driver.Value, error) {
	if m == nil {
		return "[]", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (MessageList) GormDataType() string {
	return "text"
}

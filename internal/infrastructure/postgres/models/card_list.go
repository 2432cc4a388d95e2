package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/LavaJover/shvark-settlement-service/internal/domain"
)

// CardList is a frozen list of traded cards stored as a jsonb column.
type CardList []domain.CardRef

func (l CardList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *CardList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("card list: unsupported source type %T", src)
	}
	return json.Unmarshal(raw, l)
}

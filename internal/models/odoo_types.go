package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// OdooString is a custom string type that handles Odoo's dynamic typing.
// Odoo returns `false` (boolean) for empty text fields instead of an empty
// string. This type implements json.Unmarshaler to handle both.
type OdooString string

// UnmarshalJSON handles dynamic typing from Odoo
func (os *OdooString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*os = OdooString(s)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			*os = ""
			return nil
		}
		*os = "true"
		return nil
	}

	return errors.New("OdooString: cannot unmarshal value into string")
}

// Value implements driver.Valuer interface for database storage
func (os OdooString) Value() (driver.Value, error) {
	return string(os), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (os *OdooString) Scan(value interface{}) error {
	if value == nil {
		*os = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*os = OdooString(v)
	case []byte:
		*os = OdooString(string(v))
	default:
		return fmt.Errorf("failed to scan OdooString: %v", value)
	}
	return nil
}

// String returns native string value
func (os OdooString) String() string {
	return string(os)
}

// OdooRef is a many2one reference. Odoo serializes these as a `[id, name]`
// tuple, a bare id, or `false` when unset; only the id is kept.
type OdooRef int64

// UnmarshalJSON handles tuple, number and false encodings
func (r *OdooRef) UnmarshalJSON(data []byte) error {
	var tuple []interface{}
	if err := json.Unmarshal(data, &tuple); err == nil {
		if len(tuple) == 0 {
			*r = 0
			return nil
		}
		if id, ok := tuple[0].(float64); ok {
			*r = OdooRef(int64(id))
			return nil
		}
		return errors.New("OdooRef: tuple does not start with an id")
	}

	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		*r = OdooRef(id)
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil && !b {
		*r = 0
		return nil
	}

	return errors.New("OdooRef: cannot unmarshal value into reference")
}

// Value implements driver.Valuer interface for database storage
func (r OdooRef) Value() (driver.Value, error) {
	return int64(r), nil
}

// Scan implements sql.Scanner interface for database retrieval
func (r *OdooRef) Scan(value interface{}) error {
	if value == nil {
		*r = 0
		return nil
	}
	switch v := value.(type) {
	case int64:
		*r = OdooRef(v)
	case float64:
		*r = OdooRef(int64(v))
	default:
		return fmt.Errorf("failed to scan OdooRef: %v", value)
	}
	return nil
}

// Int64 returns the referenced record id
func (r OdooRef) Int64() int64 {
	return int64(r)
}

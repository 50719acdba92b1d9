// Package user defines the user record shared by the local store and the
// remote directory, plus the pure merge rules that combine the two sources.
package user

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// User is a single user record. Records created through this service live in
// the local store; records with ids in the remote space are read-only
// projections of the directory.
type User struct {
	ID             string          `json:"id,omitempty" jsonschema:"user id; assigned on create"`
	Name           string          `json:"name,omitempty"`
	Username       string          `json:"username,omitempty"`
	Email          string          `json:"email,omitempty"`
	Address        *Address        `json:"address,omitempty"`
	Phone          string          `json:"phone,omitempty"`
	Website        string          `json:"website,omitempty"`
	Company        *Company        `json:"company,omitempty"`
	AdditionalInfo *AdditionalInfo `json:"additionalInfo,omitempty"`

	// Handle is the storage handle assigned by the local store. It is opaque
	// outside the store and empty for records that only exist remotely.
	Handle string `json:"-"`
}

// Address is a postal address with optional geo coordinates.
type Address struct {
	Street  string            `json:"street,omitempty"`
	Suite   string            `json:"suite,omitempty"`
	City    string            `json:"city,omitempty"`
	ZipCode string            `json:"zipCode,omitempty"`
	Geo     map[string]string `json:"geo,omitempty"`
}

// Company describes where a user works.
type Company struct {
	Name        string `json:"name,omitempty"`
	CatchPhrase string `json:"catchPhrase,omitempty"`
	BS          string `json:"bs,omitempty"`
}

// AdditionalInfo holds local-only fields with no directory equivalent.
type AdditionalInfo struct {
	FavouriteColor                  string `json:"favouriteColor,omitempty"`
	ArchEnemy                       string `json:"archEnemy,omitempty"`
	AmountOfDogsTheyHopeToOwnOneDay int    `json:"amountOfDogsTheyHopeToOwnOneDay,omitempty"`
	GreatestFear                    string `json:"greatestFear,omitempty"`
}

// UnmarshalJSON accepts the id as either a JSON string or a JSON number. The
// directory serves numeric ids while this service always writes strings.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	id, err := decodeID(aux.ID)
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("user: decode id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("user: id must be a string or number, got %s", raw)
	}
	return n.String(), nil
}

// Clone returns a deep copy of u. The copy shares no pointers or maps with u.
func (u User) Clone() User {
	dst := u
	if u.Address != nil {
		addr := *u.Address
		addr.Geo = maps.Clone(u.Address.Geo)
		dst.Address = &addr
	}
	if u.Company != nil {
		company := *u.Company
		dst.Company = &company
	}
	if u.AdditionalInfo != nil {
		info := *u.AdditionalInfo
		dst.AdditionalInfo = &info
	}
	return dst
}

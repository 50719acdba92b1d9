package store

import (
	"encoding/json"
	"fmt"

	"github.com/dusk-indust/userbridge/internal/user"
)

// The SQL and graph backends keep the nested parts of a user (address, company,
// additional info) as JSON documents next to the flat string columns.

// docColumns holds the encoded nested documents of one user. A nil field means
// the document is absent.
type docColumns struct {
	Address        *string
	Company        *string
	AdditionalInfo *string
}

func encodeDocs(u *user.User) (docColumns, error) {
	var cols docColumns
	var err error
	if cols.Address, err = encodeDoc(u.Address); err != nil {
		return docColumns{}, fmt.Errorf("encode address: %w", err)
	}
	if cols.Company, err = encodeDoc(u.Company); err != nil {
		return docColumns{}, fmt.Errorf("encode company: %w", err)
	}
	if cols.AdditionalInfo, err = encodeDoc(u.AdditionalInfo); err != nil {
		return docColumns{}, fmt.Errorf("encode additional info: %w", err)
	}
	return cols, nil
}

func decodeDocs(u *user.User, cols docColumns) error {
	var err error
	if u.Address, err = decodeDoc[user.Address](cols.Address); err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	if u.Company, err = decodeDoc[user.Company](cols.Company); err != nil {
		return fmt.Errorf("decode company: %w", err)
	}
	if u.AdditionalInfo, err = decodeDoc[user.AdditionalInfo](cols.AdditionalInfo); err != nil {
		return fmt.Errorf("decode additional info: %w", err)
	}
	return nil
}

func encodeDoc[T any](v *T) (*string, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func decodeDoc[T any](data *string) (*T, error) {
	if data == nil || *data == "" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal([]byte(*data), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

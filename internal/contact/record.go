// Package contact defines the contact record held by the contacts store.
//
// Only UID, Tel and ShortTelephone matter to the store's indexes; the other
// fields are carried through untouched.
package contact

import (
	"encoding/json"
	"fmt"
)

// Phone is a single structured phone entry.
type Phone struct {
	Value   string   `json:"value" yaml:"value"`
	Type    []string `json:"type,omitempty" yaml:"type,omitempty"`
	Carrier string   `json:"carrier,omitempty" yaml:"carrier,omitempty"`
}

// Record is a contact as stored in the backend.
type Record struct {
	UID            string         `json:"uid" yaml:"uid"`
	Name           []string       `json:"name,omitempty" yaml:"name,omitempty"`
	GivenName      []string       `json:"givenName,omitempty" yaml:"givenName,omitempty"`
	FamilyName     []string       `json:"familyName,omitempty" yaml:"familyName,omitempty"`
	Email          []string       `json:"email,omitempty" yaml:"email,omitempty"`
	Tel            []Phone        `json:"tel,omitempty" yaml:"tel,omitempty"`
	ShortTelephone []string       `json:"shortTelephone,omitempty" yaml:"shortTelephone,omitempty"`
	Extra          map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// PhoneValues returns the value of every Tel entry in order.
func (r Record) PhoneValues() []string {
	values := make([]string, 0, len(r.Tel))
	for _, tel := range r.Tel {
		values = append(values, tel.Value)
	}
	return values
}

// Clone returns a deep copy of r. Extra values are copied one level deep.
func (r Record) Clone() Record {
	c := r
	c.Name = cloneStrings(r.Name)
	c.GivenName = cloneStrings(r.GivenName)
	c.FamilyName = cloneStrings(r.FamilyName)
	c.Email = cloneStrings(r.Email)
	c.ShortTelephone = cloneStrings(r.ShortTelephone)
	if r.Tel != nil {
		c.Tel = make([]Phone, len(r.Tel))
		for i, tel := range r.Tel {
			tel.Type = cloneStrings(tel.Type)
			c.Tel[i] = tel
		}
	}
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Validate checks the fields the store depends on.
func (r Record) Validate() error {
	if r.UID == "" {
		return fmt.Errorf("contact: uid is required")
	}
	for i, tel := range r.Tel {
		if tel.Value == "" {
			return fmt.Errorf("contact %s: tel[%d] has empty value", r.UID, i)
		}
	}
	return nil
}

// Marshal encodes r for storage.
func Marshal(r Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal contact %s: %w", r.UID, err)
	}
	return data, nil
}

// Unmarshal decodes a stored record.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshal contact: %w", err)
	}
	return r, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

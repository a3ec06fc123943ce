package weapon

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// catalogFile is the on-disk layout of a weapon catalog. Ammo types are declared once and
// referenced by item from every weapon that accepts them.
type catalogFile struct {
	Ammo    []AmmoType    `json:"ammo"`
	Weapons []weaponEntry `json:"weapons"`
}

type weaponEntry struct {
	Options
	AcceptedAmmo []ItemID `json:"acceptedAmmo"`
}

// UnmarshalJSON starts from the stock parameters so fields left out of the file keep their
// defaults.
func (e *weaponEntry) UnmarshalJSON(data []byte) error {
	type plain weaponEntry
	entry := plain{Options: DefaultOptions("")}
	if err := json.Unmarshal(data, &entry); err != nil {
		return err
	}
	*e = weaponEntry(entry)
	return nil
}

// Catalog is a set of weapon definitions loaded together.
type Catalog struct {
	names   []string
	weapons map[string]*Definition
}

// LoadCatalog decodes a JSON catalog and builds every weapon it declares.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, eris.Wrap(err, "failed to decode weapon catalog")
	}

	ammo := make(map[ItemID]AmmoType, len(file.Ammo))
	for _, a := range file.Ammo {
		if _, exists := ammo[a.Item]; exists {
			return nil, eris.Errorf("duplicate ammo type for item %s", a.Item)
		}
		ammo[a.Item] = a
	}

	c := &Catalog{
		names:   make([]string, 0, len(file.Weapons)),
		weapons: make(map[string]*Definition, len(file.Weapons)),
	}
	for _, entry := range file.Weapons {
		opts := entry.Options
		for _, item := range entry.AcceptedAmmo {
			a, ok := ammo[item]
			if !ok {
				return nil, eris.Errorf("weapon %s references unknown ammo item %s", opts.Name, item)
			}
			opts.Ammo = append(opts.Ammo, a)
		}

		def, err := New(opts)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to build weapon %q", opts.Name)
		}
		if _, exists := c.weapons[def.Name()]; exists {
			return nil, eris.Errorf("duplicate weapon %s", def.Name())
		}
		c.names = append(c.names, def.Name())
		c.weapons[def.Name()] = def
	}
	return c, nil
}

// Weapon returns the definition with the given name.
func (c *Catalog) Weapon(name string) (*Definition, bool) {
	def, ok := c.weapons[name]
	return def, ok
}

// Names returns the weapon names in declaration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

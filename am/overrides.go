package am

import (
	"github.com/BurntSushi/toml"

	"github.com/teranos/ngmigrate/errors"
)

// Override replaces the generated name, identifier or scope of one legacy entity.
//
//	[[override]]
//	type = "SERVICE"
//	id = "svc-123"
//	identifier = "payments_api"
//	scope = "org"
type Override struct {
	Type       string `toml:"type"`
	ID         string `toml:"id"`
	Name       string `toml:"name"`
	Identifier string `toml:"identifier"`
	Scope      string `toml:"scope"`
}

type overridesFile struct {
	Override []Override `toml:"override"`
}

// LoadOverrides reads per-entity overrides from a TOML file.
func LoadOverrides(path string) ([]Override, error) {
	var f overridesFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read overrides %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Newf("unknown keys in overrides %s: %v", path, undecoded)
	}
	for i, o := range f.Override {
		if o.Type == "" || o.ID == "" {
			return nil, errors.Newf("override %d in %s needs type and id", i, path)
		}
		if o.Scope != "" && !validScopes[o.Scope] {
			return nil, errors.Newf("override %d in %s has invalid scope %q", i, path, o.Scope)
		}
	}
	return f.Override, nil
}

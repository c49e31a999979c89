package strategies

import (
	"context"
	"path"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/expr"
	"github.com/teranos/ngmigrate/migrate"
	"github.com/teranos/ngmigrate/ng"
	"github.com/teranos/ngmigrate/secrets"
)

// ConfigFile migrates a config file into a file store entry. Config files
// are only migrated with their owner unless every entity is requested.
func ConfigFile() migrate.Strategy {
	s := base(cg.ConfigFile)
	s.Discover = func(ctx context.Context, store cg.Store, e cg.Entity) (*migrate.Node, []cg.EntityRef, error) {
		f := e.(*cg.ConfigFileEntity)
		children := refs(cg.Secret, f.EncryptedFileID)
		named, err := secretChildren(ctx, store, f.AppID, f.Content)
		if err != nil {
			return nil, nil, err
		}
		return node(e), append(children, named...), nil
	}
	s.CanMigrate = func(_ string, root cg.EntityRef, migrateAll bool) bool {
		return migrateAll || root.Type == cg.Service || root.Type == cg.Environment
	}
	s.Generate = func(mc *migrate.Context, ref cg.EntityRef) (*migrate.Generated, error) {
		f, err := entity[*cg.ConfigFileEntity](mc, ref)
		if err != nil {
			return nil, err
		}
		var secret string
		if f.Encrypted {
			res := mc.Resolve(cg.Ref(cg.Secret, f.EncryptedFileID))
			if res.RuntimeInput {
				return skip(ref, "encrypted file secret not migrated: %s", f.EncryptedFileID), nil
			}
			secret = res.String()
		}

		scope := mc.ScopeFor(ref)
		return single(build(mc, document{
			ref:   ref,
			t:     ng.File,
			name:  path.Base(f.RelativeFilePath),
			scope: scope,
			body: func(id, name string) expr.Value {
				m := header(name, id, scope)
				m = append(m,
					expr.Field{Key: "type", Value: expr.String("File")},
					expr.Field{Key: "fileUsage", Value: expr.String("Config")},
					expr.Field{Key: "path", Value: expr.String(f.RelativeFilePath)},
				)
				if f.Encrypted {
					m = append(m, expr.Field{Key: "content", Value: expr.String(secrets.Reference(secret))})
				} else {
					m = append(m, expr.Field{Key: "content", Value: expr.String(f.Content)})
				}
				return expr.Map{{Key: "file", Value: m}}
			},
			layers: []expr.Bindings{secretBindings(mc, ref, f.Content), ownerBindings(mc, f)},
		}))
	}
	return s
}

func ownerBindings(mc *migrate.Context, f *cg.ConfigFileEntity) expr.Bindings {
	b := expr.Bindings{}
	switch f.OwnerType {
	case cg.OwnerService:
		if e := mc.Entity(cg.Ref(cg.Service, f.OwnerID)); e != nil {
			b["service.name"] = e.DisplayName()
		}
	case cg.OwnerEnvironment:
		if e := mc.Entity(cg.Ref(cg.Environment, f.OwnerID)); e != nil {
			b["env.name"] = e.DisplayName()
		}
	}
	return b
}

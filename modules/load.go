package modules

import (
	"github.com/aqlhr/import-engine/modules/core"
	"github.com/aqlhr/import-engine/modules/documents"
	"github.com/aqlhr/import-engine/modules/hrm"
	"github.com/aqlhr/import-engine/modules/importer"
	"github.com/aqlhr/import-engine/pkg/application"
)

// BuiltInModules returns the modules in registration order. The importer
// module resolves services from hrm and documents, so it must come last.
func BuiltInModules() []application.Module {
	return []application.Module{
		core.NewModule(),
		hrm.NewModule(),
		documents.NewModule(),
		importer.NewModule(),
	}
}

func Load(app application.Application, mods ...application.Module) error {
	return application.Load(app, mods...)
}

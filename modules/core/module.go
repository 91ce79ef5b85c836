package core

import (
	"embed"

	"github.com/aqlhr/import-engine/modules/core/infrastructure/persistence"
	"github.com/aqlhr/import-engine/modules/core/services"
	"github.com/aqlhr/import-engine/pkg/application"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema("core", &MigrationFiles)
	app.RegisterServices(
		services.NewTenantService(persistence.NewTenantRepository()),
	)
	return nil
}

func (m *Module) Name() string {
	return "core"
}

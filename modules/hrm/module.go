package hrm

import (
	"embed"

	"github.com/aqlhr/import-engine/modules/hrm/infrastructure/persistence"
	"github.com/aqlhr/import-engine/modules/hrm/services"
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
	app.Migrations().RegisterSchema("hrm", &MigrationFiles)
	app.RegisterServices(
		services.NewEmployeeService(persistence.NewEmployeeRepository(), app.EventPublisher()),
	)
	return nil
}

func (m *Module) Name() string {
	return "hrm"
}

package documents

import (
	"embed"

	"github.com/aqlhr/import-engine/modules/documents/infrastructure/persistence"
	"github.com/aqlhr/import-engine/modules/documents/services"
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
	app.Migrations().RegisterSchema("documents", &MigrationFiles)
	app.RegisterServices(
		services.NewDocumentService(persistence.NewDocumentRepository(), app.EventPublisher()),
	)
	return nil
}

func (m *Module) Name() string {
	return "documents"
}

package importer

import (
	"embed"

	docservices "github.com/aqlhr/import-engine/modules/documents/services"
	hrmservices "github.com/aqlhr/import-engine/modules/hrm/services"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/infrastructure/persistence"
	"github.com/aqlhr/import-engine/modules/importer/presentation/controllers"
	"github.com/aqlhr/import-engine/modules/importer/services"
	"github.com/aqlhr/import-engine/pkg/application"
	"github.com/aqlhr/import-engine/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

// Register wires the importer against the hrm and documents services, so the
// importer module must load after them.
func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema("importer", &MigrationFiles)

	conf := configuration.Use()
	employees := app.Service(hrmservices.EmployeeService{}).(*hrmservices.EmployeeService)
	documents := app.Service(docservices.DocumentService{}).(*docservices.DocumentService)

	strategies := map[importjob.Mode]services.ModeStrategy{
		importjob.ModeEmployees:           services.NewEmployeesStrategy(employees),
		importjob.ModeGovernmentDocuments: services.NewDocumentsStrategy(documents, conf.Import.DefaultPortal),
	}

	jobs := persistence.NewImportJobRepository()
	rows := persistence.NewImportRowRepository()

	app.RegisterServices(
		services.NewRetryService(jobs, rows, strategies, app.EventPublisher(), conf.Import.RetryConcurrency),
		services.NewReconcilerService(jobs, app.EventPublisher(), conf.Reconciler.Lookback),
	)
	app.RegisterControllers(
		controllers.NewImportAPIController(app),
	)

	services.NewMetricsRecorder(nil).Register(app.EventPublisher())
	return nil
}

func (m *Module) Name() string {
	return "importer"
}

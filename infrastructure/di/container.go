package di

import (
	"net/http"

	"go.uber.org/zap"

	"strategy-editor/application/session"
	"strategy-editor/infrastructure/config"
	"strategy-editor/infrastructure/observability"
	"strategy-editor/infrastructure/persistence"
	"strategy-editor/interfaces/http/rest"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *observability.Collector
	Tracing    *observability.TracerProvider
	Watcher    *config.RulesWatcher
	Repository *persistence.Repository
	Autosaver  *persistence.Autosaver
	Session    *session.Session
	Host       *rest.SessionHost
	Router     http.Handler
}

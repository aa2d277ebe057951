// Package wingtipsfx integrates wingtips with Fx applications.
//
// Module provides a *wingtips.Tracer built from an optional
// *wingtips.Config and *zap.Logger in the dependency graph, and closes the
// tracer on application shutdown so listener registrations and id pools do
// not outlive the app.
//
//	app := fx.New(
//	    wingtipsfx.Module,
//	    fx.Provide(func() *wingtips.Config {
//	        return &wingtips.Config{ServiceName: "orders"}
//	    }),
//	    fx.Invoke(func(tracer *wingtips.Tracer) { ... }),
//	)
package wingtipsfx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nvanlo/wingtips"
)

// Module wires tracer construction and shutdown into an Fx application.
var Module = fx.Module("wingtips",
	fx.Provide(NewTracer),
	fx.Invoke(registerLifecycle),
)

// Params collects the module's dependencies. Both are optional: a missing
// Config falls back to defaults and a missing logger keeps the tracer
// silent.
type Params struct {
	fx.In

	Config *wingtips.Config `optional:"true"`
	Logger *zap.Logger      `optional:"true"`
}

// NewTracer builds the application tracer from the injected configuration.
func NewTracer(p Params) *wingtips.Tracer {
	var opts []wingtips.Option
	if p.Logger != nil {
		opts = append(opts, wingtips.WithLogger(p.Logger))
	}
	return wingtips.NewTracerFromConfig(p.Config, opts...)
}

func registerLifecycle(lc fx.Lifecycle, tracer *wingtips.Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tracer.Close()
			return nil
		},
	})
}

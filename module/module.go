// Package module groups functions into a module: a named, versioned set of
// functions whose types share one registry, served through a
// transport-neutral Call.
package module

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/reoring/gomodel"
	"github.com/reoring/gomodel/function"
)

var (
	ErrEmptyModule     = errors.New("module: no functions")
	ErrUnknownFunction = errors.New("module: unknown function")
)

// Definition describes a module.
type Definition struct {
	Name      string
	Version   string
	Functions map[string]*function.Function
	Logger    zerolog.Logger
	// Metrics instruments every function when set.
	Metrics *function.Metrics
	// ExposeFaults sends the message of a fault as AdditionalInfo. Policy
	// violations are always sent.
	ExposeFaults bool
}

// Module is a built module. It is immutable and safe for concurrent calls.
type Module struct {
	name      string
	version   string
	functions map[string]*function.Function
	names     []string
	registry  *gomodel.Registry
	logger    zerolog.Logger

	exposeFaults bool
}

// Build checks def and registers every named type reachable from the
// functions into a fresh registry. Two distinct types with the same name make
// the build fail with gomodel.ErrNameCollision.
func Build(def Definition) (*Module, error) {
	if len(def.Functions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyModule, def.Name)
	}
	m := &Module{
		name:      def.Name,
		version:   def.Version,
		functions: make(map[string]*function.Function, len(def.Functions)),
		registry:  gomodel.NewRegistry(),
		logger:    def.Logger.With().Str("module", def.Name).Logger(),

		exposeFaults: def.ExposeFaults,
	}
	for name := range def.Functions {
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)

	for _, name := range m.names {
		fn := def.Functions[name]
		if fn == nil {
			return nil, fmt.Errorf("module %s: function %s is nil", def.Name, name)
		}
		if err := m.register(name, fn); err != nil {
			return nil, err
		}
		if def.Metrics != nil {
			fn = fn.Instrument(def.Metrics)
		}
		m.functions[name] = fn
	}
	return m, nil
}

func (m *Module) register(name string, fn *function.Function) error {
	types := []*gomodel.Type{fn.Input, fn.Output}
	errNames := make([]string, 0, len(fn.Errors))
	for e := range fn.Errors {
		errNames = append(errNames, e)
	}
	sort.Strings(errNames)
	for _, e := range errNames {
		types = append(types, fn.Errors[e])
	}
	for _, t := range types {
		if err := m.registry.Register(t); err != nil {
			return fmt.Errorf("module %s: function %s: %w", m.name, name, err)
		}
	}
	return nil
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Version returns the module version.
func (m *Module) Version() string { return m.version }

// Registry returns the registry of the named types of the module.
func (m *Module) Registry() *gomodel.Registry { return m.registry }

// Functions returns the function names, sorted.
func (m *Module) Functions() []string { return append([]string(nil), m.names...) }

// Function returns the function registered under name.
func (m *Module) Function(name string) (*function.Function, bool) {
	fn, ok := m.functions[name]
	return fn, ok
}

package engine

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"tally/internal/config"
	"tally/internal/ir"
	"tally/internal/modules"
	"tally/internal/parser"
	"tally/internal/runtime"
	"tally/internal/store"
	"tally/internal/vm"
)

var log = commonlog.GetLogger("tally.engine")

// Engine composes parse, compile and execute for a host. Compiled units are
// optionally cached in a Store keyed by source text; the runtime Env
// supplies extern values.
type Engine struct {
	env   *runtime.Env
	store *store.Store
	cache bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore attaches a store. When cache is set, compiled units are saved
// to and loaded from it.
func WithStore(s *store.Store, cache bool) Option {
	return func(e *Engine) {
		e.store = s
		e.cache = cache
	}
}

// New creates an engine resolving externs through env. A nil env means
// runtime.DefaultEnv().
func New(env *runtime.Env, opts ...Option) *Engine {
	if env == nil {
		env = runtime.DefaultEnv()
	}
	e := &Engine{env: env}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromConfig builds an engine from a loaded configuration: the Env comes
// from the resolver and constants sections, and a configured store is
// opened and its constants loaded on top.
func FromConfig(c *config.Config) (*Engine, error) {
	env := c.NewEnv()
	if c.Store.Driver == "" {
		return New(env), nil
	}
	s, err := store.Open(c.Store.Driver, c.StoreDSN())
	if err != nil {
		return nil, err
	}
	e := New(env, WithStore(s, c.Store.Cache))
	if err := e.LoadConstants(); err != nil {
		s.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

func (e *Engine) Env() *runtime.Env {
	return e.env
}

// Store returns the attached store, or nil.
func (e *Engine) Store() *store.Store {
	return e.store
}

// LoadConstants copies the store's constants into the Env.
func (e *Engine) LoadConstants() error {
	if e.store == nil {
		return nil
	}
	consts, err := e.store.Constants()
	if err != nil {
		return err
	}
	e.env.SetAll(consts)
	log.Infof("loaded %d constants from %s store", len(consts), e.store.Driver())
	return nil
}

// Compile parses and compiles src, consulting the unit cache first.
func (e *Engine) Compile(src string) (*ir.ByteCode, error) {
	key := ""
	if e.caching() {
		key = store.Key(src)
		if bc, ok := e.cached(key); ok {
			return bc, nil
		}
	}

	list, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	bc := ir.Compile(list)
	log.Debugf("compiled %d instructions, %d locals, %d externs",
		len(bc.Instructions()), bc.Locals().Len(), bc.Externs().Len())

	if key != "" {
		e.save(key, bc)
	}
	return bc, nil
}

// CompileWorld links every file of w into one unit, consulting the cache
// with the concatenated source as key.
func (e *Engine) CompileWorld(w *modules.World) (*ir.ByteCode, error) {
	key := ""
	if e.caching() {
		key = store.Key(w.Source())
		if bc, ok := e.cached(key); ok {
			return bc, nil
		}
	}
	bc := w.Link()
	log.Debugf("linked %d files: %d instructions, %d locals, %d externs",
		len(w.Files), len(bc.Instructions()), bc.Locals().Len(), bc.Externs().Len())
	if key != "" {
		e.save(key, bc)
	}
	return bc, nil
}

// Execute runs bc against the engine's Env.
func (e *Engine) Execute(bc *ir.ByteCode) (*vm.Result, error) {
	return vm.Execute(bc, e.env)
}

// Eval compiles and executes src.
func (e *Engine) Eval(src string) (*vm.Result, error) {
	bc, err := e.Compile(src)
	if err != nil {
		return nil, err
	}
	return e.Execute(bc)
}

// SetConstant binds name in the Env and, when a store is attached,
// persists it.
func (e *Engine) SetConstant(name string, value float64) error {
	if e.store != nil {
		if err := e.store.SetConstant(name, value); err != nil {
			return err
		}
	}
	e.env.Set(name, value)
	return nil
}

func (e *Engine) caching() bool {
	return e.store != nil && e.cache
}

func (e *Engine) cached(key string) (*ir.ByteCode, bool) {
	bc, err := e.store.LoadUnit(key)
	switch {
	case err == nil:
		log.Debugf("cache hit %s", key)
		return bc, true
	case errors.Is(err, store.ErrUnitNotFound):
		log.Debugf("cache miss %s", key)
	default:
		log.Warningf("cache read %s: %s", key, err)
	}
	return nil, false
}

func (e *Engine) save(key string, bc *ir.ByteCode) {
	if err := e.store.SaveUnit(key, bc); err != nil {
		log.Warningf("cache write %s: %s", key, err)
	}
}

// Session evaluates input incrementally: every Feed appends to one unit, so
// names assigned by earlier input stay locals with their values.
type Session struct {
	engine  *Engine
	bc      *ir.ByteCode
	machine *vm.Machine
}

// NewSession starts an empty session on e.
func (e *Engine) NewSession() *Session {
	bc := ir.New()
	return &Session{
		engine:  e,
		bc:      bc,
		machine: vm.New(bc),
	}
}

// Feed parses, compiles and runs src in the session. A parse error leaves
// the session unchanged.
func (s *Session) Feed(src string) (*vm.Result, error) {
	list, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	ir.CompileInto(list, s.bc)
	res, err := s.machine.Run(s.engine.env)
	if err != nil {
		return nil, fmt.Errorf("run: %w", err)
	}
	return res, nil
}

// ByteCode returns the session's accumulated unit.
func (s *Session) ByteCode() *ir.ByteCode {
	return s.bc
}

// Bindings returns the session's locals keyed by name.
func (s *Session) Bindings() map[string]float64 {
	locals := s.machine.Locals()
	out := make(map[string]float64, len(locals))
	for slot, name := range s.bc.Locals().Names() {
		if slot < len(locals) {
			out[name] = locals[slot]
		}
	}
	return out
}

// Reset discards everything fed so far.
func (s *Session) Reset() {
	s.bc.Clear()
	s.machine.Reset()
}

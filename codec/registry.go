package codec

import (
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
)

// Registry derives codecs on first use and caches them for its lifetime.
//
// Lookups are lock-free. Derivation is serialized by one lock per registry,
// so concurrent first users of a type block until the single derivation
// finishes and then share its codec. A type that fails to derive keeps
// failing with the same error; derivation failures are a property of the
// type, not a transient condition.
//
// Registration methods are meant for program start-up. Registering
// something that changes an already derived codec is reported as a
// derivation conflict.
type Registry struct {
	codecs  sync.Map // reflect.Type -> Codec
	failed  sync.Map // reflect.Type -> error
	schemas sync.Map // schema.Key -> Codec

	mu        sync.Mutex
	unions    map[reflect.Type][]reflect.Type
	types     []reflect.Type
	enums     map[reflect.Type][]string
	names     map[reflect.Type]string
	ctors     map[reflect.Type]reflect.Value
	factories map[reflect.Type]reflect.Value
	open      map[reflect.Type]bool

	logger *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger. Without it the package Logger is
// used.
func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		unions:    make(map[reflect.Type][]reflect.Type),
		enums:     make(map[reflect.Type][]string),
		names:     make(map[reflect.Type]string),
		ctors:     make(map[reflect.Type]reflect.Value),
		factories: make(map[reflect.Type]reflect.Value),
		open:      make(map[reflect.Type]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

func (r *Registry) log() *zap.Logger {
	if r.logger != nil {
		return r.logger
	}
	return Logger()
}

// CodecFor returns the codec for t, deriving it and every codec it depends
// on if needed.
func (r *Registry) CodecFor(t reflect.Type) (Codec, error) {
	if t == nil {
		return nil, errors.InvalidInput(errors.PhaseDerive, "nil type")
	}
	if c, ok := r.codecs.Load(t); ok {
		return c.(Codec), nil
	}
	if err, ok := r.failed.Load(t); ok {
		return nil, err.(error)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have derived t while we waited.
	if c, ok := r.codecs.Load(t); ok {
		return c.(Codec), nil
	}
	if err, ok := r.failed.Load(t); ok {
		return nil, err.(error)
	}

	start := time.Now()
	s := newSession(r)
	c, err := s.derive(t)
	if err == nil {
		err = s.finish(c)
	}
	if err != nil {
		s.failures[t] = err
		for ft, ferr := range s.failures {
			r.failed.LoadOrStore(ft, ferr)
		}
		r.log().Warn("codec derivation failed",
			zap.Stringer("type", t),
			zap.Error(err))
		return nil, err
	}
	if err := s.publish(); err != nil {
		r.log().Warn("codec publication conflict", zap.Stringer("type", t), zap.Error(err))
		return nil, err
	}
	r.log().Debug("derived codec",
		zap.Stringer("type", t),
		zap.String("schema", c.Schema().TypeName()),
		zap.Stringer("strategy", StrategyOf(c)),
		zap.Int("codecs", len(s.order)),
		zap.Duration("elapsed", time.Since(start)))
	return c, nil
}

// CodecForSchema returns a schema-driven codec for d. Its host values are
// map[string]any for records, []any for arrays, map[string]any for maps,
// string for enums, []byte for bytes and fixed, int8, int32, int64,
// float32, float64, bool and string for the scalar kinds, and for unions
// either a Union or a bare value of one of those shapes. Codecs are cached
// by the full schema text.
func (r *Registry) CodecForSchema(d *schema.Descriptor) (Codec, error) {
	if d == nil {
		return nil, errors.InvalidInput(errors.PhaseDerive, "nil schema")
	}
	key := schema.Key(d)
	if c, ok := r.schemas.Load(key); ok {
		return c.(Codec), nil
	}
	if err := schema.Validate(d); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.schemas.Load(key); ok {
		return c.(Codec), nil
	}
	g := &genericBuilder{built: make(map[*schema.Descriptor]Codec)}
	c := g.build(d)
	r.schemas.Store(key, c)
	r.log().Debug("built schema codec",
		zap.String("schema", d.TypeName()),
		zap.Int("codecs", len(g.built)))
	return c, nil
}

// session is one derivation. Codecs are inserted into pending before their
// children are derived, so recursive references resolve to the same
// instance. Nothing is visible to other callers until publish.
type session struct {
	r          *Registry
	pending    map[reflect.Type]Codec
	order      []reflect.Type
	active     map[reflect.Type]int
	stack      []frame
	finalizers []func() error
	failures   map[reflect.Type]error
	open       []reflect.Type
}

type frame struct {
	t     reflect.Type
	named bool
}

// mark is a rollback point inside a session.
type mark struct {
	order, finalizers, open int
}

func newSession(r *Registry) *session {
	return &session{
		r:        r,
		pending:  make(map[reflect.Type]Codec),
		active:   make(map[reflect.Type]int),
		failures: make(map[reflect.Type]error),
	}
}

// derive returns the codec for t from the registry, from this session, or
// by compiling it.
func (s *session) derive(t reflect.Type) (Codec, error) {
	if c, ok := s.r.codecs.Load(t); ok {
		return c.(Codec), nil
	}
	if err, ok := s.r.failed.Load(t); ok {
		return nil, err.(error)
	}
	if err, ok := s.failures[t]; ok {
		return nil, err
	}
	if c, ok := s.pending[t]; ok {
		if pos, inProgress := s.active[t]; inProgress {
			for _, f := range s.stack[pos:] {
				if f.named {
					return c, nil
				}
			}
			return nil, errors.UnsupportedType(nil, t.String(),
				"recursive type must pass through a named record")
		}
		return c, nil
	}
	c, err := s.compile(t)
	if err != nil {
		if _, ok := s.failures[t]; !ok {
			s.failures[t] = err
		}
		return nil, err
	}
	return c, nil
}

// begin registers c as the placeholder for t and pushes t on the
// derivation stack.
func (s *session) begin(t reflect.Type, c Codec, named bool) {
	s.add(t, c)
	s.active[t] = len(s.stack)
	s.stack = append(s.stack, frame{t: t, named: named})
}

func (s *session) end(t reflect.Type) {
	delete(s.active, t)
	s.stack = s.stack[:len(s.stack)-1]
}

func (s *session) add(t reflect.Type, c Codec) {
	s.pending[t] = c
	s.order = append(s.order, t)
}

func (s *session) mark() mark {
	return mark{order: len(s.order), finalizers: len(s.finalizers), open: len(s.open)}
}

// rollback discards every codec added since m.
func (s *session) rollback(m mark) {
	for _, t := range s.order[m.order:] {
		delete(s.pending, t)
	}
	s.order = s.order[:m.order]
	s.finalizers = s.finalizers[:m.finalizers]
	s.open = s.open[:m.open]
}

// finish runs deferred work that needs complete child codecs, then checks
// the resulting schema.
func (s *session) finish(root Codec) error {
	for _, fn := range s.finalizers {
		if err := fn(); err != nil {
			return err
		}
	}
	if err := schema.Validate(root.Schema()); err != nil {
		return errors.New(errors.PhaseDerive, errors.KindUnsupportedType).
			Schema(root.Schema().TypeName()).
			Cause(err).
			Detail("derived schema is invalid").
			Build()
	}
	return nil
}

func (s *session) publish() error {
	for _, t := range s.order {
		c := s.pending[t]
		if prev, loaded := s.r.codecs.LoadOrStore(t, c); loaded && prev.(Codec) != c {
			return errors.DerivationConflict(t.String(), "a different codec was published concurrently")
		}
	}
	for ft, err := range s.failures {
		s.r.failed.LoadOrStore(ft, err)
	}
	for _, t := range s.open {
		s.r.open[t] = true
	}
	return nil
}

package codec

import (
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
)

// compile derives the codec for a type that is neither published nor
// pending in the session.
func (s *session) compile(t reflect.Type) (Codec, error) {
	switch {
	case t == nullType:
		c := newPrimitive(schema.Null, t)
		s.add(t, c)
		return c, nil
	case t == unionType:
		return nil, errors.UnsupportedType(nil, t.String(), "Union values need a schema-driven codec")
	case t.Implements(eitherType):
		return s.compileEither(t)
	}

	if symbols, ok := s.r.enums[t]; ok {
		return s.compileEnum(t, symbols)
	}
	if t.Implements(symbolsType) && isEnumKind(t.Kind()) {
		return s.compileEnum(t, reflect.Zero(t).Interface().(EnumSymbols).EnumSymbols())
	}
	if t.Kind() != reflect.Slice {
		if m, ok := t.MethodByName("Elements"); ok && t.Kind() != reflect.Interface {
			return s.compileCollection(t, m)
		}
	}

	switch t.Kind() {
	case reflect.Bool:
		return s.primitive(t, schema.Boolean)
	case reflect.Int8:
		return s.primitive(t, schema.Byte)
	case reflect.Int16, reflect.Uint8, reflect.Uint16, reflect.Int32:
		return s.primitive(t, schema.Int)
	case reflect.Uint32, reflect.Int, reflect.Int64:
		return s.primitive(t, schema.Long)
	case reflect.Float32:
		return s.primitive(t, schema.Float)
	case reflect.Float64:
		return s.primitive(t, schema.Double)
	case reflect.String:
		return s.primitive(t, schema.String)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return s.primitive(t, schema.Bytes)
		}
		return s.compileArray(t)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return s.compileFixed(t)
		}
		return s.compileArray(t)
	case reflect.Map:
		if isSetElem(t.Elem()) {
			return s.compileSet(t)
		}
		if t.Key().Kind() == reflect.String {
			return s.compileMap(t)
		}
		return nil, errors.UnsupportedType(nil, t.String(), "map keys must be strings")
	case reflect.Pointer:
		return s.compileOption(t)
	case reflect.Interface:
		return s.compileUnion(t)
	case reflect.Struct:
		return s.compileRecord(t)
	}
	return nil, errors.UnsupportedType(nil, t.String(), "no schema for kind %s", t.Kind())
}

func (s *session) primitive(t reflect.Type, k schema.Kind) (Codec, error) {
	c := newPrimitive(k, t)
	s.add(t, c)
	return c, nil
}

func isEnumKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return true
	}
	return false
}

func isSetElem(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0 && t != nullType
}

// typeName returns the full schema name of a named type: a registered
// name, a SchemaName method, or the sanitized "<package>.<Type>".
func (s *session) typeName(t reflect.Type) string {
	if n, ok := s.r.names[t]; ok {
		return n
	}
	if t.Implements(namerType) {
		return reflect.Zero(t).Interface().(SchemaNamer).SchemaName()
	}
	if reflect.PointerTo(t).Implements(namerType) {
		return reflect.New(t).Interface().(SchemaNamer).SchemaName()
	}
	if t.Name() == "" {
		return ""
	}
	if t.PkgPath() == "" {
		return sanitize(t.Name())
	}
	return sanitize(path.Base(t.PkgPath())) + "." + sanitize(t.Name())
}

// sanitize maps an arbitrary Go name onto a schema identifier.
func sanitize(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (s *session) namedOrFail(t reflect.Type, what string) (string, error) {
	name := s.typeName(t)
	if name == "" {
		return "", errors.UnsupportedType(nil, t.String(), "anonymous %s needs a registered name", what)
	}
	if !schema.ValidFullName(name) {
		return "", errors.UnsupportedType(nil, t.String(), "invalid schema name %q", name)
	}
	return name, nil
}

func (s *session) compileEnum(t reflect.Type, symbols []string) (Codec, error) {
	if !isEnumKind(t.Kind()) {
		return nil, errors.UnsupportedType(nil, t.String(), "enumerations must have an integer or string kind")
	}
	name, err := s.namedOrFail(t, "enum")
	if err != nil {
		return nil, err
	}
	desc := schema.NewEnum(name, symbols...)
	if err := schema.Validate(desc); err != nil {
		return nil, errors.New(errors.PhaseDerive, errors.KindUnsupportedType).
			GoType(t.String()).
			Cause(err).
			Detail("invalid enum symbols").
			Build()
	}
	if t.Kind() != reflect.String && len(symbols) > 1 && !fitsIndex(t.Kind(), len(symbols)-1) {
		return nil, errors.UnsupportedType(nil, t.String(), "%d symbols do not fit %s", len(symbols), t.Kind())
	}
	c := &enumCodec{desc: desc, typ: t}
	s.add(t, c)
	return c, nil
}

func fitsIndex(k reflect.Kind, n int) bool {
	switch k {
	case reflect.Int8:
		return n <= 1<<7-1
	case reflect.Uint8:
		return n <= 1<<8-1
	case reflect.Int16:
		return n <= 1<<15-1
	case reflect.Uint16:
		return n <= 1<<16-1
	}
	return true
}

func (s *session) compileFixed(t reflect.Type) (Codec, error) {
	name := s.typeName(t)
	if name == "" {
		name = "fixed_" + strconv.Itoa(t.Len())
	}
	if !schema.ValidFullName(name) {
		return nil, errors.UnsupportedType(nil, t.String(), "invalid schema name %q", name)
	}
	c := &fixedCodec{desc: schema.NewFixed(name, t.Len()), typ: t}
	s.add(t, c)
	return c, nil
}

func (s *session) compileArray(t reflect.Type) (Codec, error) {
	desc := &schema.Descriptor{Kind: schema.Array}
	c := &arrayCodec{desc: desc, typ: t, source: fromSlice, build: sliceFactory{}}
	if fn, ok := s.r.factories[t]; ok {
		b, err := factoryFor(fn, t, t.Elem())
		if err != nil {
			return nil, err
		}
		c.build = b
	}
	s.begin(t, c, false)
	defer s.end(t)

	items, err := s.derive(t.Elem())
	if err != nil {
		return nil, errors.WithPath(err, "[]")
	}
	c.items = items
	desc.Items = items.Schema()
	return c, nil
}

func (s *session) compileSet(t reflect.Type) (Codec, error) {
	desc := &schema.Descriptor{Kind: schema.Array}
	c := &arrayCodec{desc: desc, typ: t, source: fromSet, build: setBuilder{}}
	s.begin(t, c, false)
	defer s.end(t)

	items, err := s.derive(t.Key())
	if err != nil {
		return nil, errors.WithPath(err, "[]")
	}
	c.items = items
	desc.Items = items.Schema()
	return c, nil
}

// compileCollection derives a custom collection: Elements() []E for
// writing, and a registered factory or (*T).Append(E) for reading.
func (s *session) compileCollection(t reflect.Type, m reflect.Method) (Codec, error) {
	mt := m.Type
	if mt.NumIn() != 1 || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Slice {
		return nil, errors.UnsupportedType(nil, t.String(), "Elements must have signature func() []E")
	}
	elem := mt.Out(0).Elem()

	var b builder
	if fn, ok := s.r.factories[t]; ok {
		fb, err := factoryFor(fn, t, elem)
		if err != nil {
			return nil, err
		}
		b = fb
	} else if ab, ok := appenderFor(t, elem); ok {
		b = ab
	} else {
		return nil, errors.UnsupportedType(nil, t.String(),
			"no construction strategy: register a func(...%s) %s factory or add Append(%s) to *%s", elem, t, elem, t)
	}

	desc := &schema.Descriptor{Kind: schema.Array}
	c := &arrayCodec{desc: desc, typ: t, source: fromMethod, elements: m.Index, build: b}
	s.begin(t, c, false)
	defer s.end(t)

	items, err := s.derive(elem)
	if err != nil {
		return nil, errors.WithPath(err, "[]")
	}
	c.items = items
	desc.Items = items.Schema()
	return c, nil
}

func (s *session) compileMap(t reflect.Type) (Codec, error) {
	desc := &schema.Descriptor{Kind: schema.Map}
	c := &mapCodec{desc: desc, typ: t}
	s.begin(t, c, false)
	defer s.end(t)

	values, err := s.derive(t.Elem())
	if err != nil {
		return nil, errors.WithPath(err, "{}")
	}
	c.values = values
	desc.Values = values.Schema()
	return c, nil
}

func (s *session) compileOption(t reflect.Type) (Codec, error) {
	elem := t.Elem()
	switch {
	case elem.Kind() == reflect.Pointer:
		return nil, errors.UnsupportedType(nil, t.String(), "pointer to pointer")
	case elem.Kind() == reflect.Interface:
		return nil, errors.UnsupportedType(nil, t.String(), "optional union: unions cannot nest")
	case elem == nullType:
		return nil, errors.UnsupportedType(nil, t.String(), "optional null")
	}

	desc := &schema.Descriptor{Kind: schema.Union}
	c := &optionCodec{desc: desc, typ: t}
	s.begin(t, c, false)
	defer s.end(t)

	inner, err := s.derive(elem)
	if err != nil {
		return nil, err
	}
	if inner.Schema().Kind == schema.Union {
		return nil, errors.UnsupportedType(nil, t.String(), "optional union: unions cannot nest")
	}
	c.inner = inner
	desc.Members = []*schema.Descriptor{schema.Primitive(schema.Null), inner.Schema()}
	return c, nil
}

func (s *session) compileEither(t reflect.Type) (Codec, error) {
	lt, rt := reflect.Zero(t).Interface().(eitherValue).eitherTypes()
	desc := &schema.Descriptor{Kind: schema.Union}
	c := &eitherCodec{desc: desc, typ: t}
	s.begin(t, c, false)
	defer s.end(t)

	for i, bt := range []reflect.Type{lt, rt} {
		bc, err := s.derive(bt)
		if err != nil {
			return nil, err
		}
		c.branches[i] = bc
	}
	members := []*schema.Descriptor{c.branches[0].Schema(), c.branches[1].Schema()}
	if err := checkMembers(t, members); err != nil {
		return nil, err
	}
	desc.Members = members
	return c, nil
}

// compileUnion derives an interface type: a closed union over registered
// members, or an open union over registered types that implement it.
func (s *session) compileUnion(t reflect.Type) (Codec, error) {
	desc := &schema.Descriptor{Kind: schema.Union}
	c := &unionCodec{desc: desc, typ: t}
	s.begin(t, c, false)
	defer s.end(t)

	closed, isClosed := s.r.unions[t]
	var err error
	if isClosed {
		c.members, err = s.closedMembers(t, closed)
	} else {
		c.open = true
		c.members, err = s.openMembers(t)
	}
	if err != nil {
		return nil, err
	}
	if len(c.members) == 0 {
		return nil, errors.UnsupportedType(nil, t.String(), "interface has no union members; register them with RegisterUnion or RegisterType")
	}

	members := make([]*schema.Descriptor, len(c.members))
	for i, m := range c.members {
		members[i] = m.codec.Schema()
	}
	if err := checkMembers(t, members); err != nil {
		return nil, err
	}
	desc.Members = members
	if c.open {
		s.open = append(s.open, t)
	}
	return c, nil
}

func (s *session) member(mt reflect.Type) (unionMember, error) {
	if mt == nullType {
		return unionMember{host: mt, codec: newPrimitive(schema.Null, mt), null: true}, nil
	}
	m := unionMember{host: mt}
	target := mt
	if mt.Kind() == reflect.Pointer && mt.Elem().Kind() != reflect.Pointer {
		m.ptr = true
		target = mt.Elem()
	}
	c, err := s.derive(target)
	if err != nil {
		return m, err
	}
	m.codec = c
	return m, nil
}

func (s *session) closedMembers(t reflect.Type, types []reflect.Type) ([]unionMember, error) {
	members := make([]unionMember, 0, len(types))
	for _, mt := range types {
		m, err := s.member(mt)
		if err != nil {
			return nil, errors.WithPath(err, mt.String())
		}
		members = append(members, m)
	}
	return members, nil
}

// openMembers scans the registered types once. Candidates that cannot be
// derived are skipped; the rest are ordered by full schema name.
func (s *session) openMembers(t reflect.Type) ([]unionMember, error) {
	var members []unionMember
	for _, rt := range s.r.types {
		var host reflect.Type
		switch {
		case rt.Implements(t):
			host = rt
		case rt.Kind() != reflect.Pointer && reflect.PointerTo(rt).Implements(t):
			host = reflect.PointerTo(rt)
		default:
			continue
		}
		m0 := s.mark()
		m, err := s.member(host)
		if err == nil && m.codec.Schema().Kind == schema.Union {
			err = errors.UnsupportedType(nil, host.String(), "unions cannot nest")
		}
		if err != nil {
			s.rollback(m0)
			s.r.log().Debug("skipping union candidate",
				zap.Stringer("union", t),
				zap.Stringer("type", host),
				zap.Error(err))
			continue
		}
		members = append(members, m)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].codec.Schema().TypeName() < members[j].codec.Schema().TypeName()
	})
	return members, nil
}

// checkMembers enforces the union invariants: no member is itself a union
// and no two members share a type name, which also rules out structurally
// equal members.
func checkMembers(t reflect.Type, members []*schema.Descriptor) error {
	seen := make(map[string]int, len(members))
	for i, m := range members {
		if m.Kind == schema.Union {
			return errors.UnsupportedType(nil, t.String(), "union member %d is a union; unions cannot nest", i)
		}
		name := m.TypeName()
		if j, dup := seen[name]; dup {
			return errors.UnsupportedType(nil, t.String(), "union members %d and %d are both %s", j, i, name)
		}
		seen[name] = i
	}
	return nil
}

// compileRecord derives a struct. Exported fields become record fields in
// declaration order; the avro tag renames ("name") or skips ("-") a field,
// the doc tag documents it and the default tag holds a JSON default.
func (s *session) compileRecord(t reflect.Type) (Codec, error) {
	name, err := s.namedOrFail(t, "struct")
	if err != nil {
		return nil, err
	}
	desc := schema.NewRecord(name)
	c := &recordCodec{desc: desc, typ: t}
	s.begin(t, c, true)
	defer s.end(t)

	var (
		index   [][]int
		types   []reflect.Type
		tags    []string
		skipped int
	)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("avro")
		if !sf.IsExported() || tag == "-" {
			skipped++
			continue
		}
		fname := sf.Name
		if tag != "" {
			fname = tag
		}
		fc, err := s.derive(sf.Type)
		if err != nil {
			return nil, errors.WithPath(err, fname)
		}
		fd := schema.NewField(fname, fc.Schema())
		fd.Doc = sf.Tag.Get("doc")
		desc.Fields = append(desc.Fields, fd)
		c.fields = append(c.fields, recordField{name: fname, codec: fc, index: sf.Index, desc: fd})
		index = append(index, sf.Index)
		types = append(types, sf.Type)
		tags = append(tags, sf.Tag.Get("default"))
	}
	if len(c.fields) == 0 && skipped > 0 {
		return nil, errors.UnsupportedType(nil, t.String(), "struct has no exported fields")
	}

	c.build = structAssign{index: index}
	if fn, ok := s.r.ctors[t]; ok {
		b, err := constructorFor(fn, t, types)
		if err != nil {
			return nil, err
		}
		c.build = b
	}

	s.finalizers = append(s.finalizers, func() error {
		return s.recordDefaults(t, c, tags)
	})
	return c, nil
}

// recordDefaults attaches field defaults once every child codec is
// complete. FieldDefaults thunks win over default tags.
func (s *session) recordDefaults(t reflect.Type, c *recordCodec, tags []string) error {
	var thunks map[string]func() any
	switch {
	case t.Implements(defaulterType):
		thunks = reflect.Zero(t).Interface().(FieldDefaulter).FieldDefaults()
	case reflect.PointerTo(t).Implements(defaulterType):
		thunks = reflect.New(t).Interface().(FieldDefaulter).FieldDefaults()
	}

	for i := range c.fields {
		f := &c.fields[i]
		goName := t.FieldByIndex(f.index).Name
		thunk, ok := thunks[f.name]
		if !ok {
			thunk, ok = thunks[goName]
		}

		var (
			def any
			err error
		)
		switch {
		case ok:
			def, err = defaultJSON(f.codec, reflect.ValueOf(thunk()))
		case tags[i] != "":
			def, err = schema.DecodeJSON([]byte(tags[i]))
		default:
			continue
		}
		if err == nil {
			_, err = defaultValue(f.codec, def)
		}
		if err != nil {
			return errors.New(errors.PhaseDerive, errors.KindUnsupportedType).
				Path(f.name).
				GoType(t.String()).
				Cause(err).
				Detail("invalid default for field %s", f.name).
				Build()
		}
		f.desc.WithDefault(def)
	}
	return nil
}

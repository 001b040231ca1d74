package domain

import "go.trai.ch/zerr"

// PropOptions carries the declaration options of a property.
type PropOptions struct {
	// Inherit makes reads walk the transitive public dependencies of the
	// owning target and join the collected values with the type's rule.
	Inherit bool
}

// Prop is a single declared property.
type Prop struct {
	Name    string
	Type    PropType
	Options PropOptions
}

// PropertySet is the schema shared by all Properties containers bound to
// it. Toolchain plugins register their property declarations here before
// any target is constructed.
type PropertySet struct {
	props map[string]*Prop
	order []string
}

// NewPropertySet creates an empty PropertySet.
func NewPropertySet() *PropertySet {
	return &PropertySet{props: make(map[string]*Prop)}
}

// Declare registers a property. Redeclaring with the same type is a
// no-op so independent plugins may share declarations; a conflicting
// type fails with ErrDuplicateProperty.
func (ps *PropertySet) Declare(name string, typ PropType, opts PropOptions) error {
	if existing, ok := ps.props[name]; ok {
		if existing.Type.Name() != typ.Name() {
			return zerr.With(zerr.With(ErrDuplicateProperty, "property", name),
				"declared_type", existing.Type.Name())
		}
		return nil
	}
	ps.props[name] = &Prop{Name: name, Type: typ, Options: opts}
	ps.order = append(ps.order, name)
	return nil
}

// Lookup returns the declared property or ErrNoSuchProperty.
func (ps *PropertySet) Lookup(name string) (*Prop, error) {
	prop, ok := ps.props[name]
	if !ok {
		return nil, zerr.With(ErrNoSuchProperty, "property", name)
	}
	return prop, nil
}

// Names returns the declared property names in declaration order.
func (ps *PropertySet) Names() []string {
	out := make([]string, len(ps.order))
	copy(out, ps.order)
	return out
}

// Properties binds a PropertySet to a concrete owner and stores only the
// values explicitly set on it.
type Properties struct {
	set    *PropertySet
	owner  string
	values map[string]any
}

// NewProperties creates an empty container bound to the given schema.
// The owner string is attached to error metadata only.
func NewProperties(set *PropertySet, owner string) *Properties {
	return &Properties{set: set, owner: owner, values: make(map[string]any)}
}

// Set coerces and stores a value. Undeclared names fail with
// ErrNoSuchProperty, values that do not fit with ErrPropertyType.
func (p *Properties) Set(name string, value any) error {
	prop, err := p.set.Lookup(name)
	if err != nil {
		return zerr.With(err, "owner", p.owner)
	}
	coerced, err := prop.Type.Coerce(value)
	if err != nil {
		return zerr.With(zerr.With(err, "property", name), "owner", p.owner)
	}
	p.values[name] = coerced
	return nil
}

// Append joins the stored value with an additional one using the type's
// join rule. On an unset property it behaves like Set.
func (p *Properties) Append(name string, value any) error {
	prop, err := p.set.Lookup(name)
	if err != nil {
		return zerr.With(err, "owner", p.owner)
	}
	coerced, err := prop.Type.Coerce(value)
	if err != nil {
		return zerr.With(zerr.With(err, "property", name), "owner", p.owner)
	}
	if existing, ok := p.values[name]; ok {
		p.values[name] = prop.Type.Join([]any{existing, coerced})
	} else {
		p.values[name] = coerced
	}
	return nil
}

// Get returns the stored value or the type's default when unset.
// Undeclared names fail with ErrNoSuchProperty.
func (p *Properties) Get(name string) (any, error) {
	prop, err := p.set.Lookup(name)
	if err != nil {
		return nil, zerr.With(err, "owner", p.owner)
	}
	if v, ok := p.values[name]; ok {
		return v, nil
	}
	return prop.Type.Default(), nil
}

// IsSet reports whether the property was explicitly set.
func (p *Properties) IsSet(name string) bool {
	_, ok := p.values[name]
	return ok
}

// Schema returns the PropertySet this container is bound to.
func (p *Properties) Schema() *PropertySet {
	return p.set
}
